// keypair.go implements the client's ephemeral key-pair module: given a
// single 64-byte seed it generates one key pair per offered group
// (X25519, secp256r1, secp384r1, X25519+Kyber768) and computes the
// pre-master/shared secret once the server's share arrives, using stdlib
// crypto/ecdh for the classical groups and an ephemeral-classical-share
// concatenated with a KEM secret for the hybrid group.
package crypto

import (
	"crypto/ecdh"

	"github.com/cloudflare/circl/kem/kyber/kyber768"

	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
)

// ecdhKeyPair wraps one stdlib crypto/ecdh curve's key pair.
type ecdhKeyPair struct {
	curve ecdh.Curve
	priv  *ecdh.PrivateKey
	pub   *ecdh.PublicKey
}

func newECDHKeyPair(curve ecdh.Curve, seed []byte) (*ecdhKeyPair, error) {
	priv, err := curve.NewPrivateKey(seed)
	if err != nil {
		return nil, qerrors.NewCryptoError("ecdh.NewPrivateKey", err)
	}
	return &ecdhKeyPair{curve: curve, priv: priv, pub: priv.PublicKey()}, nil
}

func (kp *ecdhKeyPair) publicKeyBytes() []byte { return kp.pub.Bytes() }

func (kp *ecdhKeyPair) sharedSecret(peerPub []byte) ([]byte, error) {
	pub, err := kp.curve.NewPublicKey(peerPub)
	if err != nil {
		return nil, qerrors.NewCryptoError("ecdh.NewPublicKey", err)
	}
	secret, err := kp.priv.ECDH(pub)
	if err != nil {
		return nil, qerrors.NewCryptoError("ecdh.ECDH", err)
	}
	return secret, nil
}

func (kp *ecdhKeyPair) zeroize() {
	kp.priv = nil
	kp.pub = nil
}

// KeyPair holds one ephemeral key pair per group the client may offer,
// all derived deterministically from a single 64-byte handshake seed.
type KeyPair struct {
	x25519 *ecdhKeyPair
	p256   *ecdhKeyPair
	p384   *ecdhKeyPair
	kyber  *kyber768KeyPair
}

// NewKeyPair derives key pairs for every supported group from a 64-byte
// seed. The X25519 private scalar is the first 32 seed bytes; the P-256,
// P-384 and Kyber768 keys are derived from the whole seed by an HKDF
// expansion with a per-group purpose string, so that a single seed fully
// determines the ClientHello's key_share
// extension (testable property §8.5: ClientHello serialization is
// deterministic given the seed).
func NewKeyPair(seed []byte) (*KeyPair, error) {
	if len(seed) != constants.HandshakeSeedSize {
		return nil, qerrors.ErrInvalidKeySize
	}

	x25519, err := newECDHKeyPair(ecdh.X25519(), seed[:32])
	if err != nil {
		return nil, err
	}
	p256, err := newECDHKeyPair(ecdh.P256(), expandSeed(seed, 32, "p256"))
	if err != nil {
		return nil, err
	}
	p384, err := newECDHKeyPair(ecdh.P384(), expandSeed(seed, 48, "p384"))
	if err != nil {
		return nil, err
	}
	kyber, err := generateKyber768KeyPair(expandSeed(seed, kyber768.KeySeedSize, "kyber768"))
	if err != nil {
		return nil, err
	}

	return &KeyPair{x25519: x25519, p256: p256, p384: p384, kyber: kyber}, nil
}

// PublicKey returns the wire encoding of the client's public share for the
// given group: uncompressed SEC1 for the NIST curves, raw for X25519,
// X25519‖Kyber768-encapsulation-key for the hybrid group.
func (kp *KeyPair) PublicKey(group constants.NamedGroup) ([]byte, error) {
	switch group {
	case constants.GroupX25519:
		return kp.x25519.publicKeyBytes(), nil
	case constants.GroupSecp256r1:
		return kp.p256.publicKeyBytes(), nil
	case constants.GroupSecp384r1:
		return kp.p384.publicKeyBytes(), nil
	case constants.GroupX25519Kyber768:
		return kp.HybridPublicKey(), nil
	default:
		return nil, qerrors.ErrIllegalParameter
	}
}

// PreMasterSecret computes the shared secret for the given group against
// the server's public share. For the hybrid group this is
// concat(x25519_shared, kyber768_shared); for the NIST curves it is the
// x-coordinate of the ECDH result (crypto/ecdh already returns exactly
// that for P-256/P-384).
func (kp *KeyPair) PreMasterSecret(group constants.NamedGroup, serverPub []byte) ([]byte, error) {
	switch group {
	case constants.GroupX25519:
		if len(serverPub) != constants.X25519PublicKeySize {
			return nil, qerrors.ErrIllegalParameter
		}
		return kp.x25519.sharedSecret(serverPub)
	case constants.GroupSecp256r1, constants.GroupSecp384r1:
		kpair := kp.p256
		if group == constants.GroupSecp384r1 {
			kpair = kp.p384
		}
		return kpair.sharedSecret(serverPub)
	case constants.GroupX25519Kyber768:
		return kp.HybridClientShare(serverPub)
	default:
		return nil, qerrors.ErrIllegalParameter
	}
}

// Zeroize erases all private key material held by the key pair.
func (kp *KeyPair) Zeroize() {
	if kp.x25519 != nil {
		kp.x25519.zeroize()
	}
	if kp.p256 != nil {
		kp.p256.zeroize()
	}
	if kp.p384 != nil {
		kp.p384.zeroize()
	}
	if kp.kyber != nil {
		kp.kyber.zeroize()
	}
}

