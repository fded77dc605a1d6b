// hybrid.go implements the X25519+Kyber768 hybrid key-agreement group: the
// shared secret is the concatenation of the X25519 ECDH output and the
// Kyber768 KEM shared secret (RFC 8446 classical/post-quantum hybrid
// pattern). Kyber768 comes from circl.
package crypto

import (
	"github.com/cloudflare/circl/kem/kyber/kyber768"

	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
)

// kyber768KeyPair wraps a circl Kyber768 key pair.
type kyber768KeyPair struct {
	pub *kyber768.PublicKey
	priv *kyber768.PrivateKey
}

func generateKyber768KeyPair(seed []byte) (*kyber768KeyPair, error) {
	if len(seed) != kyber768.KeySeedSize {
		return nil, qerrors.ErrInvalidKeySize
	}
	pub, priv := kyber768.Scheme().DeriveKeyPair(seed)
	kpub, ok := pub.(*kyber768.PublicKey)
	if !ok {
		return nil, qerrors.NewCryptoError("kyber768.DeriveKeyPair", qerrors.ErrInvalidPublicKey)
	}
	kpriv, ok := priv.(*kyber768.PrivateKey)
	if !ok {
		return nil, qerrors.NewCryptoError("kyber768.DeriveKeyPair", qerrors.ErrInvalidPrivateKey)
	}
	return &kyber768KeyPair{pub: kpub, priv: kpriv}, nil
}

func (kp *kyber768KeyPair) publicKeyBytes() []byte {
	buf := make([]byte, kyber768.PublicKeySize)
	kp.pub.Pack(buf)
	return buf
}

// kyber768Encapsulate encapsulates against a peer's packed public key,
// returning the KEM ciphertext and the shared secret.
func kyber768Encapsulate(peerPub []byte) (ciphertext, sharedSecret []byte, err error) {
	if len(peerPub) != kyber768.PublicKeySize {
		return nil, nil, qerrors.ErrInvalidPublicKey
	}
	pub := new(kyber768.PublicKey)
	if err := pub.Unpack(peerPub); err != nil {
		return nil, nil, qerrors.NewCryptoError("kyber768.Unpack", err)
	}
	seed := make([]byte, kyber768.EncapsulationSeedSize)
	if err := SecureRandom(seed); err != nil {
		return nil, nil, err
	}
	ct := make([]byte, kyber768.CiphertextSize)
	ss := make([]byte, kyber768.SharedKeySize)
	pub.EncapsulateTo(ct, ss, seed)
	return ct, ss, nil
}

func (kp *kyber768KeyPair) decapsulate(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) != kyber768.CiphertextSize {
		return nil, qerrors.ErrInvalidCiphertext
	}
	ss := make([]byte, kyber768.SharedKeySize)
	kp.priv.DecapsulateTo(ss, ciphertext)
	return ss, nil
}

func (kp *kyber768KeyPair) zeroize() {
	kp.priv = nil
	kp.pub = nil
}

// HybridPublicKey returns the wire encoding of the hybrid group's public
// share: X25519 public point concatenated with the packed Kyber768
// encapsulation key.
func (kp *KeyPair) HybridPublicKey() []byte {
	out := make([]byte, 0, constants.X25519PublicKeySize+kyber768.PublicKeySize)
	out = append(out, kp.x25519.publicKeyBytes()...)
	out = append(out, kp.kyber.publicKeyBytes()...)
	return out
}

// HybridClientShare performs the client side of the hybrid exchange: it
// decapsulates against the server's Kyber768 ciphertext half and computes
// the X25519 ECDH with the server's X25519 half, returning
// concat(x25519_shared, kyber_shared).
func (kp *KeyPair) HybridClientShare(serverPub []byte) ([]byte, error) {
	if len(serverPub) != constants.X25519PublicKeySize+kyber768.CiphertextSize {
		return nil, qerrors.ErrIllegalParameter
	}
	x25519Peer := serverPub[:constants.X25519PublicKeySize]
	kyberCiphertext := serverPub[constants.X25519PublicKeySize:]

	xShared, err := kp.x25519.sharedSecret(x25519Peer)
	if err != nil {
		return nil, err
	}
	kShared, err := kp.kyber.decapsulate(kyberCiphertext)
	if err != nil {
		return nil, qerrors.NewCryptoError("hybrid.decapsulate", qerrors.ErrDecryptFailure)
	}
	return append(append([]byte{}, xShared...), kShared...), nil
}
