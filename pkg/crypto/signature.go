// signature.go implements server signature verification: dispatch on
// signature_scheme against the certificate's public-key algorithm, across
// ECDSA, Ed25519, RSA-PSS, and RSA-PKCS1, one small wrapper function per
// primitive family over crypto/ecdsa, crypto/ed25519, and crypto/rsa.
package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/sha512"

	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
)

// PublicKeyForVerify is whatever encoding/x509 produced when parsing the
// server's leaf certificate (*ecdsa.PublicKey, ed25519.PublicKey, or
// *rsa.PublicKey) — re-exported so callers of VerifySignature and
// TrustStore don't need their own crypto import just to name the type.
type PublicKeyForVerify = crypto.PublicKey

// VerifySignature checks sig over message under pub for the given scheme.
// pub must be one of *ecdsa.PublicKey, ed25519.PublicKey, or *rsa.PublicKey
// — whatever encoding/x509 produced when parsing the server's leaf
// certificate.
func VerifySignature(scheme constants.SignatureScheme, pub crypto.PublicKey, message, sig []byte) error {
	switch scheme {
	case constants.SigSchemeECDSASecp256r1, constants.SigSchemeECDSASecp384r1:
		return verifyECDSA(scheme, pub, message, sig)
	case constants.SigSchemeEd25519:
		return verifyEd25519(pub, message, sig)
	case constants.SigSchemeRSAPSSRSAESHA256, constants.SigSchemeRSAPSSRSAESHA384, constants.SigSchemeRSAPSSRSAESHA512:
		return verifyRSAPSS(scheme, pub, message, sig)
	case constants.SigSchemeRSAPKCS1SHA1, constants.SigSchemeRSAPKCS1SHA256, constants.SigSchemeRSAPKCS1SHA384:
		return verifyRSAPKCS1(scheme, pub, message, sig)
	default:
		return qerrors.ErrUnknownSignatureScheme
	}
}

func verifyECDSA(scheme constants.SignatureScheme, pub crypto.PublicKey, message, sig []byte) error {
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return qerrors.ErrBadSignatureScheme
	}
	var digest []byte
	switch scheme {
	case constants.SigSchemeECDSASecp256r1:
		h := sha256.Sum256(message)
		digest = h[:]
	case constants.SigSchemeECDSASecp384r1:
		h := sha512.Sum384(message)
		digest = h[:]
	}
	if !ecdsa.VerifyASN1(ecPub, digest, sig) {
		return qerrors.ErrCertificateSignatureInvalid
	}
	return nil
}

func verifyEd25519(pub crypto.PublicKey, message, sig []byte) error {
	edPub, ok := pub.(ed25519.PublicKey)
	if !ok {
		return qerrors.ErrBadSignatureScheme
	}
	if len(edPub) != ed25519.PublicKeySize || len(sig) != ed25519.SignatureSize {
		return qerrors.ErrInvalidEncoding
	}
	if !ed25519.Verify(edPub, message, sig) {
		return qerrors.ErrCertificateSignatureInvalid
	}
	return nil
}

func rsaHashForScheme(scheme constants.SignatureScheme) (crypto.Hash, []byte) {
	switch scheme {
	case constants.SigSchemeRSAPKCS1SHA1:
		return crypto.SHA1, nil
	case constants.SigSchemeRSAPKCS1SHA256, constants.SigSchemeRSAPSSRSAESHA256:
		return crypto.SHA256, nil
	case constants.SigSchemeRSAPKCS1SHA384, constants.SigSchemeRSAPSSRSAESHA384:
		return crypto.SHA384, nil
	case constants.SigSchemeRSAPSSRSAESHA512:
		return crypto.SHA512, nil
	default:
		return 0, nil
	}
}

func checkRSAModulusSize(pub *rsa.PublicKey) error {
	switch pub.Size() {
	case 128, 256, 384, 512:
		return nil
	default:
		return qerrors.ErrBadRsaSignatureBitCount
	}
}

func verifyRSAPSS(scheme constants.SignatureScheme, pub crypto.PublicKey, message, sig []byte) error {
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return qerrors.ErrBadSignatureScheme
	}
	if err := checkRSAModulusSize(rsaPub); err != nil {
		return err
	}
	h, _ := rsaHashForScheme(scheme)
	digest := h.New()
	digest.Write(message)
	opts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: h}
	if err := rsa.VerifyPSS(rsaPub, h, digest.Sum(nil), sig, opts); err != nil {
		return qerrors.ErrCertificateSignatureInvalid
	}
	return nil
}

func verifyRSAPKCS1(scheme constants.SignatureScheme, pub crypto.PublicKey, message, sig []byte) error {
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return qerrors.ErrBadSignatureScheme
	}
	if err := checkRSAModulusSize(rsaPub); err != nil {
		return err
	}
	h, _ := rsaHashForScheme(scheme)
	digest := h.New()
	digest.Write(message)
	if err := rsa.VerifyPKCS1v15(rsaPub, h, digest.Sum(nil), sig); err != nil {
		return qerrors.ErrCertificateSignatureInvalid
	}
	return nil
}

// ServerKeyExchangeVerifyBytes builds the TLS 1.2 ServerKeyExchange
// signature input (RFC 5246 §7.4.3):
// client_random || server_random || curve_type || named_group || pub_key_len || pub_key.
func ServerKeyExchangeVerifyBytes(clientRandom, serverRandom []byte, group constants.NamedGroup, serverPubKey []byte) []byte {
	const curveTypeNamedCurve = 3
	out := make([]byte, 0, len(clientRandom)+len(serverRandom)+1+2+1+len(serverPubKey))
	out = append(out, clientRandom...)
	out = append(out, serverRandom...)
	out = append(out, curveTypeNamedCurve)
	out = append(out, byte(group>>8), byte(group))
	out = append(out, byte(len(serverPubKey)))
	out = append(out, serverPubKey...)
	return out
}
