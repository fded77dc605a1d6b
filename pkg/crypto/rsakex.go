// rsakex.go implements the TLS 1.2 RSA key-transport fallback: the 48-byte
// pre-master secret {legacy_version, random} is sent encrypted under the
// server certificate's RSA public key using PKCS#1 v1.5 encryption.
package crypto

import (
	"crypto/rsa"

	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
)

// NewRSAPreMaster builds the 48-byte pre-master secret: the first two
// bytes are the legacy client version 0x0303, the remaining 46 are random.
func NewRSAPreMaster(rnd RandomSource) ([]byte, error) {
	pm := make([]byte, constants.RSAPreMasterSize)
	pm[0], pm[1] = 0x03, 0x03
	if err := rnd.FillRandom(pm[2:]); err != nil {
		return nil, err
	}
	return pm, nil
}

// EncryptRSAPreMaster encrypts preMaster under the server certificate's RSA
// public key using PKCS#1 v1.5, producing the wire ClientKeyExchange value.
func EncryptRSAPreMaster(pub *rsa.PublicKey, preMaster []byte) ([]byte, error) {
	if len(preMaster) != constants.RSAPreMasterSize {
		return nil, qerrors.ErrIllegalParameter
	}
	ciphertext, err := rsa.EncryptPKCS1v15(Reader, pub, preMaster)
	if err != nil {
		return nil, qerrors.NewCryptoError("EncryptRSAPreMaster", err)
	}
	return ciphertext, nil
}
