// suites.go tables the per-cipher-suite properties the record layer and key
// schedule need: whether it's AEAD or CBC-HMAC, key/IV/MAC lengths, and its
// transcript/PRF hash. One struct of constants per suite, looked up by
// suite ID, covering both TLS 1.2 and TLS 1.3 suites.
package protocol

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
)

// SuiteKind distinguishes the record-protection construction a suite uses.
type SuiteKind int

const (
	KindAEAD13 SuiteKind = iota
	KindAEAD12
	KindCBC12
)

// SuiteParams describes everything the record layer and key schedule need
// to know about a negotiated cipher suite.
type SuiteParams struct {
	Kind     SuiteKind
	KeyLen   int
	IVLen    int // AEAD: fixed implicit IV length. CBC: explicit per-record IV length.
	MACLen   int // CBC-HMAC only.
	HashNew  func() hash.Hash
}

var suiteTable = map[constants.CipherSuite]SuiteParams{
	constants.SuiteAES128GCMSHA256:       {Kind: KindAEAD13, KeyLen: constants.AESGCMKeySize128, IVLen: constants.AESGCMNonceSize, HashNew: sha256.New},
	constants.SuiteAES256GCMSHA384:       {Kind: KindAEAD13, KeyLen: constants.AESGCMKeySize256, IVLen: constants.AESGCMNonceSize, HashNew: sha512.New384},
	constants.SuiteChaCha20Poly1305SHA256: {Kind: KindAEAD13, KeyLen: constants.ChaCha20KeySize, IVLen: constants.ChaCha20NonceSize, HashNew: sha256.New},

	constants.SuiteECDHE_RSA_AES128_GCM_SHA256:   {Kind: KindAEAD12, KeyLen: constants.AESGCMKeySize128, IVLen: 4, HashNew: sha256.New},
	constants.SuiteECDHE_ECDSA_AES128_GCM_SHA256: {Kind: KindAEAD12, KeyLen: constants.AESGCMKeySize128, IVLen: 4, HashNew: sha256.New},
	constants.SuiteECDHE_RSA_AES256_GCM_SHA384:   {Kind: KindAEAD12, KeyLen: constants.AESGCMKeySize256, IVLen: 4, HashNew: sha512.New384},

	constants.SuiteECDHE_RSA_AES128_CBC_SHA: {Kind: KindCBC12, KeyLen: constants.CBCKeySize128, IVLen: constants.CBCIVSize, MACLen: constants.HMACSHA1Size, HashNew: sha256.New},
	constants.SuiteRSA_AES128_CBC_SHA:       {Kind: KindCBC12, KeyLen: constants.CBCKeySize128, IVLen: constants.CBCIVSize, MACLen: constants.HMACSHA1Size, HashNew: sha256.New},
}

// Params looks up a suite's parameters, failing closed for anything this
// engine doesn't implement.
func Params(suite constants.CipherSuite) (SuiteParams, error) {
	p, ok := suiteTable[suite]
	if !ok {
		return SuiteParams{}, qerrors.ErrIllegalParameter
	}
	return p, nil
}

// IsSupported reports whether suite is one this engine can negotiate.
func IsSupported(suite constants.CipherSuite) bool {
	_, ok := suiteTable[suite]
	return ok
}

// DefaultOffer13 is the TLS 1.3 suite list offered in cipher_suites, in
// preference order.
var DefaultOffer13 = []constants.CipherSuite{
	constants.SuiteAES128GCMSHA256,
	constants.SuiteChaCha20Poly1305SHA256,
	constants.SuiteAES256GCMSHA384,
}

// DefaultOffer12 is the TLS 1.2 suite list offered, in preference order.
var DefaultOffer12 = []constants.CipherSuite{
	constants.SuiteECDHE_ECDSA_AES128_GCM_SHA256,
	constants.SuiteECDHE_RSA_AES128_GCM_SHA256,
	constants.SuiteECDHE_RSA_AES256_GCM_SHA384,
	constants.SuiteECDHE_RSA_AES128_CBC_SHA,
	constants.SuiteRSA_AES128_CBC_SHA,
}
