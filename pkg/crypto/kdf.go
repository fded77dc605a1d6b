// kdf.go implements the two key-derivation primitives the engine needs:
// RFC 5246's P_hash-based PRF for TLS 1.2, built on crypto/hmac, and
// RFC 8446's HKDF-Expand-Label for TLS 1.3, built on golang.org/x/crypto/hkdf.
// One small function per named derivation.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/hkdf"

	qerrors "github.com/fenwick-labs/gotls/internal/errors"
)

// expandSeed stretches an arbitrary-length seed into n deterministic bytes
// using HKDF (seed as IKM, no salt) labeled by purpose. Used to turn the
// single 64-byte handshake seed into independent per-group scalars.
func expandSeed(seed []byte, n int, purpose string) []byte {
	r := hkdf.New(sha256.New, seed, nil, []byte(purpose))
	out := make([]byte, n)
	_, _ = r.Read(out) // hkdf.Reader only errors past its output limit
	return out
}

// pHash implements RFC 5246 §5's P_hash(secret, seed) expansion.
func pHash(h func() hash.Hash, secret, seed []byte, outputLen int) []byte {
	mac := hmac.New(h, secret)
	mac.Write(seed)
	a := mac.Sum(nil)

	out := make([]byte, 0, outputLen)
	for len(out) < outputLen {
		mac.Reset()
		mac.Write(a)
		mac.Write(seed)
		out = append(out, mac.Sum(nil)...)

		mac.Reset()
		mac.Write(a)
		a = mac.Sum(nil)
	}
	return out[:outputLen]
}

// PRF12 implements RFC 5246 §5's TLS 1.2 pseudo-random function:
// PRF(secret, label, seed) = P_hash(secret, label || seed). hashFn selects
// the suite's PRF hash (SHA-256 for every suite this engine supports;
// RFC 5246 fixes SHA-256 unless the suite specifies otherwise).
func PRF12(hashFn func() hash.Hash, secret []byte, label string, seed []byte, outputLen int) []byte {
	labelSeed := make([]byte, 0, len(label)+len(seed))
	labelSeed = append(labelSeed, label...)
	labelSeed = append(labelSeed, seed...)
	return pHash(hashFn, secret, labelSeed, outputLen)
}

// hkdfExtract implements RFC 5869's Extract step directly so HKDFExpandLabel
// can also expose the Extract half HKDF-based secrets need (early/handshake/
// master secret chaining, RFC 8446 §7.1).
func hkdfExtract(hashFn func() hash.Hash, salt, ikm []byte) []byte {
	if ikm == nil {
		ikm = make([]byte, hashFn().Size())
	}
	mac := hmac.New(hashFn, salt)
	mac.Write(ikm)
	return mac.Sum(nil)
}

// HKDFExtract re-exports hkdfExtract for use by the transcript/key-schedule
// layer (pkg/crypto/transcript.go).
func HKDFExtract(hashFn func() hash.Hash, salt, ikm []byte) []byte {
	return hkdfExtract(hashFn, salt, ikm)
}

// hkdfExpandLabel implements RFC 8446 §7.1's HKDF-Expand-Label:
//
//	HkdfLabel = length(2) || "tls13 " + label (1 + len, <=255) || context (1 + len, <=255)
//	HKDF-Expand-Label(Secret, Label, Context, Length) =
//	    HKDF-Expand(Secret, HkdfLabel, Length)
func hkdfExpandLabel(hashFn func() hash.Hash, secret []byte, label string, context []byte, length int) []byte {
	var hkdfLabel []byte
	hkdfLabel = binary.BigEndian.AppendUint16(hkdfLabel, uint16(length))

	fullLabel := "tls13 " + label
	hkdfLabel = append(hkdfLabel, byte(len(fullLabel)))
	hkdfLabel = append(hkdfLabel, fullLabel...)

	hkdfLabel = append(hkdfLabel, byte(len(context)))
	hkdfLabel = append(hkdfLabel, context...)

	r := hkdf.Expand(hashFn, secret, hkdfLabel)
	out := make([]byte, length)
	if _, err := r.Read(out); err != nil {
		// hkdf.Expand's Reader only errors once more than 255*hash_len bytes
		// have been requested; every caller here requests a handful of
		// hash-sized outputs, so this is unreachable in practice.
		panic(qerrors.NewCryptoError("hkdfExpandLabel", err))
	}
	return out
}

// HKDFExpandLabel re-exports hkdfExpandLabel for the transcript layer.
func HKDFExpandLabel(hashFn func() hash.Hash, secret []byte, label string, context []byte, length int) []byte {
	return hkdfExpandLabel(hashFn, secret, label, context, length)
}
