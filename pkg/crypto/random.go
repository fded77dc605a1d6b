// Package crypto implements the cryptographic primitives the handshake and
// record layer are built on: key pairs, the transcript hash, record
// ciphers, and signature verification. It wraps Go's standard library and a
// small number of ecosystem packages rather than reimplementing primitives.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"io"

	qerrors "github.com/fenwick-labs/gotls/internal/errors"
)

// RandomSource produces cryptographically strong random bytes. The
// handshake draws the client_random, the key-pair seed, the legacy session
// ID and (for RSA key transport) the pre-master random each with a call of
// its own, not as one combined block; the CBC-HMAC cipher calls it once
// per record for an explicit IV.
// Factoring this behind an interface (rather than calling crypto/rand
// directly) lets tests fix the randomness and verify literal byte fixtures.
type RandomSource interface {
	FillRandom(buf []byte) error
}

// systemRandom is the default RandomSource, backed by the OS CSPRNG.
type systemRandom struct{}

func (systemRandom) FillRandom(buf []byte) error {
	_, err := io.ReadFull(rand.Reader, buf)
	if err != nil {
		return qerrors.NewCryptoError("FillRandom", err)
	}
	return nil
}

// SystemRandom is the default RandomSource, backed by crypto/rand.
var SystemRandom RandomSource = systemRandom{}

// SecureRandom reads cryptographically secure random bytes into b using the
// default system source.
func SecureRandom(b []byte) error {
	return SystemRandom.FillRandom(b)
}

// SecureRandomBytes returns n cryptographically secure random bytes.
func SecureRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if err := SecureRandom(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Reader is an io.Reader returning cryptographically secure random bytes.
var Reader = rand.Reader

// ConstantTimeCompare reports whether a and b are equal, in constant time.
func ConstantTimeCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Zeroize overwrites b with zeros. Used to scrub key material and
// handshake secrets once they are no longer needed.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ZeroizeMultiple zeroizes each slice in turn.
func ZeroizeMultiple(slices ...[]byte) {
	for _, s := range slices {
		Zeroize(s)
	}
}
