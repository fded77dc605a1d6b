// transcript.go implements the handshake transcript hash: a running hash
// over every handshake message, kept in parallel SHA-256 and SHA-384 until
// the cipher suite is chosen (the server picks the suite, and TLS 1.2 vs
// 1.3 key schedules use different hashes, so both run from ClientHello
// until ServerHello narrows the choice), one small function per named
// secret, with RFC 5246's PRF and RFC 8446's HKDF-Expand-Label behind it.
package crypto

import (
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	qerrors "github.com/fenwick-labs/gotls/internal/errors"
)

// Transcript accumulates handshake message bytes (exclusive of record
// headers) into parallel SHA-256 and SHA-384 states.
type Transcript struct {
	sha256 hash.Hash
	sha384 hash.Hash
	// use384 records which family Select chose and selected whether Select
	// has run; until then SHA-256 is used (RFC 5246's PRF is always SHA-256
	// here).
	use384   bool
	selected bool
}

// NewTranscript starts a fresh transcript with both hash families live.
func NewTranscript() *Transcript {
	return &Transcript{sha256: sha256.New(), sha384: sha512.New384()}
}

// Update appends a handshake message's bytes to the running transcript.
// Must be called exactly once per handshake message, in wire order.
func (t *Transcript) Update(msg []byte) {
	t.sha256.Write(msg)
	t.sha384.Write(msg)
}

// Select narrows the transcript to SHA-256 or SHA-384 once the cipher
// suite's hash is known (RFC 8446 §7.1; RFC 5246 always uses SHA-256 for
// the PRF since this engine only supports SHA-256-PRF suites).
func (t *Transcript) Select(use384 bool) {
	t.selected = true
	t.use384 = use384
}

func (t *Transcript) hashFn() func() hash.Hash {
	if t.selected && t.use384 {
		return sha512.New384
	}
	return sha256.New
}

// Sum returns the current transcript hash under the selected hash family
// (or SHA-256 if Select hasn't been called yet). Calling Sum does not
// disturb the running hash state, so further Update calls remain valid.
func (t *Transcript) Sum() []byte {
	if t.selected && t.use384 {
		return t.sha384.Sum(nil)
	}
	return t.sha256.Sum(nil)
}

// --- TLS 1.2 key schedule (RFC 5246 §6.3, §8.1) ---

// MasterSecret12 derives the 48-byte master_secret from the pre-master
// secret and the client/server randoms.
func MasterSecret12(preMaster, clientRandom, serverRandom []byte) []byte {
	seed := append(append([]byte{}, clientRandom...), serverRandom...)
	return PRF12(sha256.New, preMaster, "master secret", seed, 48)
}

// KeyMaterial12 expands the master secret into the key block: MAC keys (if
// any), write keys, and write IVs for both directions, per the cipher
// suite's length schedule.
func KeyMaterial12(masterSecret, clientRandom, serverRandom []byte, length int) []byte {
	seed := append(append([]byte{}, serverRandom...), clientRandom...)
	return PRF12(sha256.New, masterSecret, "key expansion", seed, length)
}

// Finished12 computes the 12-byte Finished verify_data for either side.
// label is "client finished" or "server finished"; transcriptHash is the
// transcript hash up to (but excluding) this Finished message.
func Finished12(masterSecret []byte, label string, transcriptHash []byte) []byte {
	return PRF12(sha256.New, masterSecret, label, transcriptHash, 12)
}

// --- TLS 1.3 key schedule (RFC 8446 §7.1) ---

// deriveSecret implements RFC 8446 §7.1's Derive-Secret(Secret, Label,
// Messages) = HKDF-Expand-Label(Secret, Label, Transcript-Hash(Messages),
// Hash.length).
func deriveSecret(hashFn func() hash.Hash, secret []byte, label string, transcriptHash []byte) []byte {
	return hkdfExpandLabel(hashFn, secret, label, transcriptHash, hashFn().Size())
}

// EarlySecret13 derives the early secret from a zero-filled PSK (this
// engine never offers PSK/0-RTT, so IKM is always hashLen zero bytes).
func EarlySecret13(hashFn func() hash.Hash) []byte {
	return hkdfExtract(hashFn, nil, nil)
}

// HandshakeSecret13 derives the handshake secret from the early secret and
// the (EC)DHE shared secret.
func HandshakeSecret13(hashFn func() hash.Hash, earlySecret, sharedSecret []byte) []byte {
	emptyHash := hashFn()
	salt := deriveSecret(hashFn, earlySecret, "derived", emptyHash.Sum(nil))
	return hkdfExtract(hashFn, salt, sharedSecret)
}

// MasterSecret13 derives the master secret from the handshake secret.
func MasterSecret13(hashFn func() hash.Hash, handshakeSecret []byte) []byte {
	emptyHash := hashFn()
	salt := deriveSecret(hashFn, handshakeSecret, "derived", emptyHash.Sum(nil))
	return hkdfExtract(hashFn, salt, nil)
}

// HandshakeTrafficSecrets13 derives the client and server handshake
// traffic secrets, bound to the transcript through ServerHello.
func HandshakeTrafficSecrets13(hashFn func() hash.Hash, handshakeSecret, transcriptHash []byte) (client, server []byte) {
	client = deriveSecret(hashFn, handshakeSecret, "c hs traffic", transcriptHash)
	server = deriveSecret(hashFn, handshakeSecret, "s hs traffic", transcriptHash)
	return
}

// ApplicationTrafficSecrets13 derives the client and server application
// traffic secrets, bound to the transcript through server Finished.
func ApplicationTrafficSecrets13(hashFn func() hash.Hash, masterSecret, transcriptHash []byte) (client, server []byte) {
	client = deriveSecret(hashFn, masterSecret, "c ap traffic", transcriptHash)
	server = deriveSecret(hashFn, masterSecret, "s ap traffic", transcriptHash)
	return
}

// TrafficKeyIV13 expands a traffic secret into its AEAD key and IV
// (RFC 8446 §7.3).
func TrafficKeyIV13(hashFn func() hash.Hash, trafficSecret []byte, keyLen int) (key, iv []byte) {
	key = hkdfExpandLabel(hashFn, trafficSecret, "key", nil, keyLen)
	iv = hkdfExpandLabel(hashFn, trafficSecret, "iv", nil, 12)
	return
}

// FinishedKey13 derives the HMAC key used to compute/verify a Finished
// message (RFC 8446 §4.4.4).
func FinishedKey13(hashFn func() hash.Hash, trafficSecret []byte) []byte {
	return hkdfExpandLabel(hashFn, trafficSecret, "finished", nil, hashFn().Size())
}

// VerifyBytes13 reconstructs the CertificateVerify signature input: 64
// spaces, the context string, a zero byte, and the transcript hash
// (RFC 8446 §4.4.3).
func VerifyBytes13(transcriptHash []byte) []byte {
	out := make([]byte, 0, 64+34+1+len(transcriptHash))
	for i := 0; i < 64; i++ {
		out = append(out, 0x20)
	}
	out = append(out, "TLS 1.3, server CertificateVerify"...)
	out = append(out, 0x00)
	out = append(out, transcriptHash...)
	return out
}

// HashForSuite13 returns the transcript/HKDF hash function RFC 8446 §B.4
// binds to a given TLS 1.3 suite (testable property §8.6: the chosen hash
// must drive both the transcript and the HKDF, never mixed).
func HashForSuite13(suite uint16) (func() hash.Hash, error) {
	switch suite {
	case 0x1301, 0x1303: // TLS_AES_128_GCM_SHA256, TLS_CHACHA20_POLY1305_SHA256
		return sha256.New, nil
	case 0x1302: // TLS_AES_256_GCM_SHA384
		return sha512.New384, nil
	default:
		return nil, qerrors.ErrIllegalParameter
	}
}
