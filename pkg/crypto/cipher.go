// cipher.go implements the record-protection cipher: TLS 1.2 AEAD and
// CBC-HMAC modes, and TLS 1.3 AEAD mode, each keyed per direction with its
// own sequence-number-derived nonce. Cipher carries a `mode` tag and
// branches in Seal/Open rather than dispatching through an interface, so
// the compiler can specialize each AEAD call inline.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
)

// Mode tags which record-protection construction a Cipher uses.
type Mode int

const (
	ModeAEAD12 Mode = iota // TLS 1.2 AEAD (explicit nonce prefix on the wire)
	ModeCBC12               // TLS 1.2 CBC-HMAC (legacy)
	ModeAEAD13              // TLS 1.3 AEAD (nonce = iv XOR seq, no wire prefix)
)

// Cipher is the per-direction record-protection state: one value is built
// for "client writes" and another for "server writes" (server-direction
// values are used only for decrypt).
type Cipher struct {
	mode  Mode
	suite constants.CipherSuite

	aead cipher.AEAD
	iv   []byte // AEAD12: 4-byte salt. AEAD13: full 12-byte IV.

	block  cipher.Block // CBC12 only
	macKey []byte       // CBC12 only
	hashFn func() hash.Hash
}

// aeadFor builds the cipher.AEAD for a suite's bulk algorithm.
func aeadFor(suite constants.CipherSuite, key []byte) (cipher.AEAD, error) {
	switch suite {
	case constants.SuiteChaCha20Poly1305SHA256:
		return chacha20poly1305.New(key)
	default:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, qerrors.NewCryptoError("aes.NewCipher", err)
		}
		return cipher.NewGCM(block)
	}
}

func aeadKeyLen(suite constants.CipherSuite) int {
	switch suite {
	case constants.SuiteAES256GCMSHA384, constants.SuiteECDHE_RSA_AES256_GCM_SHA384:
		return constants.AESGCMKeySize256
	case constants.SuiteChaCha20Poly1305SHA256:
		return constants.ChaCha20KeySize
	default:
		return constants.AESGCMKeySize128
	}
}

// InitAEAD12 builds a TLS 1.2 AEAD direction cipher from its write key and
// 4-byte implicit IV (salt), per RFC 5288/7905's key-block layout.
func InitAEAD12(suite constants.CipherSuite, writeKey, salt []byte) (*Cipher, error) {
	aead, err := aeadFor(suite, writeKey)
	if err != nil {
		return nil, err
	}
	return &Cipher{mode: ModeAEAD12, suite: suite, aead: aead, iv: append([]byte{}, salt...)}, nil
}

// InitCBC12 builds a TLS 1.2 CBC-HMAC direction cipher from its MAC key and
// write key (RFC 5246 §6.2.3.2).
func InitCBC12(suite constants.CipherSuite, macKey, writeKey []byte) (*Cipher, error) {
	block, err := aes.NewCipher(writeKey)
	if err != nil {
		return nil, qerrors.NewCryptoError("aes.NewCipher", err)
	}
	return &Cipher{
		mode:   ModeCBC12,
		suite:  suite,
		block:  block,
		macKey: append([]byte{}, macKey...),
		hashFn: sha1.New,
	}, nil
}

// InitAEAD13 builds a TLS 1.3 direction cipher from a traffic key and the
// full 12-byte derived IV (RFC 8446 §5.3).
func InitAEAD13(suite constants.CipherSuite, key, iv []byte) (*Cipher, error) {
	aead, err := aeadFor(suite, key)
	if err != nil {
		return nil, err
	}
	return &Cipher{mode: ModeAEAD13, suite: suite, aead: aead, iv: append([]byte{}, iv...)}, nil
}

func seqNonce(iv []byte, seq uint64) []byte {
	nonce := append([]byte{}, iv...)
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], seq)
	for i := 0; i < 8; i++ {
		nonce[len(nonce)-8+i] ^= seqBytes[i]
	}
	return nonce
}

// Seal encrypts plaintext for sequence number seq and returns the on-wire
// record payload (everything after the 5-byte record header).
//
// TLS 1.3 (ModeAEAD13): plaintext is suffixed with contentType before
// sealing and the outer record always advertises application_data; the
// caller is responsible for writing that outer content type.
//
// TLS 1.2 AEAD (ModeAEAD12): an explicit 8-byte nonce (the sequence number)
// is prepended to the sealed output.
//
// TLS 1.2 CBC-HMAC (ModeCBC12): MAC-then-pad-then-encrypt with a fresh
// random explicit IV prepended to the output; rnd supplies that IV.
func (c *Cipher) Seal(seq uint64, contentType constants.ContentType, plaintext []byte, rnd RandomSource) ([]byte, error) {
	switch c.mode {
	case ModeAEAD13:
		inner := append(append([]byte{}, plaintext...), byte(contentType))
		nonce := seqNonce(c.iv, seq)
		aad := recordAAD13(len(inner) + c.aead.Overhead())
		return c.aead.Seal(nil, nonce, inner, aad), nil

	case ModeAEAD12:
		var explicit [8]byte
		binary.BigEndian.PutUint64(explicit[:], seq)
		nonce := append(append([]byte{}, c.iv...), explicit[:]...)
		aad := recordAAD12(seq, contentType, len(plaintext))
		sealed := c.aead.Seal(nil, nonce, plaintext, aad)
		return append(explicit[:], sealed...), nil

	case ModeCBC12:
		return c.sealCBC(seq, contentType, plaintext, rnd)

	default:
		return nil, qerrors.ErrUnsupportedFragmentedHandshake
	}
}

// Open authenticates and decrypts a record's protected payload, returning
// the real content type (recovered from the trailing non-zero byte for
// TLS 1.3, or the caller-supplied header type for TLS 1.2) and the
// plaintext.
func (c *Cipher) Open(seq uint64, headerType constants.ContentType, payload []byte) (constants.ContentType, []byte, error) {
	switch c.mode {
	case ModeAEAD13:
		nonce := seqNonce(c.iv, seq)
		aad := recordAAD13(len(payload))
		plain, err := c.aead.Open(payload[:0], nonce, payload, aad)
		if err != nil {
			return 0, nil, qerrors.ErrBadRecordMac
		}
		// Recover the real content type: strip trailing zero padding, the
		// last non-zero byte is the content type (RFC 8446 §5.4).
		i := len(plain) - 1
		for i >= 0 && plain[i] == 0 {
			i--
		}
		if i < 0 {
			return 0, nil, qerrors.ErrUnexpectedMessage
		}
		return constants.ContentType(plain[i]), plain[:i], nil

	case ModeAEAD12:
		if len(payload) < 8+c.aead.Overhead() {
			return 0, nil, qerrors.ErrDecodeError
		}
		explicit := payload[:8]
		ciphertext := payload[8:]
		seqFromWire := binary.BigEndian.Uint64(explicit)
		nonce := append(append([]byte{}, c.iv...), explicit...)
		aad := recordAAD12(seqFromWire, headerType, len(ciphertext)-c.aead.Overhead())
		plain, err := c.aead.Open(ciphertext[:0], nonce, ciphertext, aad)
		if err != nil {
			return 0, nil, qerrors.ErrBadRecordMac
		}
		return headerType, plain, nil

	case ModeCBC12:
		return c.openCBC(seq, headerType, payload)

	default:
		return 0, nil, qerrors.ErrUnsupportedFragmentedHandshake
	}
}

// recordAAD13 builds RFC 8446 §5.2's additional data: the outer record
// header as it appears on the wire (content type is always
// application_data, version is always 0x0303).
func recordAAD13(recordLen int) []byte {
	aad := make([]byte, 5)
	aad[0] = byte(constants.ContentTypeApplicationData)
	aad[1], aad[2] = 0x03, 0x03
	binary.BigEndian.PutUint16(aad[3:], uint16(recordLen))
	return aad
}

// recordAAD12 builds RFC 5246 §6.2.3.3's additional data:
// seq_num(8) || type(1) || version(2) || length(2).
func recordAAD12(seq uint64, contentType constants.ContentType, plaintextLen int) []byte {
	aad := make([]byte, 13)
	binary.BigEndian.PutUint64(aad[0:8], seq)
	aad[8] = byte(contentType)
	aad[9], aad[10] = 0x03, 0x03
	binary.BigEndian.PutUint16(aad[11:13], uint16(plaintextLen))
	return aad
}

// sealCBC implements RFC 5246 §6.2.3.2: MAC-then-pad-then-encrypt with a
// fresh random explicit IV.
func (c *Cipher) sealCBC(seq uint64, contentType constants.ContentType, plaintext []byte, rnd RandomSource) ([]byte, error) {
	mac := hmac.New(c.hashFn, c.macKey)
	mac.Write(recordAAD12(seq, contentType, len(plaintext)))
	mac.Write(plaintext)
	tag := mac.Sum(nil)

	withMAC := append(append([]byte{}, plaintext...), tag...)

	blockSize := c.block.BlockSize()
	padLen := blockSize - (len(withMAC)+1)%blockSize
	padded := make([]byte, len(withMAC)+padLen+1)
	copy(padded, withMAC)
	for i := len(withMAC); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}

	iv := make([]byte, blockSize)
	if err := rnd.FillRandom(iv); err != nil {
		return nil, err
	}

	out := make([]byte, blockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[blockSize:], padded)
	return out, nil
}

// openCBC is sealCBC's inverse.
func (c *Cipher) openCBC(seq uint64, headerType constants.ContentType, payload []byte) (constants.ContentType, []byte, error) {
	blockSize := c.block.BlockSize()
	if len(payload) < blockSize*2 {
		return 0, nil, qerrors.ErrDecodeError
	}
	iv := payload[:blockSize]
	ciphertext := payload[blockSize:]
	if len(ciphertext)%blockSize != 0 {
		return 0, nil, qerrors.ErrDecodeError
	}

	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plain, ciphertext)

	if len(plain) == 0 {
		return 0, nil, qerrors.ErrBadRecordMac
	}
	padLen := int(plain[len(plain)-1])
	if padLen+1 > len(plain) {
		return 0, nil, qerrors.ErrBadRecordMac
	}
	unpadded := plain[:len(plain)-padLen-1]

	macSize := c.hashFn().Size()
	if len(unpadded) < macSize {
		return 0, nil, qerrors.ErrBadRecordMac
	}
	msg := unpadded[:len(unpadded)-macSize]
	gotMAC := unpadded[len(unpadded)-macSize:]

	mac := hmac.New(c.hashFn, c.macKey)
	mac.Write(recordAAD12(seq, headerType, len(msg)))
	mac.Write(msg)
	wantMAC := mac.Sum(nil)

	if !ConstantTimeCompare(gotMAC, wantMAC) {
		return 0, nil, qerrors.ErrBadRecordMac
	}
	return headerType, msg, nil
}

// Suite returns the cipher suite identifier this Cipher was built for.
func (c *Cipher) Suite() constants.CipherSuite { return c.suite }

// Overhead returns the maximum number of bytes Seal adds beyond the
// plaintext length, used to size scratch buffers.
func (c *Cipher) Overhead() int {
	switch c.mode {
	case ModeAEAD13:
		return c.aead.Overhead() + 1 // +1 for the content-type byte
	case ModeAEAD12:
		return 8 + c.aead.Overhead()
	case ModeCBC12:
		return c.block.BlockSize() /*explicit IV*/ + c.hashFn().Size() + c.block.BlockSize() /*max pad*/
	default:
		return 0
	}
}
