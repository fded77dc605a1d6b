// Package fuzz provides fuzz tests for security-critical parsing functions:
// anything that consumes bytes straight off the wire before the handshake
// has established trust in the peer.
//
// Run fuzz tests with:
//
//	go test -fuzz=FuzzDecodeServerHello -fuzztime=30s ./test/fuzz/
//	go test -fuzz=FuzzDecodeCertificate12 -fuzztime=30s ./test/fuzz/
//	go test -fuzz=FuzzAEADOpen -fuzztime=30s ./test/fuzz/
//
// Run all fuzz tests sequentially:
//
//	go test -fuzz=Fuzz -fuzztime=10s ./test/fuzz/
package fuzz

import (
	"crypto/sha256"
	"testing"

	"github.com/fenwick-labs/gotls/internal/constants"
	"github.com/fenwick-labs/gotls/pkg/crypto"
	"github.com/fenwick-labs/gotls/pkg/protocol"
)

func seed(n int) []byte {
	s := make([]byte, n)
	_ = crypto.SecureRandom(s)
	return s
}

// FuzzDecodeServerHello fuzzes the ServerHello decoder, the first untrusted
// message the client parses after sending ClientHello.
func FuzzDecodeServerHello(f *testing.F) {
	valid := protocol.NewBuffer(make([]byte, 0, 128))
	_ = valid.WriteBytes(protocol.VersionTLS12.Bytes())
	_ = valid.WriteBytes(seed(constants.ServerRandomSize))
	_ = valid.WriteVector8(nil)
	_ = valid.WriteU16(uint16(constants.SuiteECDHE_RSA_AES128_GCM_SHA256))
	_ = valid.WriteU8(0)
	_ = valid.WriteVector16(nil)
	f.Add(valid.Bytes())

	f.Add([]byte{})
	f.Add([]byte{0x03, 0x03})
	f.Add(make([]byte, 34))
	f.Add(make([]byte, 2+constants.ServerRandomSize+1+2+1))

	f.Fuzz(func(t *testing.T, data []byte) {
		sh, err := protocol.DecodeServerHello(protocol.NewDecoder(data))
		if err != nil {
			return
		}
		if sh == nil {
			t.Fatal("DecodeServerHello returned nil, nil")
		}
	})
}

// FuzzDecodeCertificate12 fuzzes the TLS 1.2 Certificate message decoder,
// which walks a nested length-prefixed structure over attacker-controlled
// bytes.
func FuzzDecodeCertificate12(f *testing.F) {
	valid := protocol.NewBuffer(make([]byte, 0, 64))
	listOffset, _ := valid.Length24Placeholder()
	_ = valid.WriteVector24([]byte("not-a-real-cert"))
	valid.PatchU24(listOffset)
	f.Add(valid.Bytes())

	f.Add([]byte{})
	f.Add([]byte{0, 0, 0})
	f.Add([]byte{0xff, 0xff, 0xff})
	f.Add(make([]byte, 3))

	f.Fuzz(func(t *testing.T, data []byte) {
		msg, err := protocol.DecodeCertificate12(protocol.NewDecoder(data))
		if err != nil {
			return
		}
		if msg == nil {
			t.Fatal("DecodeCertificate12 returned nil, nil")
		}
	})
}

// FuzzDecodeServerKeyExchange fuzzes the ECDHE ServerKeyExchange decoder,
// which carries the server's signature over attacker-influenced bytes.
func FuzzDecodeServerKeyExchange(f *testing.F) {
	valid := protocol.NewBuffer(make([]byte, 0, 256))
	_ = valid.WriteU8(3) // named_curve
	_ = valid.WriteU16(uint16(constants.GroupX25519))
	_ = valid.WriteVector8(seed(32))
	_ = valid.WriteU16(uint16(constants.SigSchemeECDSASecp256r1))
	_ = valid.WriteVector16(seed(70))
	f.Add(valid.Bytes())

	f.Add([]byte{})
	f.Add([]byte{0, 0, 0})
	f.Add(make([]byte, 5))

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = protocol.DecodeServerKeyExchange(protocol.NewDecoder(data))
	})
}

// FuzzParseExtensions fuzzes the extension-block splitter shared by
// ServerHello and EncryptedExtensions parsing.
func FuzzParseExtensions(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0x00, 0x2b, 0x00, 0x02, 0x03, 0x04})
	f.Add([]byte{0xff, 0xff, 0xff, 0xff})
	f.Add(make([]byte, 3))

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = protocol.ParseExtensions(data)
	})
}

// FuzzDecodeAlert fuzzes the 2-byte alert decoder.
func FuzzDecodeAlert(f *testing.F) {
	f.Add([]byte{byte(constants.AlertLevelWarning), byte(constants.AlertCloseNotify)})
	f.Add([]byte{byte(constants.AlertLevelFatal), byte(constants.AlertBadRecordMac)})
	f.Add([]byte{})
	f.Add([]byte{0x01})
	f.Add([]byte{0x01, 0x02, 0x03})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = protocol.DecodeAlert(data)
	})
}

// FuzzAEADOpen fuzzes the TLS 1.3 AEAD decryption path with arbitrary
// ciphertext: the one place record-layer bytes straight off the wire reach
// a decrypt call before any MAC has been checked by anything else.
func FuzzAEADOpen(f *testing.F) {
	key := seed(constants.AESGCMKeySize128)
	iv := seed(constants.AESGCMNonceSize)
	sealer, err := crypto.InitAEAD13(constants.SuiteAES128GCMSHA256, key, iv)
	if err != nil {
		f.Fatal(err)
	}
	valid, err := sealer.Seal(0, constants.ContentTypeApplicationData, []byte("seed plaintext"), crypto.SystemRandom)
	if err != nil {
		f.Fatal(err)
	}
	f.Add(valid)

	f.Add([]byte{})
	f.Add(make([]byte, constants.AEADTagSize-1))
	f.Add(make([]byte, constants.AEADTagSize))
	f.Add(make([]byte, constants.AEADTagSize+64))

	f.Fuzz(func(t *testing.T, data []byte) {
		opener, _ := crypto.InitAEAD13(constants.SuiteAES128GCMSHA256, key, iv)
		_, _, _ = opener.Open(0, constants.ContentTypeApplicationData, data)
	})
}

// FuzzAEADOpenChaCha20 mirrors FuzzAEADOpen for the ChaCha20-Poly1305 suite.
func FuzzAEADOpenChaCha20(f *testing.F) {
	key := seed(constants.ChaCha20KeySize)
	iv := seed(constants.ChaCha20NonceSize)
	sealer, err := crypto.InitAEAD13(constants.SuiteChaCha20Poly1305SHA256, key, iv)
	if err != nil {
		f.Fatal(err)
	}
	valid, err := sealer.Seal(0, constants.ContentTypeApplicationData, []byte("seed plaintext"), crypto.SystemRandom)
	if err != nil {
		f.Fatal(err)
	}
	f.Add(valid)
	f.Add([]byte{})
	f.Add(make([]byte, constants.AEADTagSize))

	f.Fuzz(func(t *testing.T, data []byte) {
		opener, _ := crypto.InitAEAD13(constants.SuiteChaCha20Poly1305SHA256, key, iv)
		_, _, _ = opener.Open(0, constants.ContentTypeApplicationData, data)
	})
}

// FuzzCBCOpen fuzzes the TLS 1.2 CBC-HMAC decrypt path: padding removal and
// MAC check both run over attacker-controlled bytes.
func FuzzCBCOpen(f *testing.F) {
	macKey := seed(constants.HMACSHA1Size)
	writeKey := seed(constants.CBCKeySize128)
	sealer, err := crypto.InitCBC12(constants.SuiteRSA_AES128_CBC_SHA, macKey, writeKey)
	if err != nil {
		f.Fatal(err)
	}
	valid, err := sealer.Seal(0, constants.ContentTypeApplicationData, []byte("seed plaintext"), crypto.SystemRandom)
	if err != nil {
		f.Fatal(err)
	}
	f.Add(valid)
	f.Add([]byte{})
	f.Add(make([]byte, constants.CBCIVSize))
	f.Add(make([]byte, constants.CBCIVSize+constants.HMACSHA1Size))

	f.Fuzz(func(t *testing.T, data []byte) {
		opener, _ := crypto.InitCBC12(constants.SuiteRSA_AES128_CBC_SHA, macKey, writeKey)
		_, _, _ = opener.Open(0, constants.ContentTypeApplicationData, data)
	})
}

// FuzzPreMasterSecret fuzzes the X25519 share parser reached from a
// ServerKeyExchange/hybrid key_share an attacker fully controls.
func FuzzPreMasterSecret(f *testing.F) {
	kp, err := crypto.NewKeyPair(seed(constants.HandshakeSeedSize))
	if err != nil {
		f.Fatal(err)
	}
	valid, err := kp.PublicKey(constants.GroupX25519)
	if err != nil {
		f.Fatal(err)
	}
	f.Add(valid)
	f.Add([]byte{})
	f.Add(make([]byte, constants.X25519PublicKeySize-1))
	f.Add(make([]byte, constants.X25519PublicKeySize+1))

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = kp.PreMasterSecret(constants.GroupX25519, data)
	})
}

// FuzzHKDFExpandLabel fuzzes the TLS 1.3 key schedule's label expansion
// with arbitrary label/context strings, which a malformed transcript could
// otherwise feed unbounded-length data into.
func FuzzHKDFExpandLabel(f *testing.F) {
	f.Add("key", []byte{})
	f.Add("", []byte("ctx"))
	f.Add("traffic upd", make([]byte, 200))

	f.Fuzz(func(t *testing.T, label string, context []byte) {
		secret := seed(32)
		out := crypto.HKDFExpandLabel(sha256.New, secret, label, context, 32)
		if len(out) != 32 {
			t.Errorf("unexpected output length: %d", len(out))
		}
	})
}
