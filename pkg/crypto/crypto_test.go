package crypto

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"testing"

	"github.com/fenwick-labs/gotls/internal/constants"
)

func mustRandom(t *testing.T, n int) []byte {
	t.Helper()
	b, err := SecureRandomBytes(n)
	if err != nil {
		t.Fatalf("SecureRandomBytes(%d): %v", n, err)
	}
	return b
}

// --- Cipher: AEAD13 ---

func TestAEAD13SealOpenRoundTrip(t *testing.T) {
	key := mustRandom(t, constants.AESGCMKeySize128)
	iv := mustRandom(t, constants.AESGCMNonceSize)

	sealer, err := InitAEAD13(constants.SuiteAES128GCMSHA256, key, iv)
	if err != nil {
		t.Fatalf("InitAEAD13: %v", err)
	}
	opener, err := InitAEAD13(constants.SuiteAES128GCMSHA256, key, iv)
	if err != nil {
		t.Fatalf("InitAEAD13: %v", err)
	}

	plaintext := []byte("application data over TLS 1.3")
	record, err := sealer.Seal(3, constants.ContentTypeApplicationData, plaintext, SystemRandom)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	ct, got, err := opener.Open(3, constants.ContentTypeApplicationData, record)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ct != constants.ContentTypeApplicationData {
		t.Errorf("recovered content type = %v, want application_data", ct)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Open() = %q, want %q", got, plaintext)
	}
}

func TestAEAD13WrongSequenceFails(t *testing.T) {
	key := mustRandom(t, constants.AESGCMKeySize128)
	iv := mustRandom(t, constants.AESGCMNonceSize)
	cipher, err := InitAEAD13(constants.SuiteAES128GCMSHA256, key, iv)
	if err != nil {
		t.Fatalf("InitAEAD13: %v", err)
	}
	record, err := cipher.Seal(0, constants.ContentTypeApplicationData, []byte("hello"), SystemRandom)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if _, _, err := cipher.Open(1, constants.ContentTypeApplicationData, record); err == nil {
		t.Error("Open with wrong sequence number should fail")
	}
}

func TestAEAD13TamperedCiphertextFails(t *testing.T) {
	key := mustRandom(t, constants.AESGCMKeySize128)
	iv := mustRandom(t, constants.AESGCMNonceSize)
	cipher, err := InitAEAD13(constants.SuiteAES128GCMSHA256, key, iv)
	if err != nil {
		t.Fatalf("InitAEAD13: %v", err)
	}
	record, err := cipher.Seal(0, constants.ContentTypeApplicationData, []byte("hello"), SystemRandom)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	record[0] ^= 0xff
	if _, _, err := cipher.Open(0, constants.ContentTypeApplicationData, record); err == nil {
		t.Error("Open with tampered ciphertext should fail")
	}
}

func TestAEAD13ChaCha20Poly1305RoundTrip(t *testing.T) {
	key := mustRandom(t, constants.ChaCha20KeySize)
	iv := mustRandom(t, constants.ChaCha20NonceSize)
	cipher, err := InitAEAD13(constants.SuiteChaCha20Poly1305SHA256, key, iv)
	if err != nil {
		t.Fatalf("InitAEAD13: %v", err)
	}
	plaintext := []byte("chacha20-poly1305 payload")
	record, err := cipher.Seal(5, constants.ContentTypeApplicationData, plaintext, SystemRandom)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	_, got, err := cipher.Open(5, constants.ContentTypeApplicationData, record)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Open() = %q, want %q", got, plaintext)
	}
}

// --- Cipher: AEAD12 ---

func TestAEAD12SealOpenRoundTrip(t *testing.T) {
	writeKey := mustRandom(t, constants.AESGCMKeySize128)
	salt := mustRandom(t, 4)
	cipher, err := InitAEAD12(constants.SuiteECDHE_RSA_AES128_GCM_SHA256, writeKey, salt)
	if err != nil {
		t.Fatalf("InitAEAD12: %v", err)
	}
	plaintext := []byte("tls 1.2 aead record")
	record, err := cipher.Seal(7, constants.ContentTypeApplicationData, plaintext, SystemRandom)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	ct, got, err := cipher.Open(7, constants.ContentTypeApplicationData, record)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ct != constants.ContentTypeApplicationData {
		t.Errorf("content type = %v, want application_data", ct)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Open() = %q, want %q", got, plaintext)
	}
}

// --- Cipher: CBC12 ---

func TestCBC12SealOpenRoundTrip(t *testing.T) {
	macKey := mustRandom(t, constants.HMACSHA1Size)
	writeKey := mustRandom(t, constants.CBCKeySize128)
	sealer, err := InitCBC12(constants.SuiteRSA_AES128_CBC_SHA, macKey, writeKey)
	if err != nil {
		t.Fatalf("InitCBC12: %v", err)
	}
	plaintext := []byte("cbc-hmac legacy record")
	record, err := sealer.Seal(0, constants.ContentTypeApplicationData, plaintext, SystemRandom)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	opener, err := InitCBC12(constants.SuiteRSA_AES128_CBC_SHA, macKey, writeKey)
	if err != nil {
		t.Fatalf("InitCBC12: %v", err)
	}
	ct, got, err := opener.Open(0, constants.ContentTypeApplicationData, record)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ct != constants.ContentTypeApplicationData {
		t.Errorf("content type = %v, want application_data", ct)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("Open() = %q, want %q", got, plaintext)
	}
}

func TestCBC12BadMACFails(t *testing.T) {
	macKey := mustRandom(t, constants.HMACSHA1Size)
	writeKey := mustRandom(t, constants.CBCKeySize128)
	cipher, err := InitCBC12(constants.SuiteRSA_AES128_CBC_SHA, macKey, writeKey)
	if err != nil {
		t.Fatalf("InitCBC12: %v", err)
	}
	record, err := cipher.Seal(0, constants.ContentTypeApplicationData, []byte("some plaintext"), SystemRandom)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	record[len(record)-1] ^= 0x01
	if _, _, err := cipher.Open(0, constants.ContentTypeApplicationData, record); err == nil {
		t.Error("Open with corrupted MAC should fail")
	}
}

func TestCBC12EmptyPayloadFails(t *testing.T) {
	macKey := mustRandom(t, constants.HMACSHA1Size)
	writeKey := mustRandom(t, constants.CBCKeySize128)
	cipher, err := InitCBC12(constants.SuiteRSA_AES128_CBC_SHA, macKey, writeKey)
	if err != nil {
		t.Fatalf("InitCBC12: %v", err)
	}
	if _, _, err := cipher.Open(0, constants.ContentTypeApplicationData, nil); err == nil {
		t.Error("Open of an empty payload should fail")
	}
}

func TestCipherOverheadMatchesSealGrowth(t *testing.T) {
	macKey := mustRandom(t, constants.HMACSHA1Size)
	writeKey := mustRandom(t, constants.CBCKeySize128)
	cipher, err := InitCBC12(constants.SuiteRSA_AES128_CBC_SHA, macKey, writeKey)
	if err != nil {
		t.Fatalf("InitCBC12: %v", err)
	}
	plaintext := make([]byte, 100)
	record, err := cipher.Seal(0, constants.ContentTypeApplicationData, plaintext, SystemRandom)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if got, max := len(record)-len(plaintext), cipher.Overhead(); got > max {
		t.Errorf("actual overhead %d exceeds Overhead() budget %d", got, max)
	}
}

// --- KDF ---

func TestPRF12Deterministic(t *testing.T) {
	secret := mustRandom(t, 48)
	seed := mustRandom(t, 64)
	a := PRF12(sha256.New, secret, "master secret", seed, 48)
	b := PRF12(sha256.New, secret, "master secret", seed, 48)
	if !bytes.Equal(a, b) {
		t.Error("PRF12 is not deterministic for identical inputs")
	}
	if len(a) != 48 {
		t.Errorf("PRF12 output length = %d, want 48", len(a))
	}
}

func TestPRF12DifferentLabelsDiffer(t *testing.T) {
	secret := mustRandom(t, 48)
	seed := mustRandom(t, 64)
	a := PRF12(sha256.New, secret, "client finished", seed, 12)
	b := PRF12(sha256.New, secret, "server finished", seed, 12)
	if bytes.Equal(a, b) {
		t.Error("PRF12 with different labels produced identical output")
	}
}

func TestHKDFExpandLabelLength(t *testing.T) {
	secret := mustRandom(t, 32)
	for _, n := range []int{16, 32, 48} {
		out := HKDFExpandLabel(sha256.New, secret, "key", nil, n)
		if len(out) != n {
			t.Errorf("HKDFExpandLabel(length=%d) produced %d bytes", n, len(out))
		}
	}
}

func TestHKDFExpandLabelDeterministic(t *testing.T) {
	secret := mustRandom(t, 32)
	a := HKDFExpandLabel(sha256.New, secret, "traffic upd", []byte("ctx"), 32)
	b := HKDFExpandLabel(sha256.New, secret, "traffic upd", []byte("ctx"), 32)
	if !bytes.Equal(a, b) {
		t.Error("HKDFExpandLabel is not deterministic")
	}
}

func TestHKDFExtractLength(t *testing.T) {
	out := HKDFExtract(sha256.New, mustRandom(t, 32), mustRandom(t, 32))
	if len(out) != sha256.Size {
		t.Errorf("HKDFExtract output length = %d, want %d", len(out), sha256.Size)
	}
}

// --- Transcript ---

func TestTranscriptSelectChangesHashFamily(t *testing.T) {
	tr := NewTranscript()
	tr.Update([]byte("client hello"))
	tr.Update([]byte("server hello"))

	sum256 := tr.Sum()
	if len(sum256) != sha256.Size {
		t.Errorf("unselected transcript sum length = %d, want %d (SHA-256 default)", len(sum256), sha256.Size)
	}

	tr.Select(true)
	sum384 := tr.Sum()
	if len(sum384) != sha512.Size384 {
		t.Errorf("selected(384) transcript sum length = %d, want %d", len(sum384), sha512.Size384)
	}
}

func TestTranscriptSumDoesNotDisturbState(t *testing.T) {
	tr := NewTranscript()
	tr.Update([]byte("message one"))
	first := tr.Sum()
	second := tr.Sum()
	if !bytes.Equal(first, second) {
		t.Error("repeated Sum() calls without Update should be identical")
	}
	tr.Update([]byte("message two"))
	third := tr.Sum()
	if bytes.Equal(first, third) {
		t.Error("Sum() after a further Update should change")
	}
}

func TestTranscriptOrderMatters(t *testing.T) {
	a := NewTranscript()
	a.Update([]byte("first"))
	a.Update([]byte("second"))

	b := NewTranscript()
	b.Update([]byte("second"))
	b.Update([]byte("first"))

	if bytes.Equal(a.Sum(), b.Sum()) {
		t.Error("transcript hash should depend on message order")
	}
}

func TestMasterSecret12Deterministic(t *testing.T) {
	preMaster := mustRandom(t, 48)
	clientRandom := mustRandom(t, 32)
	serverRandom := mustRandom(t, 32)
	a := MasterSecret12(preMaster, clientRandom, serverRandom)
	b := MasterSecret12(preMaster, clientRandom, serverRandom)
	if !bytes.Equal(a, b) {
		t.Error("MasterSecret12 is not deterministic")
	}
	if len(a) != 48 {
		t.Errorf("master secret length = %d, want 48", len(a))
	}
}

func TestHashForSuite13(t *testing.T) {
	tests := []struct {
		suite    uint16
		wantSize int
	}{
		{0x1301, sha256.Size},
		{0x1303, sha256.Size},
		{0x1302, sha512.Size384},
	}
	for _, tt := range tests {
		h, err := HashForSuite13(tt.suite)
		if err != nil {
			t.Fatalf("HashForSuite13(%#x): %v", tt.suite, err)
		}
		if got := h().Size(); got != tt.wantSize {
			t.Errorf("HashForSuite13(%#x) hash size = %d, want %d", tt.suite, got, tt.wantSize)
		}
	}
	if _, err := HashForSuite13(0xffff); err == nil {
		t.Error("HashForSuite13 with unknown suite should error")
	}
}

func TestTLS13KeyScheduleChaining(t *testing.T) {
	hashFn := sha256.New
	early := EarlySecret13(hashFn)
	sharedSecret := mustRandom(t, 32)
	handshakeSecret := HandshakeSecret13(hashFn, early, sharedSecret)
	master := MasterSecret13(hashFn, handshakeSecret)

	if len(early) != sha256.Size || len(handshakeSecret) != sha256.Size || len(master) != sha256.Size {
		t.Fatal("key schedule secrets must be hash-length")
	}

	transcriptHash := mustRandom(t, sha256.Size)
	clientHS, serverHS := HandshakeTrafficSecrets13(hashFn, handshakeSecret, transcriptHash)
	if bytes.Equal(clientHS, serverHS) {
		t.Error("client and server handshake traffic secrets must differ")
	}

	key, iv := TrafficKeyIV13(hashFn, clientHS, constants.AESGCMKeySize128)
	if len(key) != constants.AESGCMKeySize128 {
		t.Errorf("traffic key length = %d, want %d", len(key), constants.AESGCMKeySize128)
	}
	if len(iv) != 12 {
		t.Errorf("traffic iv length = %d, want 12", len(iv))
	}

	finKey := FinishedKey13(hashFn, clientHS)
	if len(finKey) != sha256.Size {
		t.Errorf("FinishedKey13 length = %d, want %d", len(finKey), sha256.Size)
	}
}

func TestVerifyBytes13Shape(t *testing.T) {
	transcriptHash := mustRandom(t, sha256.Size)
	out := VerifyBytes13(transcriptHash)
	for i := 0; i < 64; i++ {
		if out[i] != 0x20 {
			t.Fatalf("VerifyBytes13 byte %d = %#x, want 0x20 padding", i, out[i])
		}
	}
	if !bytes.HasSuffix(out, transcriptHash) {
		t.Error("VerifyBytes13 must end with the transcript hash")
	}
}

// --- KeyPair / key exchange ---

func TestNewKeyPairRejectsWrongSeedSize(t *testing.T) {
	if _, err := NewKeyPair(make([]byte, constants.HandshakeSeedSize-1)); err == nil {
		t.Error("NewKeyPair should reject a short seed")
	}
}

func TestNewKeyPairDeterministic(t *testing.T) {
	seed := mustRandom(t, constants.HandshakeSeedSize)
	a, err := NewKeyPair(seed)
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	b, err := NewKeyPair(seed)
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	for _, group := range []constants.NamedGroup{
		constants.GroupX25519, constants.GroupSecp256r1, constants.GroupSecp384r1, constants.GroupX25519Kyber768,
	} {
		pa, err := a.PublicKey(group)
		if err != nil {
			t.Fatalf("PublicKey(%v): %v", group, err)
		}
		pb, err := b.PublicKey(group)
		if err != nil {
			t.Fatalf("PublicKey(%v): %v", group, err)
		}
		if !bytes.Equal(pa, pb) {
			t.Errorf("group %v: same seed produced different public keys", group)
		}
	}
}

func TestX25519SharedSecretAgreement(t *testing.T) {
	seedA := mustRandom(t, constants.HandshakeSeedSize)
	seedB := mustRandom(t, constants.HandshakeSeedSize)
	a, err := NewKeyPair(seedA)
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	b, err := NewKeyPair(seedB)
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	pubA, err := a.PublicKey(constants.GroupX25519)
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	pubB, err := b.PublicKey(constants.GroupX25519)
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	secretFromA, err := a.PreMasterSecret(constants.GroupX25519, pubB)
	if err != nil {
		t.Fatalf("PreMasterSecret (a): %v", err)
	}
	secretFromB, err := b.PreMasterSecret(constants.GroupX25519, pubA)
	if err != nil {
		t.Fatalf("PreMasterSecret (b): %v", err)
	}
	if !bytes.Equal(secretFromA, secretFromB) {
		t.Error("X25519 key exchange did not agree on a shared secret")
	}
}

func TestSecp256r1AndSecp384r1Agreement(t *testing.T) {
	for _, group := range []constants.NamedGroup{constants.GroupSecp256r1, constants.GroupSecp384r1} {
		a, err := NewKeyPair(mustRandom(t, constants.HandshakeSeedSize))
		if err != nil {
			t.Fatalf("NewKeyPair: %v", err)
		}
		b, err := NewKeyPair(mustRandom(t, constants.HandshakeSeedSize))
		if err != nil {
			t.Fatalf("NewKeyPair: %v", err)
		}
		pubA, err := a.PublicKey(group)
		if err != nil {
			t.Fatalf("PublicKey(%v): %v", group, err)
		}
		pubB, err := b.PublicKey(group)
		if err != nil {
			t.Fatalf("PublicKey(%v): %v", group, err)
		}
		secretA, err := a.PreMasterSecret(group, pubB)
		if err != nil {
			t.Fatalf("PreMasterSecret(%v): %v", group, err)
		}
		secretB, err := b.PreMasterSecret(group, pubA)
		if err != nil {
			t.Fatalf("PreMasterSecret(%v): %v", group, err)
		}
		if !bytes.Equal(secretA, secretB) {
			t.Errorf("group %v: key exchange did not agree", group)
		}
	}
}

func TestHybridKeyExchangeAgreement(t *testing.T) {
	client, err := NewKeyPair(mustRandom(t, constants.HandshakeSeedSize))
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	server, err := NewKeyPair(mustRandom(t, constants.HandshakeSeedSize))
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}

	clientShare := client.HybridPublicKey()
	x25519Half := clientShare[:constants.X25519PublicKeySize]
	kyberPub := clientShare[constants.X25519PublicKeySize:]

	ciphertext, kemShared, err := kyber768Encapsulate(kyberPub)
	if err != nil {
		t.Fatalf("kyber768Encapsulate: %v", err)
	}
	serverX25519Pub, err := server.PublicKey(constants.GroupX25519)
	if err != nil {
		t.Fatalf("PublicKey: %v", err)
	}
	xShared, err := server.PreMasterSecret(constants.GroupX25519, x25519Half)
	if err != nil {
		t.Fatalf("server x25519 PreMasterSecret: %v", err)
	}
	wantClientSecret := append(append([]byte{}, xShared...), kemShared...)

	serverShare := append(append([]byte{}, serverX25519Pub...), ciphertext...)
	clientSecret, err := client.PreMasterSecret(constants.GroupX25519Kyber768, serverShare)
	if err != nil {
		t.Fatalf("HybridClientShare: %v", err)
	}
	if !bytes.Equal(clientSecret, wantClientSecret) {
		t.Error("hybrid key exchange did not agree on a shared secret")
	}
}

func TestPreMasterSecretRejectsWrongLengthShare(t *testing.T) {
	kp, err := NewKeyPair(mustRandom(t, constants.HandshakeSeedSize))
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	if _, err := kp.PreMasterSecret(constants.GroupX25519, make([]byte, constants.X25519PublicKeySize-1)); err == nil {
		t.Error("PreMasterSecret should reject a short X25519 share")
	}
	if _, err := kp.PreMasterSecret(constants.GroupX25519Kyber768, make([]byte, 10)); err == nil {
		t.Error("PreMasterSecret should reject a short hybrid share")
	}
}

func TestKeyPairZeroizeLeavesNoUsablePrivateState(t *testing.T) {
	kp, err := NewKeyPair(mustRandom(t, constants.HandshakeSeedSize))
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	kp.Zeroize()
	defer func() {
		if recover() == nil {
			t.Error("operating on a zeroized KeyPair should panic (nil private key dereference)")
		}
	}()
	_, _ = kp.PublicKey(constants.GroupX25519)
}

func TestPairwiseConsistencyCheck(t *testing.T) {
	kp, err := NewKeyPair(mustRandom(t, constants.HandshakeSeedSize))
	if err != nil {
		t.Fatalf("NewKeyPair: %v", err)
	}
	if err := PairwiseConsistencyCheck(kp); err != nil {
		t.Errorf("PairwiseConsistencyCheck failed on a freshly generated key pair: %v", err)
	}
}

// --- RSA key transport ---

func TestRSAPreMasterLegacyVersionPrefix(t *testing.T) {
	pm, err := NewRSAPreMaster(SystemRandom)
	if err != nil {
		t.Fatalf("NewRSAPreMaster: %v", err)
	}
	if len(pm) != constants.RSAPreMasterSize {
		t.Fatalf("pre-master length = %d, want %d", len(pm), constants.RSAPreMasterSize)
	}
	if pm[0] != 0x03 || pm[1] != 0x03 {
		t.Errorf("pre-master legacy version = %02x%02x, want 0303", pm[0], pm[1])
	}
}

func TestEncryptRSAPreMasterRejectsWrongLength(t *testing.T) {
	// A nil *rsa.PublicKey is fine here: the length check must happen
	// before the key is ever touched.
	if _, err := EncryptRSAPreMaster(nil, make([]byte, constants.RSAPreMasterSize-1)); err == nil {
		t.Error("EncryptRSAPreMaster should reject a wrong-length pre-master")
	}
}

// --- Random / constant-time helpers ---

func TestConstantTimeCompare(t *testing.T) {
	a := []byte("equal-length-value")
	b := append([]byte{}, a...)
	if !ConstantTimeCompare(a, b) {
		t.Error("ConstantTimeCompare should report equal slices as equal")
	}
	b[0] ^= 0xff
	if ConstantTimeCompare(a, b) {
		t.Error("ConstantTimeCompare should report differing slices as unequal")
	}
	if ConstantTimeCompare(a, a[:len(a)-1]) {
		t.Error("ConstantTimeCompare should report different-length slices as unequal")
	}
}

func TestZeroize(t *testing.T) {
	b := mustRandom(t, 32)
	Zeroize(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("Zeroize left non-zero byte at %d", i)
		}
	}
}

func TestSecureRandomBytesUnique(t *testing.T) {
	a := mustRandom(t, 32)
	b := mustRandom(t, 32)
	if bytes.Equal(a, b) {
		t.Error("two independent SecureRandomBytes calls produced identical output")
	}
}

// --- Scratch buffer ---

func TestScratchBufferGrows(t *testing.T) {
	s := NewScratchBuffer(16)
	small := s.Bytes(8)
	if len(small) != 8 {
		t.Fatalf("Bytes(8) length = %d, want 8", len(small))
	}
	big := s.Bytes(64)
	if len(big) != 64 {
		t.Fatalf("Bytes(64) length = %d, want 64", len(big))
	}
}

func TestScratchBufferZero(t *testing.T) {
	s := NewScratchBuffer(16)
	buf := s.Bytes(16)
	copy(buf, mustRandom(t, 16))
	s.Zero()
	for i, v := range s.Bytes(16) {
		if v != 0 {
			t.Fatalf("Zero() left non-zero byte at %d", i)
		}
	}
}
