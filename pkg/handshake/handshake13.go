package handshake

import (
	"hash"

	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
	"github.com/fenwick-labs/gotls/pkg/crypto"
	"github.com/fenwick-labs/gotls/pkg/protocol"
)

// runTLS13 completes the handshake once ServerHello signals TLS 1.3:
// EncryptedExtensions, Certificate, CertificateVerify, and server Finished
// all arrive encrypted under the server handshake traffic secret; the
// client replies with its own Finished under the client handshake traffic
// secret before both sides switch to application traffic keys.
func (h *clientHandshake) runTLS13(msgs *msgReader, sh *protocol.ServerHello) (*Session, error) {
	h.negotiatedVersion = protocol.VersionTLS13

	hashFn, err := crypto.HashForSuite13(uint16(sh.CipherSuite))
	if err != nil {
		return nil, err
	}
	h.transcript.Select(hashFn().Size() == 48)

	group, serverShare, err := protocol.KeyShareEntry(sh.Extensions)
	if err != nil {
		return nil, err
	}
	shared, err := h.keyPair.PreMasterSecret(group, serverShare)
	if err != nil {
		return nil, err
	}
	h.keyPair.Zeroize()

	earlySecret := crypto.EarlySecret13(hashFn)
	handshakeSecret := crypto.HandshakeSecret13(hashFn, earlySecret, shared)
	crypto.Zeroize(shared)

	clientHS, serverHS := crypto.HandshakeTrafficSecrets13(hashFn, handshakeSecret, h.transcript.Sum())

	params, err := protocol.Params(sh.CipherSuite)
	if err != nil {
		return nil, err
	}
	serverCipher, err := buildAEAD13(sh.CipherSuite, hashFn, serverHS, params.KeyLen)
	if err != nil {
		return nil, err
	}
	h.reader.SetCipher(serverCipher)

	ee, err := h.nextAs(msgs, constants.HandshakeTypeEncryptedExtensions)
	if err != nil {
		return nil, err
	}
	if _, err := protocol.DecodeEncryptedExtensions(protocol.NewDecoder(ee.Body)); err != nil {
		return nil, err
	}
	h.transcript.Update(ee.Raw)

	certMsg, err := h.nextAs(msgs, constants.HandshakeTypeCertificate)
	if err != nil {
		return nil, err
	}
	cert, err := protocol.DecodeCertificate13(protocol.NewDecoder(certMsg.Body))
	if err != nil {
		return nil, err
	}
	if err := h.verifyCertificateChain(cert); err != nil {
		return nil, err
	}
	h.transcript.Update(certMsg.Raw)

	cvMsg, err := h.nextAs(msgs, constants.HandshakeTypeCertificateVerify)
	if err != nil {
		return nil, err
	}
	cv, err := protocol.DecodeCertificateVerify(protocol.NewDecoder(cvMsg.Body))
	if err != nil {
		return nil, err
	}
	// The CertificateVerify signature covers the transcript up through
	// Certificate only — verify before folding this message itself in.
	verifyInput := crypto.VerifyBytes13(h.transcript.Sum())
	if err := crypto.VerifySignature(cv.SignatureScheme, h.leafKey, verifyInput, cv.Signature); err != nil {
		return nil, err
	}
	h.signatureScheme = cv.SignatureScheme
	h.transcript.Update(cvMsg.Raw)

	// Likewise server Finished's verify_data covers the transcript up
	// through CertificateVerify only.
	serverFinishedTranscript := h.transcript.Sum()
	finMsg, err := h.nextAs(msgs, constants.HandshakeTypeFinished)
	if err != nil {
		return nil, err
	}
	serverFinKey := crypto.FinishedKey13(hashFn, serverHS)
	wantFinished := hmacSum(hashFn, serverFinKey, serverFinishedTranscript)
	if !crypto.ConstantTimeCompare(finMsg.Body, wantFinished) {
		return nil, qerrors.ErrDecryptFailure
	}
	h.transcript.Update(finMsg.Raw)

	masterSecret := crypto.MasterSecret13(hashFn, handshakeSecret)
	clientAP, serverAP := crypto.ApplicationTrafficSecrets13(hashFn, masterSecret, h.transcript.Sum())

	clientFinKey := crypto.FinishedKey13(hashFn, clientHS)
	clientFinished := hmacSum(hashFn, clientFinKey, h.transcript.Sum())

	clientCipher, err := buildAEAD13(sh.CipherSuite, hashFn, clientHS, params.KeyLen)
	if err != nil {
		return nil, err
	}
	// RFC 8446 §5: a compatibility ChangeCipherSpec, sent in the clear,
	// immediately before the client's first encrypted handshake record, so
	// middleboxes expecting a TLS 1.2-shaped flow don't choke on it.
	if err := h.writer.WriteRecord(constants.ContentTypeChangeCipherSpec, []byte{1}); err != nil {
		return nil, err
	}

	h.writer.SetCipher(clientCipher)
	if err := h.writeHandshakeMessage(func(b *protocol.Buffer) error {
		return protocol.EncodeFinished(b, clientFinished)
	}); err != nil {
		return nil, err
	}

	finalServerCipher, err := buildAEAD13(sh.CipherSuite, hashFn, serverAP, params.KeyLen)
	if err != nil {
		return nil, err
	}
	finalClientCipher, err := buildAEAD13(sh.CipherSuite, hashFn, clientAP, params.KeyLen)
	if err != nil {
		return nil, err
	}
	h.reader.SetCipher(finalServerCipher)
	h.writer.SetCipher(finalClientCipher)

	crypto.ZeroizeMultiple(handshakeSecret, clientHS, serverHS, masterSecret, clientAP, serverAP)

	return &Session{Reader: h.reader, Writer: h.writer, Version: h.negotiatedVersion, Suite: sh.CipherSuite, Group: group}, nil
}

// nextAs reads the next handshake message and asserts its type, skipping
// over (and discarding) any NewSessionTicket that arrives first. It does
// not touch the transcript — callers fold a message in once they've used
// whatever transcript state its own verification needs.
func (h *clientHandshake) nextAs(msgs *msgReader, want constants.HandshakeType) (message, error) {
	msg, err := msgs.next()
	if err != nil {
		return message{}, err
	}
	if msg.Type == constants.HandshakeTypeNewSessionTicket {
		if err := protocol.SkipNewSessionTicket(protocol.NewDecoder(msg.Body)); err != nil {
			return message{}, err
		}
		return h.nextAs(msgs, want)
	}
	if msg.Type != want {
		return message{}, qerrors.ErrUnexpectedMessage
	}
	return msg, nil
}

func buildAEAD13(suite constants.CipherSuite, hashFn func() hash.Hash, secret []byte, keyLen int) (*crypto.Cipher, error) {
	key, iv := crypto.TrafficKeyIV13(hashFn, secret, keyLen)
	return crypto.InitAEAD13(suite, key, iv)
}
