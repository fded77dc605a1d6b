package handshake

import (
	"crypto/rsa"

	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
	"github.com/fenwick-labs/gotls/pkg/crypto"
	"github.com/fenwick-labs/gotls/pkg/protocol"
)

// runTLS12 completes a classic RFC 5246 handshake: Certificate,
// [ServerKeyExchange], ServerHelloDone from the server; ClientKeyExchange,
// ChangeCipherSpec, Finished from the client; ChangeCipherSpec, Finished
// from the server.
func (h *clientHandshake) runTLS12(msgs *msgReader, sh *protocol.ServerHello) (*Session, error) {
	h.negotiatedVersion = protocol.VersionTLS12
	h.transcript.Select(false) // every TLS 1.2 suite this engine offers uses the SHA-256 PRF

	certMsg, err := msgs.next()
	if err != nil {
		return nil, err
	}
	if certMsg.Type != constants.HandshakeTypeCertificate {
		return nil, qerrors.ErrUnexpectedMessage
	}
	h.transcript.Update(certMsg.Raw)
	cert, err := protocol.DecodeCertificate12(protocol.NewDecoder(certMsg.Body))
	if err != nil {
		return nil, err
	}
	if err := h.verifyCertificateChain(cert); err != nil {
		return nil, err
	}

	var preMaster []byte
	var clientKeyExchange func(*protocol.Buffer) error

	if sh.CipherSuite == constants.SuiteRSA_AES128_CBC_SHA {
		rsaPub, ok := h.leafKey.(*rsa.PublicKey)
		if !ok {
			return nil, qerrors.ErrBadSignatureScheme
		}
		pm, err := crypto.NewRSAPreMaster(h.cfg.RandomSource)
		if err != nil {
			return nil, err
		}
		preMaster = pm
		encrypted, err := crypto.EncryptRSAPreMaster(rsaPub, pm)
		if err != nil {
			return nil, err
		}
		clientKeyExchange = func(b *protocol.Buffer) error {
			return protocol.EncodeClientKeyExchangeRSA(b, encrypted)
		}
	} else {
		skeMsg, err := msgs.next()
		if err != nil {
			return nil, err
		}
		if skeMsg.Type != constants.HandshakeTypeServerKeyExchange {
			return nil, qerrors.ErrUnexpectedMessage
		}
		h.transcript.Update(skeMsg.Raw)
		ske, err := protocol.DecodeServerKeyExchange(protocol.NewDecoder(skeMsg.Body))
		if err != nil {
			return nil, err
		}
		verifyInput := crypto.ServerKeyExchangeVerifyBytes(h.clientRandom[:], h.serverRandom[:], ske.Group, ske.PublicKey)
		if err := crypto.VerifySignature(ske.SignatureScheme, h.leafKey, verifyInput, ske.Signature); err != nil {
			return nil, err
		}
		h.signatureScheme = ske.SignatureScheme

		seed := make([]byte, constants.HandshakeSeedSize)
		if err := h.cfg.RandomSource.FillRandom(seed); err != nil {
			return nil, err
		}
		kp, err := crypto.NewKeyPair(seed)
		crypto.Zeroize(seed)
		if err != nil {
			return nil, err
		}
		h.keyPair = kp
		h.group = ske.Group

		clientShare, err := kp.PublicKey(ske.Group)
		if err != nil {
			return nil, err
		}
		preMaster, err = kp.PreMasterSecret(ske.Group, ske.PublicKey)
		if err != nil {
			return nil, err
		}
		clientKeyExchange = func(b *protocol.Buffer) error {
			return protocol.EncodeClientKeyExchangeECDHE(b, clientShare)
		}
	}

	doneMsg, err := msgs.next()
	if err != nil {
		return nil, err
	}
	if doneMsg.Type != constants.HandshakeTypeServerHelloDone {
		return nil, qerrors.ErrUnexpectedMessage
	}
	h.transcript.Update(doneMsg.Raw)

	if err := h.writeHandshakeMessage(clientKeyExchange); err != nil {
		return nil, err
	}
	if h.keyPair != nil {
		h.keyPair.Zeroize()
	}

	masterSecret := crypto.MasterSecret12(preMaster, h.clientRandom[:], h.serverRandom[:])
	crypto.Zeroize(preMaster)

	params, err := protocol.Params(sh.CipherSuite)
	if err != nil {
		return nil, err
	}
	clientCipher, serverCipher, err := deriveRecordCiphers12(masterSecret, h.clientRandom[:], h.serverRandom[:], sh.CipherSuite, params)
	if err != nil {
		return nil, err
	}

	clientFinishedData := crypto.Finished12(masterSecret, "client finished", h.transcript.Sum())
	if err := h.writer.WriteRecord(constants.ContentTypeChangeCipherSpec, []byte{1}); err != nil {
		return nil, err
	}
	h.writer.SetCipher(clientCipher)
	if err := h.writeHandshakeMessage(func(b *protocol.Buffer) error {
		return protocol.EncodeFinished(b, clientFinishedData)
	}); err != nil {
		return nil, err
	}

	if err := h.readChangeCipherSpec(); err != nil {
		return nil, err
	}
	h.reader.SetCipher(serverCipher)

	serverFinishedTranscript := h.transcript.Sum()
	finMsg, err := msgs.next()
	if err != nil {
		return nil, err
	}
	if finMsg.Type != constants.HandshakeTypeFinished {
		return nil, qerrors.ErrUnexpectedMessage
	}
	wantFinished := crypto.Finished12(masterSecret, "server finished", serverFinishedTranscript)
	if !crypto.ConstantTimeCompare(finMsg.Body, wantFinished) {
		return nil, qerrors.ErrDecryptFailure
	}

	crypto.Zeroize(masterSecret)

	return &Session{Reader: h.reader, Writer: h.writer, Version: h.negotiatedVersion, Suite: sh.CipherSuite, Group: h.group}, nil
}

// readChangeCipherSpec reads the single-byte ChangeCipherSpec record that
// signals the peer's next record uses the just-negotiated cipher. It is
// read directly off the record layer rather than through msgReader: it is
// not a handshake message and is never folded into the transcript hash.
func (h *clientHandshake) readChangeCipherSpec() error {
	ct, payload, err := h.reader.ReadRecord()
	if err != nil {
		return err
	}
	if ct != constants.ContentTypeChangeCipherSpec || len(payload) != 1 || payload[0] != 1 {
		return qerrors.ErrUnexpectedMessage
	}
	return nil
}

// deriveRecordCiphers12 expands the master secret into the key block (RFC
// 5246 §6.3) and builds the per-direction record ciphers, branching on
// whether the suite is CBC-HMAC (MAC keys, no implicit IV) or AEAD
// (no MAC keys, 4-byte implicit IV salt per direction).
func deriveRecordCiphers12(masterSecret, clientRandom, serverRandom []byte, suite constants.CipherSuite, params protocol.SuiteParams) (client, server *crypto.Cipher, err error) {
	var macLen, ivLen int
	if params.Kind == protocol.KindCBC12 {
		macLen = params.MACLen
	} else {
		ivLen = 4
	}
	total := 2*macLen + 2*params.KeyLen + 2*ivLen
	block := crypto.KeyMaterial12(masterSecret, clientRandom, serverRandom, total)

	offset := 0
	next := func(n int) []byte {
		b := block[offset : offset+n]
		offset += n
		return b
	}
	clientMAC, serverMAC := next(macLen), next(macLen)
	clientKey, serverKey := next(params.KeyLen), next(params.KeyLen)
	clientIV, serverIV := next(ivLen), next(ivLen)

	if params.Kind == protocol.KindCBC12 {
		client, err = crypto.InitCBC12(suite, clientMAC, clientKey)
		if err != nil {
			return nil, nil, err
		}
		server, err = crypto.InitCBC12(suite, serverMAC, serverKey)
		return client, server, err
	}
	client, err = crypto.InitAEAD12(suite, clientKey, clientIV)
	if err != nil {
		return nil, nil, err
	}
	server, err = crypto.InitAEAD12(suite, serverKey, serverIV)
	return client, server, err
}
