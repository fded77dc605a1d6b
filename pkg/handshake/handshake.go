package handshake

import (
	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
	"github.com/fenwick-labs/gotls/pkg/crypto"
	"github.com/fenwick-labs/gotls/pkg/protocol"
	"github.com/fenwick-labs/gotls/pkg/record"
)

// Connect drives a complete client handshake over t and returns the
// negotiated session material: a single ClientHello is sent offering both
// versions, and the server's response (its cipher suite, and for 1.2
// whether a supported_versions extension is present) decides which linear
// flow handshake12.go/handshake13.go runs from there.
func Connect(cfg *Config, t record.Transport) (*Session, error) {
	h := newClientHandshake(cfg, t)

	if err := h.sendClientHello(); err != nil {
		return nil, err
	}

	msgs := newMsgReader(h.reader)
	sh, err := h.readServerHello(msgs)
	if err != nil {
		return nil, err
	}

	if h.serverRandom == constants.HelloRetryRequestRandom {
		// HelloRetryRequest is rejected outright, not retried: this engine
		// always offers every group it supports in the initial ClientHello,
		// so a legitimate server never needs one.
		return nil, qerrors.ErrServerHelloRetryRequest
	}

	var session *Session
	if v, ok := protocol.SupportedVersion(sh.Extensions); ok && v == protocol.VersionTLS13 {
		session, err = h.runTLS13(msgs, sh)
	} else {
		session, err = h.runTLS12(msgs, sh)
	}
	if err != nil {
		return nil, err
	}

	if cfg.StatsSink != nil {
		cfg.StatsSink.HandshakeComplete(session.Version, session.Suite, session.Group, h.signatureScheme)
	}
	return session, nil
}

func (h *clientHandshake) sendClientHello() error {
	if err := h.cfg.RandomSource.FillRandom(h.clientRandom[:]); err != nil {
		return err
	}

	seed := make([]byte, constants.HandshakeSeedSize)
	if err := h.cfg.RandomSource.FillRandom(seed); err != nil {
		return err
	}
	kp, err := crypto.NewKeyPair(seed)
	crypto.Zeroize(seed)
	if err != nil {
		return err
	}
	h.keyPair = kp

	sessionID := make([]byte, 32)
	if err := h.cfg.RandomSource.FillRandom(sessionID); err != nil {
		return err
	}

	shares := map[constants.NamedGroup][]byte{}
	if len(h.cfg.CipherSuites13) > 0 {
		// One key_share entry per offered group: the client's keypair
		// already generated a share for every group eagerly (crypto.NewKeyPair),
		// so sending all of them up front means a compliant server never
		// has to respond with HelloRetryRequest, which this engine rejects
		// outright (see Connect).
		for _, group := range h.cfg.SupportedGroups {
			share, err := h.keyPair.PublicKey(group)
			if err != nil {
				return err
			}
			shares[group] = share
		}
		if len(h.cfg.SupportedGroups) > 0 {
			h.group = h.cfg.SupportedGroups[0]
		}
	}

	ch := &protocol.ClientHello{
		Random:              h.clientRandom,
		LegacySessionID:     sessionID,
		CipherSuites:        h.cfg.allCipherSuites(),
		SupportedGroups:     h.cfg.SupportedGroups,
		KeyShares:           shares,
		SignatureAlgorithms: nil,
		ServerName:          h.cfg.ServerName,
		OfferTLS13:          len(h.cfg.CipherSuites13) > 0,
		OfferTLS12:          len(h.cfg.CipherSuites12) > 0,
	}

	h.state = StateClientHelloSent
	return h.writeHandshakeMessage(ch.Encode)
}

func (h *clientHandshake) readServerHello(msgs *msgReader) (*protocol.ServerHello, error) {
	msg, err := msgs.next()
	if err != nil {
		return nil, err
	}
	if msg.Type != constants.HandshakeTypeServerHello {
		return nil, qerrors.ErrUnexpectedMessage
	}
	h.transcript.Update(msg.Raw)

	sh, err := protocol.DecodeServerHello(protocol.NewDecoder(msg.Body))
	if err != nil {
		return nil, err
	}
	h.serverRandom = sh.Random
	h.suite = sh.CipherSuite
	if !protocol.IsSupported(sh.CipherSuite) {
		return nil, qerrors.ErrIllegalParameter
	}
	h.state = StateServerHelloReceived
	return sh, nil
}
