package handshake

import (
	"github.com/fenwick-labs/gotls/internal/constants"
	"github.com/fenwick-labs/gotls/pkg/crypto"
	"github.com/fenwick-labs/gotls/pkg/protocol"
	"github.com/fenwick-labs/gotls/pkg/record"
)

// State names a point in the handshake lifecycle. The driver records
// StateClientHelloSent and StateServerHelloReceived for diagnostics;
// message order is enforced by the per-message type checks, not by this
// field.
type State int

const (
	StateInitial State = iota
	StateClientHelloSent
	StateServerHelloReceived
	StateWaitCertificate
	StateWaitServerKeyExchange
	StateWaitCertificateVerify
	StateWaitFinished
	StateComplete
	StateFailed
)

// clientHandshake is the mutable state threaded through one handshake
// attempt: the record I/O, the negotiation state, the transcript hash, and
// the certificate/signature data collected along the way.
type clientHandshake struct {
	cfg *Config

	reader *record.Reader
	writer *record.Writer

	state State

	clientRandom [constants.ClientRandomSize]byte
	serverRandom [constants.ServerRandomSize]byte

	keyPair *crypto.KeyPair

	negotiatedVersion protocol.Version
	suite             constants.CipherSuite
	group             constants.NamedGroup

	transcript *crypto.Transcript

	// certChain holds the server's DER-encoded chain, leaf first, as
	// parsed from the Certificate message; used for TrustStore.Verify and
	// for the leaf public key signature checks.
	certChain [][]byte
	leafKey   crypto.PublicKeyForVerify

	// signatureScheme records whichever scheme the server's signature used
	// (ServerKeyExchange in 1.2, CertificateVerify in 1.3), for StatsSink.
	// Left at its zero value when RSA key-transport consumes no signature.
	signatureScheme constants.SignatureScheme

	preMasterOrSharedSecret []byte

	// scratch backs the record reader/writer's body buffer; outgoing
	// handshake messages are encoded into a buffer of their own.
	scratch []byte
}

func newClientHandshake(cfg *Config, t record.Transport) *clientHandshake {
	scratch := make([]byte, cfg.MaxRecordScratch)
	return &clientHandshake{
		cfg:        cfg,
		reader:     record.NewReader(t, scratch),
		writer:     record.NewWriter(t, cfg.RandomSource, scratch),
		state:      StateInitial,
		transcript: crypto.NewTranscript(),
		scratch:    scratch,
	}
}

// writeHandshakeMessage encodes a framed handshake message into a scratch
// buffer via encode, feeds it to the transcript hash, and writes it as a
// handshake-content-type record.
func (h *clientHandshake) writeHandshakeMessage(encode func(*protocol.Buffer) error) error {
	buf := protocol.NewBuffer(make([]byte, 0, constants.MaxInnerPlaintext))
	if err := encode(buf); err != nil {
		return err
	}
	h.transcript.Update(buf.Bytes())
	return h.writer.WriteRecord(constants.ContentTypeHandshake, buf.Bytes())
}

// Session is the negotiated outcome handed to pkg/session to build a
// client record stream: both the active read/write ciphers and the
// parameters the caller may want to inspect.
type Session struct {
	Reader  *record.Reader
	Writer  *record.Writer
	Version protocol.Version
	Suite   constants.CipherSuite
	Group   constants.NamedGroup
}
