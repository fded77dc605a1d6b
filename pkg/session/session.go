// Package session implements the client record stream: the post-handshake
// read/write/close surface built on top of the negotiated ciphers a
// pkg/handshake.Session hands over. It wraps the active cipher pair with
// atomic byte counters and a closed/open lifecycle, transparently skipping
// NewSessionTicket messages, translating alerts, and sending close_notify
// on Close.
package session

import (
	"sync/atomic"

	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
	"github.com/fenwick-labs/gotls/pkg/handshake"
	"github.com/fenwick-labs/gotls/pkg/protocol"
)

// Session is the post-handshake client record stream: Write chunks and
// encrypts application data, Read returns the next application_data
// record (transparently skipping NewSessionTicket and translating
// alerts), and Close sends an encrypted close_notify.
//
// A Session is not safe for concurrent use: it is single-threaded and
// blocking, cooperative only with the underlying transport's own blocking
// semantics.
type Session struct {
	neg *handshake.Session

	closed bool

	clientSeq atomic.Uint64
	serverSeq atomic.Uint64

	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64
}

// New wraps the negotiated handshake outcome in a client record stream.
// The handshake's reader/writer already carry the installed application
// ciphers and their own internal sequence counters; Session's own counters
// here are for diagnostics and mirror (rather than duplicate) the record
// layer's bookkeeping.
func New(neg *handshake.Session) *Session {
	return &Session{neg: neg}
}

// Version reports the negotiated protocol version.
func (s *Session) Version() protocol.Version { return s.neg.Version }

// CipherSuite reports the negotiated cipher suite.
func (s *Session) CipherSuite() constants.CipherSuite { return s.neg.Suite }

// Write encodes plaintext as one or more application_data records,
// chunking at the maximum inner-plaintext size.
func (s *Session) Write(plaintext []byte) (int, error) {
	if s.closed {
		return 0, qerrors.ErrEndOfStream
	}
	written := 0
	for len(plaintext) > 0 {
		chunk := plaintext
		if len(chunk) > constants.MaxInnerPlaintext {
			chunk = chunk[:constants.MaxInnerPlaintext]
		}
		if err := s.neg.Writer.WriteRecord(constants.ContentTypeApplicationData, chunk); err != nil {
			return written, err
		}
		s.clientSeq.Add(1)
		s.bytesSent.Add(uint64(len(chunk)))
		written += len(chunk)
		plaintext = plaintext[len(chunk):]
	}
	return written, nil
}

// Read returns the next application_data record's plaintext. It
// transparently discards post-handshake NewSessionTicket messages and
// translates alerts: close_notify yields (nil, nil) signalling a clean
// end-of-stream, any other alert is a fatal error. The returned slice
// aliases the record reader's scratch buffer (decrypt happens in place)
// and is valid only until the next Read call.
func (s *Session) Read() ([]byte, error) {
	if s.closed {
		return nil, qerrors.ErrEndOfStream
	}
	for {
		ct, payload, err := s.neg.Reader.ReadRecord()
		if err != nil {
			return nil, err
		}
		s.serverSeq.Add(1)

		switch ct {
		case constants.ContentTypeApplicationData:
			s.bytesReceived.Add(uint64(len(payload)))
			return payload, nil
		case constants.ContentTypeHandshake:
			if err := skipNewSessionTicket(payload); err != nil {
				return nil, err
			}
			continue
		case constants.ContentTypeAlert:
			alert, err := protocol.DecodeAlert(payload)
			if err != nil {
				return nil, err
			}
			if alert.Description == constants.AlertCloseNotify {
				s.closed = true
				return nil, nil
			}
			return nil, &qerrors.AlertError{Level: alert.Level, Description: alert.Description}
		default:
			return nil, qerrors.ErrUnexpectedMessage
		}
	}
}

// Close sends an encrypted close_notify alert. It is not an error to Close
// an already-closed Session; the second call is a no-op.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	buf := protocol.NewBuffer(make([]byte, 0, 2))
	if err := buf.WriteU8(uint8(constants.AlertLevelWarning)); err != nil {
		return err
	}
	if err := buf.WriteU8(uint8(constants.AlertCloseNotify)); err != nil {
		return err
	}
	return s.neg.Writer.WriteRecord(constants.ContentTypeAlert, buf.Bytes())
}

// skipNewSessionTicket parses a handshake-content-type record's body and
// discards it if it is a NewSessionTicket; any other handshake message
// arriving after the handshake completes is unexpected — post-handshake
// authentication and renegotiation are both out of scope.
func skipNewSessionTicket(payload []byte) error {
	hdr, body, err := protocol.ReadHandshakeHeader(protocol.NewDecoder(payload))
	if err != nil {
		return err
	}
	if hdr.Type != constants.HandshakeTypeNewSessionTicket {
		return qerrors.ErrUnexpectedMessage
	}
	return protocol.SkipNewSessionTicket(body)
}
