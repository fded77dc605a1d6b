package handshake

import (
	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
	"github.com/fenwick-labs/gotls/pkg/protocol"
	"github.com/fenwick-labs/gotls/pkg/record"
)

// message is one fully reassembled handshake message: its type, its
// decode-ready body, and the full header+body bytes (needed for the
// transcript hash, which covers the wire encoding verbatim).
type message struct {
	Type constants.HandshakeType
	Body []byte
	Raw  []byte
}

// msgReader reassembles handshake messages out of the record layer,
// handling both directions of fragmentation: a single record carrying
// several small handshake messages back to back (common once 1.3 encrypts
// EncryptedExtensions/Certificate/CertificateVerify/Finished together), and
// a single large message (a long certificate chain) split across multiple
// records. The record layer's ReadRecord result aliases a reused scratch
// buffer, so every byte handed to msgReader is copied into its own
// accumulation buffer before the next ReadRecord call can overwrite it.
type msgReader struct {
	rec *record.Reader
	buf []byte
}

func newMsgReader(rec *record.Reader) *msgReader {
	return &msgReader{rec: rec}
}

// next returns the next reassembled handshake message, transparently
// consuming records until one is available. A fatal alert from the peer is
// surfaced as *qerrors.AlertError; any other content type arriving where a
// handshake message was expected is ErrUnexpectedMessage.
func (m *msgReader) next() (message, error) {
	for {
		if len(m.buf) >= 4 {
			length := int(m.buf[1])<<16 | int(m.buf[2])<<8 | int(m.buf[3])
			if len(m.buf) >= 4+length {
				raw := m.buf[:4+length]
				msg := message{
					Type: constants.HandshakeType(raw[0]),
					Body: append([]byte{}, raw[4:4+length]...),
					Raw:  append([]byte{}, raw...),
				}
				m.buf = append([]byte{}, m.buf[4+length:]...)
				return msg, nil
			}
		}

		ct, payload, err := m.rec.ReadRecord()
		if err != nil {
			return message{}, err
		}
		switch ct {
		case constants.ContentTypeHandshake:
			m.buf = append(m.buf, payload...)
		case constants.ContentTypeAlert:
			alert, err := protocol.DecodeAlert(payload)
			if err != nil {
				return message{}, err
			}
			return message{}, &qerrors.AlertError{Level: alert.Level, Description: alert.Description}
		case constants.ContentTypeChangeCipherSpec:
			// TLS 1.2's compatibility record; the handshake flow consumes it
			// explicitly at the point it expects one, but a stray one here
			// (sent early) is harmless to skip.
			continue
		default:
			return message{}, qerrors.ErrUnexpectedMessage
		}
	}
}
