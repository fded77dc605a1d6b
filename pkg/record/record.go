// Package record implements the TLS record layer: framing records on and
// off a Transport, sequence-numbered AEAD/CBC-HMAC protection via
// pkg/crypto's Cipher, and a single reusable scratch buffer shared across
// both directions. Records use the content_type || legacy_version ||
// length header, with per-direction cipher state that changes at
// ChangeCipherSpec/handshake-traffic-secret boundaries.
package record

import (
	"github.com/fenwick-labs/gotls/internal/constants"
)

// Header is a record's 5-byte header.
type Header struct {
	ContentType   constants.ContentType
	LegacyVersion uint16
	Length        uint16
}

// Transport is the I/O abstraction the record layer is built over: a
// caller-supplied reader/writer, deliberately not net.Conn, so the engine
// never touches sockets directly.
type Transport interface {
	// Read reads into buf, returning how many bytes were read, like
	// io.Reader. Returning zero bytes with a nil error signals a clean end
	// of stream, which the Reader reports as ErrEndOfStream.
	Read(buf []byte) (int, error)
	// WriteAll writes every byte of buf, blocking until done or erroring.
	WriteAll(buf []byte) error
}
