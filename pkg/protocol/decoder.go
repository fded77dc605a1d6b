// decoder.go implements the record decoder: a cursor over a received
// record's payload supporting the typed reads handshake message parsing
// needs. Primitive cursor operations shared by every TLS message type.
package protocol

import (
	"encoding/binary"

	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
)

// Decoder is a read cursor over a record's decrypted payload.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps payload for sequential typed reads.
func NewDecoder(payload []byte) *Decoder {
	return &Decoder{buf: payload}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// Eof reports whether every byte has been consumed.
func (d *Decoder) Eof() bool { return d.pos >= len(d.buf) }

// RequireEof fails with ErrDecodeError if bytes remain unconsumed — used
// after parsing a length-delimited sub-structure to catch trailing junk.
func (d *Decoder) RequireEof() error {
	if !d.Eof() {
		return qerrors.ErrDecodeError
	}
	return nil
}

func (d *Decoder) require(n int) error {
	if d.Remaining() < n {
		return qerrors.ErrDecodeError
	}
	return nil
}

// ReadU8 reads one byte.
func (d *Decoder) ReadU8() (uint8, error) {
	if err := d.require(1); err != nil {
		return 0, err
	}
	v := d.buf[d.pos]
	d.pos++
	return v, nil
}

// ReadU16 reads a big-endian uint16.
func (d *Decoder) ReadU16() (uint16, error) {
	if err := d.require(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(d.buf[d.pos:])
	d.pos += 2
	return v, nil
}

// ReadU24 reads a big-endian 24-bit integer.
func (d *Decoder) ReadU24() (uint32, error) {
	if err := d.require(3); err != nil {
		return 0, err
	}
	v := uint32(d.buf[d.pos])<<16 | uint32(d.buf[d.pos+1])<<8 | uint32(d.buf[d.pos+2])
	d.pos += 3
	return v, nil
}

// ReadBytes returns a reference to the next n bytes without copying. The
// slice aliases the decoder's backing buffer and is valid only as long as
// that buffer is (the record's in-place-decryption lifetime).
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if err := d.require(n); err != nil {
		return nil, err
	}
	v := d.buf[d.pos : d.pos+n]
	d.pos += n
	return v, nil
}

// Skip advances the cursor by n bytes without returning them.
func (d *Decoder) Skip(n int) error {
	if err := d.require(n); err != nil {
		return err
	}
	d.pos += n
	return nil
}

// ReadVector8 reads a 1-byte-length-prefixed vector.
func (d *Decoder) ReadVector8() ([]byte, error) {
	n, err := d.ReadU8()
	if err != nil {
		return nil, err
	}
	return d.ReadBytes(int(n))
}

// ReadVector16 reads a 2-byte-length-prefixed vector.
func (d *Decoder) ReadVector16() ([]byte, error) {
	n, err := d.ReadU16()
	if err != nil {
		return nil, err
	}
	return d.ReadBytes(int(n))
}

// ReadVector24 reads a 3-byte-length-prefixed vector.
func (d *Decoder) ReadVector24() ([]byte, error) {
	n, err := d.ReadU24()
	if err != nil {
		return nil, err
	}
	return d.ReadBytes(int(n))
}

// Alert is the parsed content of an alert record.
type Alert struct {
	Level       constants.AlertLevel
	Description constants.AlertDescription
}

// DecodeAlert parses a record carrying the alert content type into its
// level and description.
func DecodeAlert(payload []byte) (Alert, error) {
	d := NewDecoder(payload)
	level, err := d.ReadU8()
	if err != nil {
		return Alert{}, err
	}
	desc, err := d.ReadU8()
	if err != nil {
		return Alert{}, err
	}
	return Alert{Level: constants.AlertLevel(level), Description: constants.AlertDescription(desc)}, nil
}
