// buffer.go implements the buffered writer: append-only encoding of the
// primitives handshake messages are built from, over a fixed
// caller-supplied byte slice, as typed primitive-append operations shared
// by every message type.
package protocol

import (
	"encoding/binary"

	qerrors "github.com/fenwick-labs/gotls/internal/errors"
)

// Buffer is an append-only writer over a fixed-capacity byte slice.
type Buffer struct {
	buf []byte
	cap int
}

// NewBuffer wraps dst (len 0, with spare capacity) as a Buffer. Writes
// beyond dst's capacity fail with ErrBufferOverflow rather than growing,
// so the handshake's single scratch allocation is never exceeded silently.
func NewBuffer(dst []byte) *Buffer {
	return &Buffer{buf: dst[:0], cap: cap(dst)}
}

// Bytes returns the bytes written so far.
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int { return len(b.buf) }

func (b *Buffer) reserve(n int) error {
	if len(b.buf)+n > b.cap {
		return qerrors.ErrBufferOverflow
	}
	return nil
}

// WriteBytes appends raw bytes.
func (b *Buffer) WriteBytes(p []byte) error {
	if err := b.reserve(len(p)); err != nil {
		return err
	}
	b.buf = append(b.buf, p...)
	return nil
}

// WriteU8 appends a single byte.
func (b *Buffer) WriteU8(v uint8) error {
	if err := b.reserve(1); err != nil {
		return err
	}
	b.buf = append(b.buf, v)
	return nil
}

// WriteU16 appends a big-endian uint16.
func (b *Buffer) WriteU16(v uint16) error {
	if err := b.reserve(2); err != nil {
		return err
	}
	b.buf = binary.BigEndian.AppendUint16(b.buf, v)
	return nil
}

// WriteU24 appends a big-endian 24-bit integer (the handshake-message
// length field's width, RFC 8446 §4).
func (b *Buffer) WriteU24(v uint32) error {
	if err := b.reserve(3); err != nil {
		return err
	}
	b.buf = append(b.buf, byte(v>>16), byte(v>>8), byte(v))
	return nil
}

// WriteEnum appends an enum value whose wire width is 1, 2, or 3 bytes.
func (b *Buffer) WriteEnum(v uint32, width int) error {
	switch width {
	case 1:
		return b.WriteU8(uint8(v))
	case 2:
		return b.WriteU16(uint16(v))
	case 3:
		return b.WriteU24(v)
	default:
		return qerrors.ErrIllegalParameter
	}
}

// WriteVector8 appends a vector prefixed by a 1-byte length.
func (b *Buffer) WriteVector8(data []byte) error {
	if len(data) > 0xff {
		return qerrors.ErrBufferOverflow
	}
	if err := b.WriteU8(uint8(len(data))); err != nil {
		return err
	}
	return b.WriteBytes(data)
}

// WriteVector16 appends a vector prefixed by a 2-byte length.
func (b *Buffer) WriteVector16(data []byte) error {
	if len(data) > 0xffff {
		return qerrors.ErrBufferOverflow
	}
	if err := b.WriteU16(uint16(len(data))); err != nil {
		return err
	}
	return b.WriteBytes(data)
}

// WriteVector24 appends a vector prefixed by a 3-byte length.
func (b *Buffer) WriteVector24(data []byte) error {
	if len(data) > 0xffffff {
		return qerrors.ErrBufferOverflow
	}
	if err := b.WriteU24(uint32(len(data))); err != nil {
		return err
	}
	return b.WriteBytes(data)
}

// Length16Placeholder reserves a 2-byte length field, returning its offset
// so the caller can backpatch it once the enclosed structure's size is
// known (used for extensions blocks and the handshake body itself).
func (b *Buffer) Length16Placeholder() (offset int, err error) {
	offset = len(b.buf)
	return offset, b.WriteU16(0)
}

// PatchU16 backpatches a 2-byte big-endian length at offset with the
// number of bytes written since offset+2.
func (b *Buffer) PatchU16(offset int) {
	n := len(b.buf) - offset - 2
	binary.BigEndian.PutUint16(b.buf[offset:offset+2], uint16(n))
}

// Length24Placeholder reserves a 3-byte length field (handshake message
// body length).
func (b *Buffer) Length24Placeholder() (offset int, err error) {
	offset = len(b.buf)
	return offset, b.WriteU24(0)
}

// PatchU24 backpatches a 3-byte big-endian length at offset.
func (b *Buffer) PatchU24(offset int) {
	n := len(b.buf) - offset - 3
	b.buf[offset] = byte(n >> 16)
	b.buf[offset+1] = byte(n >> 8)
	b.buf[offset+2] = byte(n)
}
