package record

import (
	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
	"github.com/fenwick-labs/gotls/pkg/crypto"
)

// Reader reads and, once a Cipher is installed, decrypts records off a
// Transport: fixed header parse, length-bounded body read, single decrypt
// call, with per-direction cipher-swap points (ChangeCipherSpec for 1.2,
// traffic secret installation for 1.3).
type Reader struct {
	t       Transport
	cipher  *crypto.Cipher
	seq     uint64
	hdrBuf  [constants.RecordHeaderSize]byte
	bodyBuf []byte
}

// NewReader builds a Reader over t, using scratch as the body's backing
// storage — one reused buffer, no per-record allocation.
func NewReader(t Transport, scratch []byte) *Reader {
	return &Reader{t: t, bodyBuf: scratch[:0]}
}

// SetCipher installs (or replaces) the cipher used to decrypt subsequent
// records and resets the sequence counter.
func (r *Reader) SetCipher(c *crypto.Cipher) {
	r.cipher = c
	r.seq = 0
}

func (r *Reader) readFull(buf []byte) error {
	for n := 0; n < len(buf); {
		m, err := r.t.Read(buf[n:])
		if m == 0 {
			if err != nil {
				return err
			}
			return qerrors.ErrEndOfStream
		}
		n += m
	}
	return nil
}

// ReadRecord reads one record, decrypting it in place if a cipher is
// installed, and returns its content type and plaintext. The returned
// slice aliases the Reader's scratch buffer and is valid only until the
// next ReadRecord call.
func (r *Reader) ReadRecord() (constants.ContentType, []byte, error) {
	if err := r.readFull(r.hdrBuf[:]); err != nil {
		return 0, nil, err
	}
	contentType := constants.ContentType(r.hdrBuf[0])
	length := int(r.hdrBuf[3])<<8 | int(r.hdrBuf[4])
	if length > constants.MaxCiphertextLen {
		return 0, nil, qerrors.ErrRecordOverflow
	}

	if cap(r.bodyBuf) < length {
		return 0, nil, qerrors.ErrBufferOverflow
	}
	body := r.bodyBuf[:length]
	if err := r.readFull(body); err != nil {
		return 0, nil, err
	}

	if r.cipher == nil {
		return contentType, body, nil
	}
	realType, plain, err := r.cipher.Open(r.seq, contentType, body)
	r.seq++
	if err != nil {
		return 0, nil, err
	}
	return realType, plain, nil
}
