package record

import (
	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
	"github.com/fenwick-labs/gotls/pkg/crypto"
)

// Writer frames and, once a Cipher is installed, encrypts records onto a
// Transport.
type Writer struct {
	t      Transport
	cipher *crypto.Cipher
	seq    uint64
	rnd    crypto.RandomSource
	buf    []byte
}

// NewWriter builds a Writer over t, using scratch as its working buffer.
func NewWriter(t Transport, rnd crypto.RandomSource, scratch []byte) *Writer {
	return &Writer{t: t, rnd: rnd, buf: scratch[:0]}
}

// SetCipher installs (or replaces) the cipher used to encrypt subsequent
// records and resets the sequence counter.
func (w *Writer) SetCipher(c *crypto.Cipher) {
	w.cipher = c
	w.seq = 0
}

// WriteRecord frames plaintext as one record of the given content type,
// encrypting it if a cipher is installed. TLS 1.3's outer content type is
// always application_data once a cipher is active; callers pass the real
// type and WriteRecord handles the substitution.
func (w *Writer) WriteRecord(contentType constants.ContentType, plaintext []byte) error {
	if len(plaintext) > constants.MaxInnerPlaintext {
		return qerrors.ErrRecordOverflow
	}

	outerType := contentType
	var payload []byte
	if w.cipher != nil {
		sealed, err := w.cipher.Seal(w.seq, contentType, plaintext, w.rnd)
		if err != nil {
			return err
		}
		w.seq++
		payload = sealed
		if w.cipher.Suite().IsTLS13() {
			outerType = constants.ContentTypeApplicationData
		}
	} else {
		payload = plaintext
	}

	if len(payload) > constants.MaxCiphertextLen {
		return qerrors.ErrRecordOverflow
	}

	hdr := [constants.RecordHeaderSize]byte{
		byte(outerType),
		0x03, 0x03,
		byte(len(payload) >> 8), byte(len(payload)),
	}
	if err := w.t.WriteAll(hdr[:]); err != nil {
		return err
	}
	return w.t.WriteAll(payload)
}
