package session

import (
	"bytes"
	"testing"

	"github.com/fenwick-labs/gotls/internal/constants"
	"github.com/fenwick-labs/gotls/pkg/handshake"
	"github.com/fenwick-labs/gotls/pkg/protocol"
	"github.com/fenwick-labs/gotls/pkg/record"
)

// loopTransport is a record.Transport backed by two independent in-process
// byte queues, one per direction, so a client-side and server-side Session
// can exchange records without a real socket.
type loopTransport struct {
	in  *bytes.Buffer
	out *bytes.Buffer
}

func (t *loopTransport) Read(p []byte) (int, error) { return t.in.Read(p) }
func (t *loopTransport) WriteAll(p []byte) error     { _, err := t.out.Write(p); return err }

// newSessionPair builds two Sessions sharing a pair of plaintext pipes, as
// if a handshake had just completed with no cipher installed — enough to
// exercise Write/Read/Close chunking and alert handling without redoing a
// full handshake simulation.
func newSessionPair(t *testing.T) (client, server *Session) {
	t.Helper()
	aToB := &bytes.Buffer{}
	bToA := &bytes.Buffer{}

	clientTransport := &loopTransport{in: bToA, out: aToB}
	serverTransport := &loopTransport{in: aToB, out: bToA}

	clientNeg := &handshake.Session{
		Reader:  record.NewReader(clientTransport, make([]byte, constants.MaxRecordSize)),
		Writer:  record.NewWriter(clientTransport, nil, make([]byte, constants.MaxRecordSize)),
		Version: protocol.VersionTLS12,
		Suite:   constants.SuiteRSA_AES128_CBC_SHA,
	}
	serverNeg := &handshake.Session{
		Reader:  record.NewReader(serverTransport, make([]byte, constants.MaxRecordSize)),
		Writer:  record.NewWriter(serverTransport, nil, make([]byte, constants.MaxRecordSize)),
		Version: protocol.VersionTLS12,
		Suite:   constants.SuiteRSA_AES128_CBC_SHA,
	}
	return New(clientNeg), New(serverNeg)
}

func TestSessionVersionAndCipherSuite(t *testing.T) {
	client, _ := newSessionPair(t)
	if client.Version() != protocol.VersionTLS12 {
		t.Errorf("Version() = %v, want TLS 1.2", client.Version())
	}
	if client.CipherSuite() != constants.SuiteRSA_AES128_CBC_SHA {
		t.Errorf("CipherSuite() = %v, want RSA_AES128_CBC_SHA", client.CipherSuite())
	}
}

func TestSessionWriteReadRoundTrip(t *testing.T) {
	client, server := newSessionPair(t)
	msg := []byte("hello over an unencrypted test session")
	if _, err := client.Write(msg); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := server.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, msg) {
		t.Errorf("Read() = %q, want %q", got, msg)
	}
}

func TestSessionWriteChunksLargePayloads(t *testing.T) {
	client, server := newSessionPair(t)
	payload := bytes.Repeat([]byte("z"), constants.MaxInnerPlaintext*2+123)
	if _, err := client.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	var received []byte
	for len(received) < len(payload) {
		chunk, err := server.Read()
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if len(chunk) > constants.MaxInnerPlaintext {
			t.Fatalf("chunk length %d exceeds MaxInnerPlaintext %d", len(chunk), constants.MaxInnerPlaintext)
		}
		received = append(received, chunk...)
	}
	if !bytes.Equal(received, payload) {
		t.Error("reassembled payload does not match the original")
	}
}

func TestSessionSkipsNewSessionTicket(t *testing.T) {
	client, server := newSessionPair(t)

	ticketBuf := protocol.NewBuffer(make([]byte, 0, 32))
	lenOff, err := protocol.WriteHandshakeHeaderPlaceholder(ticketBuf, constants.HandshakeTypeNewSessionTicket)
	if err != nil {
		t.Fatalf("WriteHandshakeHeaderPlaceholder: %v", err)
	}
	_ = ticketBuf.WriteBytes([]byte("opaque ticket data"))
	ticketBuf.PatchU24(lenOff)
	if err := client.neg.Writer.WriteRecord(constants.ContentTypeHandshake, ticketBuf.Bytes()); err != nil {
		t.Fatalf("WriteRecord(ticket): %v", err)
	}

	msg := []byte("application data right after the ticket")
	if _, err := client.Write(msg); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := server.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, msg) {
		t.Errorf("Read() = %q, want %q (NewSessionTicket should have been skipped transparently)", got, msg)
	}
}

func TestSessionCloseSendsCloseNotify(t *testing.T) {
	client, server := newSessionPair(t)
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	got, err := server.Read()
	if err != nil {
		t.Fatalf("Read after close_notify returned an error: %v", err)
	}
	if got != nil {
		t.Errorf("Read after close_notify = %v, want nil", got)
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	client, _ := newSessionPair(t)
	if err := client.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got error: %v", err)
	}
}

func TestSessionWriteAfterCloseFails(t *testing.T) {
	client, _ := newSessionPair(t)
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := client.Write([]byte("too late")); err == nil {
		t.Error("Write after Close should fail")
	}
}

func TestSessionOtherAlertIsFatal(t *testing.T) {
	client, server := newSessionPair(t)
	alertBuf := protocol.NewBuffer(make([]byte, 0, 2))
	_ = alertBuf.WriteU8(uint8(constants.AlertLevelFatal))
	_ = alertBuf.WriteU8(uint8(constants.AlertHandshakeFailure))
	if err := client.neg.Writer.WriteRecord(constants.ContentTypeAlert, alertBuf.Bytes()); err != nil {
		t.Fatalf("WriteRecord(alert): %v", err)
	}
	if _, err := server.Read(); err == nil {
		t.Error("Read should surface a non-close_notify alert as an error")
	}
}
