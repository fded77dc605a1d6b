package metrics

import (
	"context"
	"encoding/hex"
	"time"
)

// ClientObserver provides observability hooks for a client handshake and
// record stream. Attach this to a session to automatically record metrics,
// traces, and structured log events.
type ClientObserver struct {
	collector *Collector
	tracer    Tracer
	logger    *Logger
	sessionID string
}

// ClientObserverConfig configures a client observer.
type ClientObserverConfig struct {
	Collector *Collector
	Tracer    Tracer
	Logger    *Logger
	SessionID []byte
}

// NewClientObserver creates a new client observer.
func NewClientObserver(cfg ClientObserverConfig) *ClientObserver {
	if cfg.Collector == nil {
		cfg.Collector = Global()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = GetTracer()
	}
	if cfg.Logger == nil {
		cfg.Logger = GetLogger()
	}

	sessionID := ""
	if len(cfg.SessionID) > 0 {
		sessionID = hex.EncodeToString(cfg.SessionID[:min(8, len(cfg.SessionID))])
	}

	return &ClientObserver{
		collector: cfg.Collector,
		tracer:    cfg.Tracer,
		logger: cfg.Logger.Named("client").With(Fields{
			"session_id": sessionID,
		}),
		sessionID: sessionID,
	}
}

// OnSessionStart should be called when a new connection attempt begins.
func (o *ClientObserver) OnSessionStart() {
	o.collector.SessionStarted()
	o.logger.Info("session started")
}

// OnSessionEnd should be called when a session ends cleanly.
func (o *ClientObserver) OnSessionEnd() {
	o.collector.SessionEnded()
	o.logger.Info("session ended")
}

// OnSessionFailed should be called when a session fails to establish.
func (o *ClientObserver) OnSessionFailed(err error) {
	o.collector.SessionFailed()
	o.logger.Error("session failed", Fields{"error": err.Error()})
}

// OnHandshakeStart returns a context and completion function for handshake tracing.
func (o *ClientObserver) OnHandshakeStart(ctx context.Context) (context.Context, func(error)) {
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanHandshake, WithSpanKind(SpanKindClient))

	o.logger.Debug("handshake started")

	return ctx, func(err error) {
		duration := time.Since(start)
		o.collector.RecordHandshakeLatency(duration)

		if err != nil {
			o.logger.Error("handshake failed", Fields{
				"error":    err.Error(),
				"duration": duration.String(),
			})
		} else {
			o.logger.Info("handshake completed", Fields{
				"duration": duration.String(),
			})
		}

		endSpan(err)
	}
}

// OnEncrypt records record-protection metrics for an outbound record.
func (o *ClientObserver) OnEncrypt(ctx context.Context, plaintextLen int) (context.Context, func(error)) {
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanEncrypt)

	return ctx, func(err error) {
		duration := time.Since(start)
		o.collector.RecordEncryptLatency(duration)

		if err != nil {
			o.collector.RecordEncryptError()
			o.logger.Debug("encrypt failed", Fields{"error": err.Error()})
		} else {
			o.collector.RecordBytesSent(uint64(plaintextLen))
			o.collector.RecordRecordSent()
		}

		endSpan(err)
	}
}

// OnDecrypt records record-protection metrics for an inbound record.
func (o *ClientObserver) OnDecrypt(ctx context.Context, ciphertextLen int) (context.Context, func(error)) {
	start := time.Now()
	ctx, endSpan := o.tracer.StartSpan(ctx, SpanDecrypt)

	return ctx, func(err error) {
		duration := time.Since(start)
		o.collector.RecordDecryptLatency(duration)

		if err != nil {
			o.collector.RecordDecryptError()
			o.logger.Debug("decrypt failed", Fields{"error": err.Error()})
		} else {
			o.collector.RecordBytesReceived(uint64(ciphertextLen))
			o.collector.RecordRecordReceived()
		}

		endSpan(err)
	}
}

// OnAlertReceived records an inbound alert, distinguishing close_notify
// (a clean shutdown signal) from every other, fatal alert.
func (o *ClientObserver) OnAlertReceived(closeNotify bool) {
	o.collector.RecordAlertReceived()
	if closeNotify {
		o.collector.RecordCloseNotifyReceived()
		o.logger.Debug("close_notify received")
		return
	}
	o.logger.Warn("fatal alert received")
}

// OnCertificateVerifyFailure records a signature or chain validation
// failure against the server's certificate.
func (o *ClientObserver) OnCertificateVerifyFailure(err error) {
	o.collector.RecordCertificateVerifyFailure()
	o.logger.Warn("certificate verification failed", Fields{"error": err.Error()})
}

// OnBadRecordMac records a record that failed authentication, whether
// AEAD tag mismatch or CBC-HMAC verification failure.
func (o *ClientObserver) OnBadRecordMac() {
	o.collector.RecordBadRecordMac()
	o.logger.Warn("bad record mac")
}

// OnProtocolError records a protocol error.
func (o *ClientObserver) OnProtocolError(err error) {
	o.collector.RecordProtocolError()
	o.logger.Error("protocol error", Fields{"error": err.Error()})
}

// Logger returns the observer's logger for custom logging.
func (o *ClientObserver) Logger() *Logger {
	return o.logger
}

// --- Instrumented Wrappers ---

// InstrumentedSession wraps session metrics collection.
// This can be used to wrap encrypt/decrypt calls.
type InstrumentedSession struct {
	observer *ClientObserver
}

// NewInstrumentedSession creates a new instrumented session wrapper.
func NewInstrumentedSession(observer *ClientObserver) *InstrumentedSession {
	return &InstrumentedSession{observer: observer}
}

// WrapEncrypt wraps an encrypt operation with metrics.
func (s *InstrumentedSession) WrapEncrypt(ctx context.Context, plaintextLen int, fn func() error) error {
	_, done := s.observer.OnEncrypt(ctx, plaintextLen)
	err := fn()
	done(err)
	return err
}

// WrapDecrypt wraps a decrypt operation with metrics.
func (s *InstrumentedSession) WrapDecrypt(ctx context.Context, ciphertextLen int, fn func() error) error {
	_, done := s.observer.OnDecrypt(ctx, ciphertextLen)
	err := fn()
	done(err)
	return err
}

// --- Event Types ---

// EventType represents a type of client session event for logging.
type EventType string

const (
	EventSessionStart           EventType = "session.start"
	EventSessionEnd              EventType = "session.end"
	EventSessionFailed           EventType = "session.failed"
	EventHandshakeStart          EventType = "handshake.start"
	EventHandshakeEnd            EventType = "handshake.end"
	EventDataSent                EventType = "data.sent"
	EventDataReceived            EventType = "data.received"
	EventAlertReceived           EventType = "security.alert_received"
	EventCertificateVerifyFailed EventType = "security.certificate_verify_failed"
	EventBadRecordMac            EventType = "security.bad_record_mac"
	EventError                   EventType = "error"
)

// Event represents a structured client session event.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	SessionID string                 `json:"session_id,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// min returns the smaller of two integers.
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
