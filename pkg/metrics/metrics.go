// Package metrics provides observability primitives for the TLS client
// engine: counters/gauges/histograms, Prometheus export, OpenTelemetry-style
// tracing, and structured logging.
//
// The package includes:
//   - Counter, Gauge, and Histogram metric types
//   - Prometheus-compatible metrics export
//   - OpenTelemetry tracing support
//   - Structured logging with levels
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector aggregates metrics from handshakes and client sessions.
type Collector struct {
	// Session metrics
	sessionsActive   atomic.Uint64
	sessionsTotal    atomic.Uint64
	sessionsFailed   atomic.Uint64
	handshakeLatency *Histogram

	// Traffic metrics
	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64
	recordsSent   atomic.Uint64
	recordsRecv   atomic.Uint64

	// Protocol/security metrics
	alertsReceived            atomic.Uint64
	closeNotifyReceived       atomic.Uint64
	certificateVerifyFailures atomic.Uint64
	badRecordMacErrors        atomic.Uint64

	// Error metrics
	encryptErrors  atomic.Uint64
	decryptErrors  atomic.Uint64
	protocolErrors atomic.Uint64

	// Performance histograms
	encryptLatency *Histogram
	decryptLatency *Histogram

	// Creation time for uptime tracking
	createdAt time.Time

	// Labels for this collector instance
	labels Labels
}

// Labels represents key-value pairs for metric labeling.
type Labels map[string]string

// NewCollector creates a new metrics collector.
func NewCollector(labels Labels) *Collector {
	if labels == nil {
		labels = make(Labels)
	}

	return &Collector{
		handshakeLatency: NewHistogram(HandshakeLatencyBuckets),
		encryptLatency:   NewHistogram(LatencyBuckets),
		decryptLatency:   NewHistogram(LatencyBuckets),
		createdAt:        time.Now(),
		labels:           labels,
	}
}

// Default bucket configurations for histograms.
var (
	// HandshakeLatencyBuckets for handshake duration (milliseconds).
	HandshakeLatencyBuckets = []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

	// LatencyBuckets for encrypt/decrypt operations (microseconds).
	LatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000}
)

// --- Session Metrics ---

// SessionStarted increments active and total session counters.
func (c *Collector) SessionStarted() {
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionEnded decrements active session counter.
func (c *Collector) SessionEnded() {
	for {
		current := c.sessionsActive.Load()
		if current == 0 {
			return
		}
		if c.sessionsActive.CompareAndSwap(current, current-1) {
			return
		}
	}
}

// SessionFailed records a failed handshake attempt.
func (c *Collector) SessionFailed() {
	c.sessionsFailed.Add(1)
}

// RecordHandshakeLatency records a handshake duration.
func (c *Collector) RecordHandshakeLatency(d time.Duration) {
	c.handshakeLatency.Observe(float64(d.Milliseconds()))
}

// --- Traffic Metrics ---

// RecordBytesSent adds to the bytes sent counter.
func (c *Collector) RecordBytesSent(n uint64) {
	c.bytesSent.Add(n)
}

// RecordBytesReceived adds to the bytes received counter.
func (c *Collector) RecordBytesReceived(n uint64) {
	c.bytesReceived.Add(n)
}

// RecordRecordSent increments the protected records sent counter.
func (c *Collector) RecordRecordSent() {
	c.recordsSent.Add(1)
}

// RecordRecordReceived increments the protected records received counter.
func (c *Collector) RecordRecordReceived() {
	c.recordsRecv.Add(1)
}

// --- Protocol/security Metrics ---

// RecordAlertReceived increments the alert-received counter.
func (c *Collector) RecordAlertReceived() {
	c.alertsReceived.Add(1)
}

// RecordCloseNotifyReceived increments the close_notify counter.
func (c *Collector) RecordCloseNotifyReceived() {
	c.closeNotifyReceived.Add(1)
}

// RecordCertificateVerifyFailure increments the certificate-chain/signature
// verification failure counter.
func (c *Collector) RecordCertificateVerifyFailure() {
	c.certificateVerifyFailures.Add(1)
}

// RecordBadRecordMac increments the AEAD/CBC-HMAC authentication failure
// counter.
func (c *Collector) RecordBadRecordMac() {
	c.badRecordMacErrors.Add(1)
}

// --- Error Metrics ---

// RecordEncryptError increments encryption error counter.
func (c *Collector) RecordEncryptError() {
	c.encryptErrors.Add(1)
}

// RecordDecryptError increments decryption error counter.
func (c *Collector) RecordDecryptError() {
	c.decryptErrors.Add(1)
}

// RecordProtocolError increments protocol error counter.
func (c *Collector) RecordProtocolError() {
	c.protocolErrors.Add(1)
}

// --- Performance Metrics ---

// RecordEncryptLatency records encryption operation latency.
func (c *Collector) RecordEncryptLatency(d time.Duration) {
	c.encryptLatency.Observe(float64(d.Microseconds()))
}

// RecordDecryptLatency records decryption operation latency.
func (c *Collector) RecordDecryptLatency(d time.Duration) {
	c.decryptLatency.Observe(float64(d.Microseconds()))
}

// --- Snapshot ---

// Snapshot returns a point-in-time snapshot of all metrics.
type Snapshot struct {
	// Timestamp of the snapshot
	Timestamp time.Time

	// Uptime since collector creation
	Uptime time.Duration

	// Session metrics
	SessionsActive uint64
	SessionsTotal  uint64
	SessionsFailed uint64

	// Traffic metrics
	BytesSent     uint64
	BytesReceived uint64
	RecordsSent   uint64
	RecordsRecv   uint64

	// Protocol/security metrics
	AlertsReceived            uint64
	CloseNotifyReceived       uint64
	CertificateVerifyFailures uint64
	BadRecordMacErrors        uint64

	// Error metrics
	EncryptErrors  uint64
	DecryptErrors  uint64
	ProtocolErrors uint64

	// Histogram summaries
	HandshakeLatency HistogramSummary
	EncryptLatency   HistogramSummary
	DecryptLatency   HistogramSummary

	// Labels
	Labels Labels
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:                 time.Now(),
		Uptime:                    time.Since(c.createdAt),
		SessionsActive:            c.sessionsActive.Load(),
		SessionsTotal:             c.sessionsTotal.Load(),
		SessionsFailed:            c.sessionsFailed.Load(),
		BytesSent:                 c.bytesSent.Load(),
		BytesReceived:             c.bytesReceived.Load(),
		RecordsSent:               c.recordsSent.Load(),
		RecordsRecv:               c.recordsRecv.Load(),
		AlertsReceived:            c.alertsReceived.Load(),
		CloseNotifyReceived:       c.closeNotifyReceived.Load(),
		CertificateVerifyFailures: c.certificateVerifyFailures.Load(),
		BadRecordMacErrors:        c.badRecordMacErrors.Load(),
		EncryptErrors:             c.encryptErrors.Load(),
		DecryptErrors:             c.decryptErrors.Load(),
		ProtocolErrors:            c.protocolErrors.Load(),
		HandshakeLatency:          c.handshakeLatency.Summary(),
		EncryptLatency:            c.encryptLatency.Summary(),
		DecryptLatency:            c.decryptLatency.Summary(),
		Labels:                    c.labels,
	}
}

// Reset clears all metrics (useful for testing).
func (c *Collector) Reset() {
	c.sessionsActive.Store(0)
	c.sessionsTotal.Store(0)
	c.sessionsFailed.Store(0)
	c.bytesSent.Store(0)
	c.bytesReceived.Store(0)
	c.recordsSent.Store(0)
	c.recordsRecv.Store(0)
	c.alertsReceived.Store(0)
	c.closeNotifyReceived.Store(0)
	c.certificateVerifyFailures.Store(0)
	c.badRecordMacErrors.Store(0)
	c.encryptErrors.Store(0)
	c.decryptErrors.Store(0)
	c.protocolErrors.Store(0)
	c.handshakeLatency.Reset()
	c.encryptLatency.Reset()
	c.decryptLatency.Reset()
	c.createdAt = time.Now()
}

// --- Global Collector ---

var (
	globalCollector     *Collector
	globalCollectorOnce sync.Once
)

// Global returns the global metrics collector.
// Creates one with default settings if not already initialized.
func Global() *Collector {
	globalCollectorOnce.Do(func() {
		if globalCollector == nil {
			globalCollector = NewCollector(Labels{"instance": "default"})
		}
	})
	return globalCollector
}

// SetGlobal sets the global metrics collector.
// Should be called during initialization before any metrics are recorded.
func SetGlobal(c *Collector) {
	globalCollector = c
}
