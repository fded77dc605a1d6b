package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
)

// PrometheusExporter exports a Collector's handshake/record-layer snapshot
// in Prometheus text format.
type PrometheusExporter struct {
	collector *Collector
	namespace string
}

// NewPrometheusExporter creates a new Prometheus exporter for the given collector.
// The namespace is prepended to all metric names (e.g., "tls_client").
func NewPrometheusExporter(c *Collector, namespace string) *PrometheusExporter {
	return &PrometheusExporter{
		collector: c,
		namespace: namespace,
	}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		e.WriteMetrics(w)
	})
}

// gauge marks a metric whose value can go up or down between scrapes
// (session counts); counter marks one that only accumulates.
const (
	kindGauge   = "gauge"
	kindCounter = "counter"
)

// scrapeMetric describes one scalar line of the exposition: its name,
// HELP text, Prometheus type, and how to pull its current value off a
// Snapshot. Driving WriteMetrics from this table keeps the session,
// traffic, security, and error groups from this engine's domain in one
// place instead of a long run of repeated write-triples.
type scrapeMetric struct {
	name string
	help string
	kind string
	val  func(Snapshot) float64
}

var scrapeMetrics = []scrapeMetric{
	{"sessions_active", "Number of currently active sessions", kindGauge, func(s Snapshot) float64 { return float64(s.SessionsActive) }},
	{"sessions_total", "Total number of sessions created", kindCounter, func(s Snapshot) float64 { return float64(s.SessionsTotal) }},
	{"sessions_failed_total", "Total number of failed session attempts", kindCounter, func(s Snapshot) float64 { return float64(s.SessionsFailed) }},

	{"bytes_sent_total", "Total application bytes sent", kindCounter, func(s Snapshot) float64 { return float64(s.BytesSent) }},
	{"bytes_received_total", "Total application bytes received", kindCounter, func(s Snapshot) float64 { return float64(s.BytesReceived) }},
	{"records_sent_total", "Total TLS records sent", kindCounter, func(s Snapshot) float64 { return float64(s.RecordsSent) }},
	{"records_received_total", "Total TLS records received", kindCounter, func(s Snapshot) float64 { return float64(s.RecordsRecv) }},

	{"alerts_received_total", "Total alerts received from the peer", kindCounter, func(s Snapshot) float64 { return float64(s.AlertsReceived) }},
	{"close_notify_received_total", "Total close_notify alerts received", kindCounter, func(s Snapshot) float64 { return float64(s.CloseNotifyReceived) }},
	{"certificate_verify_failures_total", "Total certificate chain verification failures", kindCounter, func(s Snapshot) float64 { return float64(s.CertificateVerifyFailures) }},
	{"bad_record_mac_errors_total", "Total records that failed AEAD/MAC authentication", kindCounter, func(s Snapshot) float64 { return float64(s.BadRecordMacErrors) }},

	{"encrypt_errors_total", "Total record encryption errors", kindCounter, func(s Snapshot) float64 { return float64(s.EncryptErrors) }},
	{"decrypt_errors_total", "Total record decryption errors", kindCounter, func(s Snapshot) float64 { return float64(s.DecryptErrors) }},
	{"protocol_errors_total", "Total protocol-layer errors", kindCounter, func(s Snapshot) float64 { return float64(s.ProtocolErrors) }},

	{"uptime_seconds", "Time since the collector was created", kindGauge, func(s Snapshot) float64 { return s.Uptime.Seconds() }},
}

// histogramMetric pairs a latency histogram's exposition name/help with
// the Snapshot field that holds it.
type histogramMetric struct {
	name string
	help string
	val  func(Snapshot) HistogramSummary
}

var histogramMetrics = []histogramMetric{
	{"handshake_duration_milliseconds", "Handshake duration in milliseconds", func(s Snapshot) HistogramSummary { return s.HandshakeLatency }},
	{"encrypt_duration_microseconds", "Record encryption duration in microseconds", func(s Snapshot) HistogramSummary { return s.EncryptLatency }},
	{"decrypt_duration_microseconds", "Record decryption duration in microseconds", func(s Snapshot) HistogramSummary { return s.DecryptLatency }},
}

// WriteMetrics writes all metrics in Prometheus text format to the writer.
func (e *PrometheusExporter) WriteMetrics(w io.Writer) {
	snap := e.collector.Snapshot()
	labels := e.formatLabels(snap.Labels)

	for _, m := range scrapeMetrics {
		e.writeMeta(w, m.name, m.help, m.kind)
		e.writeMetric(w, m.name, labels, m.val(snap))
	}
	for _, h := range histogramMetrics {
		e.writeHistogram(w, h.name, h.help, labels, h.val(snap))
	}
}

// writeMeta writes a metric's HELP and TYPE lines.
func (e *PrometheusExporter) writeMeta(w io.Writer, name, help, kind string) {
	fmt.Fprintf(w, "# HELP %s_%s %s\n", e.namespace, name, help)
	fmt.Fprintf(w, "# TYPE %s_%s %s\n", e.namespace, name, kind)
}

// writeMetric writes a single metric line.
func (e *PrometheusExporter) writeMetric(w io.Writer, name, labels string, value float64) {
	if labels != "" {
		fmt.Fprintf(w, "%s_%s{%s} %g\n", e.namespace, name, labels, value)
	} else {
		fmt.Fprintf(w, "%s_%s %g\n", e.namespace, name, value)
	}
}

// writeHistogram writes a histogram in Prometheus format.
func (e *PrometheusExporter) writeHistogram(w io.Writer, name, help, labels string, h HistogramSummary) {
	e.writeMeta(w, name, help, "histogram")

	fullName := e.namespace + "_" + name

	for _, b := range h.Buckets {
		le := fmt.Sprintf("%g", b.UpperBound)
		if math.IsInf(b.UpperBound, 1) {
			le = "+Inf"
		}
		if labels != "" {
			fmt.Fprintf(w, "%s_bucket{%s,le=\"%s\"} %d\n", fullName, labels, le, b.Count)
		} else {
			fmt.Fprintf(w, "%s_bucket{le=\"%s\"} %d\n", fullName, le, b.Count)
		}
	}

	if labels != "" {
		fmt.Fprintf(w, "%s_sum{%s} %g\n", fullName, labels, h.Sum)
		fmt.Fprintf(w, "%s_count{%s} %d\n", fullName, labels, h.Count)
	} else {
		fmt.Fprintf(w, "%s_sum %g\n", fullName, h.Sum)
		fmt.Fprintf(w, "%s_count %d\n", fullName, h.Count)
	}
}

// formatLabels converts Labels to Prometheus label format.
func (e *PrometheusExporter) formatLabels(labels Labels) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=\"%s\"", k, escapePromValue(labels[k])))
	}

	return strings.Join(parts, ",")
}

// promValueEscaper rewrites the three characters Prometheus's label-value
// grammar requires escaped, in a single pass.
var promValueEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// escapePromValue escapes a string for use as a Prometheus label value.
func escapePromValue(s string) string {
	return promValueEscaper.Replace(s)
}

// ServePrometheus starts an HTTP server serving this engine's metrics at
// /metrics under namespace. Intended for a standalone bench/diagnostic
// binary, not for embedding in a larger mux — see cmd/tls-client/bench.go.
func ServePrometheus(addr string, c *Collector, namespace string) error {
	exp := NewPrometheusExporter(c, namespace)
	mux := http.NewServeMux()
	mux.Handle("/metrics", exp.Handler())
	return http.ListenAndServe(addr, mux)
}
