// Package metrics provides observability primitives for the client handshake
// and record-layer engine.
//
// # Overview
//
// The metrics package offers a complete observability solution including:
//   - Metrics collection (counters, gauges, histograms) for handshake and
//     record-layer events
//   - Prometheus-compatible metrics export
//   - Distributed tracing support (OpenTelemetry-compatible interface)
//   - Structured logging with levels
//
// # Quick Start
//
// Basic usage with global collector:
//
//	import "github.com/fenwick-labs/gotls/pkg/metrics"
//
//	// Record metrics
//	metrics.Global().SessionStarted()
//	metrics.Global().RecordHandshakeLatency(150 * time.Millisecond)
//	metrics.Global().RecordBytesSent(1024)
//
//	// Start Prometheus server
//	go metrics.ServePrometheus(":9090", metrics.Global(), "tls_client")
//
// # Metrics Collection
//
// The Collector type aggregates metrics from client sessions:
//
//	collector := metrics.NewCollector(metrics.Labels{
//		"instance": "node-1",
//		"region":   "us-west-2",
//	})
//
//	// Session metrics
//	collector.SessionStarted()
//	collector.SessionEnded()
//	collector.RecordHandshakeLatency(d)
//
//	// Traffic metrics
//	collector.RecordBytesSent(n)
//	collector.RecordBytesReceived(n)
//
//	// Security metrics
//	collector.RecordAlertReceived()
//	collector.RecordCertificateVerifyFailure()
//	collector.RecordBadRecordMac()
//
//	// Get snapshot
//	snap := collector.Snapshot()
//
// # Prometheus Export
//
// Export metrics in Prometheus format:
//
//	exporter := metrics.NewPrometheusExporter(collector, "tls_client")
//	http.Handle("/metrics", exporter.Handler())
//
// # Tracing
//
// The package provides a Tracer interface compatible with OpenTelemetry:
//
//	// Use the simple tracer for testing
//	tracer := metrics.NewSimpleTracer()
//	metrics.SetTracer(tracer)
//
//	// OpenTelemetry adapter (uses global provider)
//	otelTracer := metrics.NewOTelTracer("tls-client")
//	metrics.SetTracer(otelTracer)
//	// Build with -tags otel to enable the adapter.
//
//	// Start spans
//	ctx, end := metrics.StartSpan(ctx, metrics.SpanHandshake)
//	defer end(nil) // or end(err) on error
//
//	// Use with OpenTelemetry SDK (implement the Tracer interface)
//	// metrics.SetTracer(myOTelAdapter)
//
// # Structured Logging
//
// The Logger provides structured logging with levels:
//
//	logger := metrics.NewLogger(
//		metrics.WithLevel(metrics.LevelInfo),
//		metrics.WithFormat(metrics.FormatJSON),
//	).With(metrics.Fields{"service": "tls-client"})
//
//	logger.Info("session established", metrics.Fields{
//		"session_id": sessionID,
//		"cipher":     "AES-256-GCM",
//	})
//
//	// Child loggers
//	sessionLog := logger.Named("session").With(metrics.Fields{"id": sessionID})
//	sessionLog.Debug("encrypting data")
package metrics
