package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/fenwick-labs/gotls/pkg/handshake"
	"github.com/fenwick-labs/gotls/pkg/metrics"
)

func benchCommand() {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	addr := fs.String("addr", "", "host:port to dial")
	serverName := fs.String("server-name", "", "expected server name")
	handshakes := fs.Int("handshakes", 10, "number of handshakes to run")
	timeout := fs.Duration("timeout", 10*time.Second, "dial timeout per attempt")

	fs.Usage = func() {
		fmt.Println(`USAGE: tls-client bench [options]

Run repeated client handshakes against a server and report latency
statistics.

OPTIONS:`)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[2:])

	if *addr == "" {
		fmt.Fprintln(os.Stderr, "bench: --addr is required")
		os.Exit(1)
	}

	collector := metrics.NewCollector(metrics.Labels{"addr": *addr})
	var failures int

	for i := 0; i < *handshakes; i++ {
		conn, err := net.DialTimeout("tcp", *addr, *timeout)
		if err != nil {
			failures++
			collector.SessionFailed()
			continue
		}

		cfg := handshake.DefaultConfig(*serverName)
		start := time.Now()
		_, err = handshake.Connect(cfg, connTransport{conn})
		elapsed := time.Since(start)
		conn.Close()

		if err != nil {
			failures++
			collector.SessionFailed()
			continue
		}
		collector.SessionStarted()
		collector.SessionEnded()
		collector.RecordHandshakeLatency(elapsed)
	}

	snap := collector.Snapshot()
	fmt.Printf("handshakes: %d attempted, %d failed\n", *handshakes, failures)
	fmt.Printf("latency: mean=%.2fms p50=%.2fms p99=%.2fms max=%.2fms\n",
		snap.HandshakeLatency.Mean,
		snap.HandshakeLatency.Percentile(0.50),
		snap.HandshakeLatency.Percentile(0.99),
		snap.HandshakeLatency.Max)
}
