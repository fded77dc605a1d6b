package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/fenwick-labs/gotls/pkg/handshake"
	"github.com/fenwick-labs/gotls/pkg/metrics"
	"github.com/fenwick-labs/gotls/pkg/session"
)

func connectCommand() {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	addr := fs.String("addr", "", "host:port to dial")
	serverName := fs.String("server-name", "", "expected server name (SNI / hostname verification)")
	caBundle := fs.String("ca-bundle", "", "PEM CA bundle to verify the server chain against (default: skip chain verification)")
	httpPath := fs.String("http-path", "", "if set, send a minimal HTTP/1.1 GET for this path and print the response")
	timeout := fs.Duration("timeout", 10*time.Second, "dial timeout")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error, silent")
	logFormat := fs.String("log-format", "text", "log format: text or json")

	fs.Usage = func() {
		fmt.Println(`USAGE: tls-client connect [options]

Dial a server, complete a TLS 1.2/1.3 client handshake, and optionally
exchange an HTTP request/response over the resulting record stream.

OPTIONS:`)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[2:])

	if *addr == "" {
		fmt.Fprintln(os.Stderr, "connect: --addr is required")
		os.Exit(1)
	}

	logger := metrics.NewLogger(
		metrics.WithLevel(metrics.ParseLevel(*logLevel)),
		metrics.WithFormat(formatFromString(*logFormat)),
	).Named("tls-client")

	conn, err := net.DialTimeout("tcp", *addr, *timeout)
	if err != nil {
		logger.Error("dial failed", metrics.Fields{"error": err.Error()})
		os.Exit(1)
	}
	defer conn.Close()

	cfg := handshake.DefaultConfig(*serverName)
	if *caBundle != "" {
		ts, err := newCABundleTrustStore(*caBundle)
		if err != nil {
			logger.Error("loading CA bundle failed", metrics.Fields{"error": err.Error()})
			os.Exit(1)
		}
		cfg.TrustStore = ts
	} else {
		logger.Warn("no --ca-bundle given, skipping certificate chain verification")
	}

	observer := metrics.NewClientObserver(metrics.ClientObserverConfig{Logger: logger})
	observer.OnSessionStart()

	_, endSpan := observer.OnHandshakeStart(context.Background())
	neg, err := handshake.Connect(cfg, connTransport{conn})
	endSpan(err)
	if err != nil {
		observer.OnSessionFailed(err)
		logger.Error("handshake failed", metrics.Fields{"error": err.Error()})
		os.Exit(1)
	}

	logger.Info("handshake complete", metrics.Fields{
		"version": neg.Version.String(),
		"suite":   neg.Suite.String(),
		"group":   neg.Group.String(),
	})

	sess := session.New(neg)
	defer sess.Close()

	if *httpPath != "" {
		req := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", *httpPath, *serverName)
		if _, err := sess.Write([]byte(req)); err != nil {
			logger.Error("write failed", metrics.Fields{"error": err.Error()})
			os.Exit(1)
		}

		for {
			payload, err := sess.Read()
			if err != nil {
				logger.Error("read failed", metrics.Fields{"error": err.Error()})
				os.Exit(1)
			}
			if payload == nil {
				break
			}
			os.Stdout.Write(payload)
		}
	}

	observer.OnSessionEnd()
}

func formatFromString(s string) metrics.Format {
	if s == "json" {
		return metrics.FormatJSON
	}
	return metrics.FormatText
}
