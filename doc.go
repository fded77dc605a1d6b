// Package gotls implements a client-side TLS 1.2/1.3 handshake and
// record-layer engine: X25519/P-256/P-384 and a post-quantum X25519+Kyber768
// hybrid group for key exchange, AEAD and CBC-HMAC record protection, and
// pluggable certificate chain verification.
//
// # Quick Start
//
// Driving a handshake over a caller-supplied Transport and exchanging
// application data over the resulting session:
//
//	import (
//		"github.com/fenwick-labs/gotls/pkg/handshake"
//		"github.com/fenwick-labs/gotls/pkg/session"
//	)
//
//	cfg := handshake.DefaultConfig("example.com")
//	cfg.TrustStore = myTrustStore // nil skips chain verification
//
//	neg, err := handshake.Connect(cfg, transport)
//	sess := session.New(neg)
//	defer sess.Close()
//
//	sess.Write([]byte("hello"))
//	payload, err := sess.Read()
//
// # Package Structure
//
//   - pkg/handshake: client handshake state machine for both protocol versions
//   - pkg/session: the post-handshake record stream (Write/Read/Close)
//   - pkg/record: record-layer framing and per-direction cipher state
//   - pkg/crypto: key exchange, AEAD/CBC-HMAC ciphers, transcript hashing, KDFs
//   - pkg/protocol: wire message encoding/decoding and extension parsing
//   - pkg/metrics: metrics, Prometheus export, tracing, and structured logging
//   - internal/constants: protocol constants and security parameters
//   - internal/errors: typed errors, including alert translation
//
// # Security Properties
//
//   - Forward secrecy via ephemeral key exchange on every connection
//   - Post-quantum key exchange: X25519+Kyber768 hybrid group
//   - Authenticated encryption: AES-GCM, ChaCha20-Poly1305, or CBC-HMAC
//   - Certificate chain verification delegated to a caller-supplied TrustStore
//
// # Testing
//
//	go test ./...
//
// # References
//
//   - RFC 5246: The Transport Layer Security (TLS) Protocol Version 1.2
//   - RFC 8446: The Transport Layer Security (TLS) Protocol Version 1.3
//   - NIST FIPS 203: Module-Lattice-Based Key-Encapsulation Mechanism Standard
package gotls
