// Package handshake drives the client-side TLS 1.2/1.3 handshake state
// machine: building and sending ClientHello, branching on the negotiated
// version once ServerHello arrives, verifying the server's certificate
// chain and signature, and deriving the traffic keys that seed a
// pkg/session.Session.
package handshake

import (
	"crypto/x509"

	"github.com/fenwick-labs/gotls/internal/constants"
	"github.com/fenwick-labs/gotls/pkg/crypto"
	"github.com/fenwick-labs/gotls/pkg/protocol"
)

// TrustStore checks a single certificate against the client's trusted
// roots. verifyCertificateChain (certs.go) owns the chain-walking
// algorithm — hostname match, successor/predecessor signature linkage,
// per-link anchor lookup — and calls Verify once per certificate it wants
// checked against a trust anchor; TrustStore never sees more than one
// certificate, and never the hostname.
type TrustStore interface {
	// Verify reports whether cert chains to a trusted root as of now
	// (Unix seconds). It returns ErrCertificateIssuerNotFound when cert
	// simply isn't anchored by this store — the caller tries the next
	// link up the chain — and any other error for a condition that
	// should abort verification outright (malformed cert, expired
	// validity period, bad signature).
	Verify(cert *x509.Certificate, now int64) error
}

// PublicKeyForVerify is re-exported from pkg/crypto; it is the type of the
// leaf public key the handshake checks server signatures against.
type PublicKeyForVerify = crypto.PublicKeyForVerify

// StatsSink receives the negotiated handshake parameters once a handshake
// completes successfully. Implementations are free to ignore
// calls they don't care about; Connect never inspects the return value.
type StatsSink interface {
	// HandshakeComplete reports the parameters negotiated for this
	// connection. group is the zero value when RSA key-transport was
	// selected; scheme is the zero value when the server never produced a
	// signature (RSA key-transport again — ServerKeyExchange is absent).
	HandshakeComplete(version protocol.Version, suite constants.CipherSuite, group constants.NamedGroup, scheme constants.SignatureScheme)
}

// Config holds everything the client handshake needs that isn't part of
// the wire protocol itself.
type Config struct {
	ServerName string

	// SupportedGroups lists key-exchange groups in preference order. Every
	// entry populates supported_groups and, when TLS 1.3 is offered, gets
	// its own entry in the ClientHello's key_share.
	SupportedGroups []constants.NamedGroup

	CipherSuites13 []constants.CipherSuite
	CipherSuites12 []constants.CipherSuite

	// TrustStore validates the server's certificate chain. A nil
	// TrustStore means "skip verification", an explicit no-CA-bundle
	// insecure-testing mode — callers must opt into this deliberately, it
	// is never the zero-value default behavior assumed silently.
	TrustStore TrustStore

	RandomSource crypto.RandomSource

	// MaxRecordScratch sizes the single reusable buffer the handshake and
	// subsequent session traffic share, with headroom for the largest
	// expected certificate chain.
	MaxRecordScratch int

	// StatsSink, if set, is notified once with the negotiated parameters
	// on successful handshake completion.
	StatsSink StatsSink
}

// DefaultConfig returns a Config offering every group and suite this
// engine implements, using the system random source and no certificate
// verification. Callers should set TrustStore before connecting to
// anything but a test server.
func DefaultConfig(serverName string) *Config {
	return &Config{
		ServerName: serverName,
		SupportedGroups: []constants.NamedGroup{
			constants.GroupX25519Kyber768,
			constants.GroupX25519,
			constants.GroupSecp256r1,
			constants.GroupSecp384r1,
		},
		CipherSuites13:   protocol.DefaultOffer13,
		CipherSuites12:   protocol.DefaultOffer12,
		RandomSource:     crypto.SystemRandom,
		MaxRecordScratch: constants.MaxRecordSize,
	}
}

func (c *Config) allCipherSuites() []constants.CipherSuite {
	all := make([]constants.CipherSuite, 0, len(c.CipherSuites13)+len(c.CipherSuites12))
	all = append(all, c.CipherSuites13...)
	all = append(all, c.CipherSuites12...)
	return all
}
