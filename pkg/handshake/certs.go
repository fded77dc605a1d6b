package handshake

import (
	"bytes"
	"crypto/x509"
	"time"

	qerrors "github.com/fenwick-labs/gotls/internal/errors"
	"github.com/fenwick-labs/gotls/pkg/protocol"
)

// verifyCertificateChain walks the server's DER-encoded chain, leaf first:
// it checks the leaf's hostname itself, then walks successor certificates,
// checking each against its predecessor's signature and attempting a
// trust-anchor lookup against every certificate it accepts into the chain
// along the way. A candidate successor whose issuer name doesn't match the
// predecessor is skipped rather than treated as fatal — servers routinely
// send an extra or out-of-order intermediate — but a name match that then
// fails signature verification is not tolerated.
//
// Parsing and issuer-signature linkage happen here, in the handshake
// engine itself, using the standard library's x509 decoder; only the
// final per-certificate anchor decision is deferred to the caller-supplied
// TrustStore.
func (h *clientHandshake) verifyCertificateChain(cert *protocol.CertificateMessage) error {
	if len(cert.Entries) == 0 {
		return qerrors.ErrCertificateIssuerNotFound
	}

	parsed := make([]*x509.Certificate, len(cert.Entries))
	chain := make([][]byte, len(cert.Entries))
	for i, e := range cert.Entries {
		c, err := x509.ParseCertificate(e.Data)
		if err != nil {
			return qerrors.NewCryptoError("x509.ParseCertificate", err)
		}
		parsed[i] = c
		chain[i] = e.Data
	}

	leaf := parsed[0]
	if h.cfg.ServerName != "" {
		if err := leaf.VerifyHostname(h.cfg.ServerName); err != nil {
			return qerrors.ErrHostnameMismatch
		}
	}

	ts := h.cfg.TrustStore
	now := time.Now().Unix()
	anchored := false

	tryAnchor := func(c *x509.Certificate) error {
		if ts == nil || anchored {
			return nil
		}
		err := ts.Verify(c, now)
		switch {
		case err == nil:
			anchored = true
		case qerrors.Is(err, qerrors.ErrCertificateIssuerNotFound):
			// Not a trust anchor; keep walking up the chain.
		default:
			return err
		}
		return nil
	}

	if err := tryAnchor(leaf); err != nil {
		return err
	}

	tail := leaf
	for i := 1; i < len(parsed) && !anchored; i++ {
		candidate := parsed[i]
		if err := verifyIssuerLink(tail, candidate); err != nil {
			if qerrors.Is(err, qerrors.ErrCertificateIssuerMismatch) {
				continue
			}
			return err
		}
		tail = candidate
		if err := tryAnchor(tail); err != nil {
			return err
		}
	}

	if ts != nil && !anchored {
		return qerrors.ErrCertificateIssuerNotFound
	}

	h.certChain = chain
	h.leafKey = leaf.PublicKey
	return nil
}

// verifyIssuerLink checks that candidate is child's issuer: name match
// first (a cheap filter that lets a non-chaining extra certificate be
// skipped instead of failing the whole chain), then the signature check
// against candidate's public key.
func verifyIssuerLink(child, candidate *x509.Certificate) error {
	if !bytes.Equal(child.RawIssuer, candidate.RawSubject) {
		return qerrors.ErrCertificateIssuerMismatch
	}
	if err := child.CheckSignatureFrom(candidate); err != nil {
		return qerrors.ErrCertificateSignatureInvalid
	}
	return nil
}
