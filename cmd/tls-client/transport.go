package main

import (
	"crypto/x509"
	"errors"
	"net"
	"os"
	"time"

	qerrors "github.com/fenwick-labs/gotls/internal/errors"
)

// connTransport adapts a net.Conn to record.Transport: Read is already
// satisfied, WriteAll loops until every byte clears the socket.
type connTransport struct {
	net.Conn
}

func (c connTransport) WriteAll(buf []byte) error {
	for len(buf) > 0 {
		n, err := c.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// caBundleTrustStore anchors a single certificate against a caller-supplied
// CA bundle. It never sees more than one certificate at a time and never
// the hostname — pkg/handshake's verifyCertificateChain owns the chain walk
// and the hostname check, and calls Verify once per certificate it wants
// anchored.
type caBundleTrustStore struct {
	roots *x509.CertPool
}

func newCABundleTrustStore(path string) (*caBundleTrustStore, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, qerrors.ErrCertificateIssuerNotFound
	}
	return &caBundleTrustStore{roots: pool}, nil
}

func (ts *caBundleTrustStore) Verify(cert *x509.Certificate, now int64) error {
	_, err := cert.Verify(x509.VerifyOptions{
		Roots:       ts.roots,
		CurrentTime: time.Unix(now, 0),
		KeyUsages:   []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err == nil {
		return nil
	}
	var unknownAuth x509.UnknownAuthorityError
	if errors.As(err, &unknownAuth) {
		return qerrors.ErrCertificateIssuerNotFound
	}
	return qerrors.ErrCertificateSignatureInvalid
}
