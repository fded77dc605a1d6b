// Package errors defines the error kinds used throughout the handshake and
// record-layer engine: sentinel values for the outcomes a caller branches
// on, plus wrapper types that attach operation context without discarding
// the underlying sentinel for errors.Is/As.
package errors

import (
	"errors"
	"fmt"

	"github.com/fenwick-labs/gotls/internal/constants"
)

// Sentinel errors for protocol-layer failures.
var (
	ErrBadVersion                          = errors.New("tls: bad protocol version")
	ErrUnexpectedMessage                   = errors.New("tls: unexpected handshake message")
	ErrIllegalParameter                    = errors.New("tls: illegal parameter")
	ErrUnsupportedFragmentedHandshake      = errors.New("tls: unsupported fragmented handshake message")
	ErrRecordOverflow                      = errors.New("tls: record overflow")
	ErrDecodeError                         = errors.New("tls: decode error")
	ErrServerHelloRetryRequest             = errors.New("tls: server requested HelloRetryRequest")
	ErrEndOfStream                         = errors.New("tls: end of stream")
	ErrBufferOverflow                      = errors.New("tls: buffer overflow")
)

// Sentinel errors for cryptographic failures.
var (
	ErrBadRecordMac           = errors.New("tls: bad record mac")
	ErrDecryptError           = errors.New("tls: decrypt error")
	ErrDecryptFailure         = errors.New("tls: decrypt failure")
	ErrBadSignatureScheme     = errors.New("tls: bad signature scheme")
	ErrUnknownSignatureScheme = errors.New("tls: unknown signature scheme")
	ErrBadRsaSignatureBitCount = errors.New("tls: unsupported RSA modulus size")
	ErrInvalidEncoding        = errors.New("tls: invalid encoding")

	// Key-material validation errors used throughout pkg/crypto's key-pair
	// and KEM wrappers.
	ErrInvalidKeySize    = errors.New("tls: invalid key size")
	ErrInvalidPublicKey  = errors.New("tls: invalid public key")
	ErrInvalidPrivateKey = errors.New("tls: invalid private key")
	ErrInvalidCiphertext = errors.New("tls: invalid ciphertext")
)

// Sentinel errors for certificate-chain validation.
var (
	ErrCertificateIssuerNotFound    = errors.New("tls: certificate issuer not found")
	ErrCertificateIssuerMismatch    = errors.New("tls: certificate issuer mismatch")
	ErrCertificateSignatureInvalid  = errors.New("tls: certificate signature invalid")
	ErrHostnameMismatch             = errors.New("tls: hostname mismatch")
)

// ErrServerSideClosure names a peer-initiated closure. The client record
// stream does not return it: session.Session.Read reports close_notify as
// (nil, nil), a clean end of stream.
var ErrServerSideClosure = errors.New("tls: server closed the connection")

// CryptoError wraps a cryptographic failure with the operation that
// produced it.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *CryptoError) Unwrap() error { return e.Err }

func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// ProtocolError wraps a protocol-layer failure with the handshake/record
// phase it occurred in.
type ProtocolError struct {
	Phase string
	Err   error
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("tls %s: %v", e.Phase, e.Err) }
func (e *ProtocolError) Unwrap() error { return e.Err }

func NewProtocolError(phase string, err error) *ProtocolError {
	return &ProtocolError{Phase: phase, Err: err}
}

// AlertError represents a fatal or warning alert received from the peer.
// The teacher has no equivalent (its VPN protocol has no remote-alert
// concept); this follows the same wrap-with-context shape as CryptoError
// and ProtocolError above.
type AlertError struct {
	Level       constants.AlertLevel
	Description constants.AlertDescription
}

func (e *AlertError) Error() string {
	return fmt.Sprintf("tls: alert %s: %s", alertLevelString(e.Level), alertDescriptionString(e.Description))
}

func alertLevelString(l constants.AlertLevel) string {
	if l == constants.AlertLevelFatal {
		return "fatal"
	}
	return "warning"
}

func alertDescriptionString(d constants.AlertDescription) string {
	switch d {
	case constants.AlertCloseNotify:
		return "close_notify"
	case constants.AlertUnexpectedMessage:
		return "unexpected_message"
	case constants.AlertBadRecordMac:
		return "bad_record_mac"
	case constants.AlertRecordOverflow:
		return "record_overflow"
	case constants.AlertHandshakeFailure:
		return "handshake_failure"
	case constants.AlertBadCertificate:
		return "bad_certificate"
	case constants.AlertCertificateExpired:
		return "certificate_expired"
	case constants.AlertCertificateUnknown:
		return "certificate_unknown"
	case constants.AlertIllegalParameter:
		return "illegal_parameter"
	case constants.AlertUnknownCA:
		return "unknown_ca"
	case constants.AlertDecodeError:
		return "decode_error"
	case constants.AlertDecryptError:
		return "decrypt_error"
	case constants.AlertProtocolVersion:
		return "protocol_version"
	case constants.AlertInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// IsCloseNotify reports whether err is an AlertError carrying close_notify.
func IsCloseNotify(err error) bool {
	var ae *AlertError
	if As(err, &ae) {
		return ae.Description == constants.AlertCloseNotify
	}
	return false
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return errors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return errors.As(err, target) }
