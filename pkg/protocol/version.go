// Package protocol implements the wire encoding the handshake and record
// layer speak: the buffered writer and cursor decoder (C1), the TLS
// version type, and the handshake message structs the decoder produces.
package protocol

// Version is a TLS protocol version, wire-encoded as major.minor
// (RFC 5246 §A.1 / RFC 8446 §4.1.2 legacy_version).
type Version struct {
	Major uint8
	Minor uint8
}

var (
	VersionTLS12 = Version{Major: 3, Minor: 3}
	// VersionTLS13Legacy is the legacy_version value TLS 1.3 still puts on
	// the wire (0x0303); actual 1.3 negotiation happens via the
	// supported_versions extension, never this field.
	VersionTLS13Legacy = Version{Major: 3, Minor: 3}
	// VersionTLS13 is the real version carried inside the
	// supported_versions extension.
	VersionTLS13 = Version{Major: 3, Minor: 4}
)

// Bytes returns the version as its 2-byte wire encoding.
func (v Version) Bytes() []byte {
	return []byte{v.Major, v.Minor}
}

// Uint16 returns the version as a 16-bit value (major << 8 | minor).
func (v Version) Uint16() uint16 {
	return uint16(v.Major)<<8 | uint16(v.Minor)
}

// ParseVersion parses a version from its 2-byte wire encoding.
func ParseVersion(data []byte) Version {
	if len(data) < 2 {
		return Version{}
	}
	return Version{Major: data[0], Minor: data[1]}
}

func (v Version) String() string {
	switch v.Uint16() {
	case 0x0303:
		return "TLS 1.2"
	case 0x0304:
		return "TLS 1.3"
	default:
		return "unknown"
	}
}
