// extensions.go adds typed accessors over the extension map ParseExtensions
// produces: the handful of ServerHello/EncryptedExtensions extensions the
// handshake state machine actually inspects (supported_versions, key_share).
// Everything else server-sent is kept in the raw map and never interpreted.
package protocol

import (
	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
)

// SupportedVersion extracts the single negotiated version from a
// ServerHello's supported_versions extension (present only when the server
// is speaking TLS 1.3).
func SupportedVersion(exts map[constants.ExtensionType][]byte) (Version, bool) {
	data, ok := exts[constants.ExtSupportedVersions]
	if !ok || len(data) != 2 {
		return Version{}, false
	}
	return ParseVersion(data), true
}

// KeyShareEntry extracts the server's single key_share entry (ServerHello
// carries exactly one, unlike ClientHello's list).
func KeyShareEntry(exts map[constants.ExtensionType][]byte) (constants.NamedGroup, []byte, error) {
	data, ok := exts[constants.ExtKeyShare]
	if !ok {
		return 0, nil, qerrors.ErrIllegalParameter
	}
	d := NewDecoder(data)
	group, err := d.ReadU16()
	if err != nil {
		return 0, nil, err
	}
	share, err := d.ReadVector16()
	if err != nil {
		return 0, nil, err
	}
	return constants.NamedGroup(group), append([]byte{}, share...), nil
}
