// messages.go defines the handshake message structs the decoder produces
// and the ClientHello encoder: one struct per message, with a Decode*
// function per received message and encoders for the messages the client
// sends.
package protocol

import (
	"github.com/fenwick-labs/gotls/internal/constants"
	qerrors "github.com/fenwick-labs/gotls/internal/errors"
)

// HandshakeHeader is the 4-byte msg_type(1) || length(3) prefix every
// handshake message carries (RFC 8446 §4).
type HandshakeHeader struct {
	Type   constants.HandshakeType
	Length uint32
}

// WriteHandshakeHeaderPlaceholder writes the message type and a
// zero-length placeholder, returning the offset PatchU24 should backpatch
// once the body has been written.
func WriteHandshakeHeaderPlaceholder(b *Buffer, typ constants.HandshakeType) (lenOffset int, err error) {
	if err := b.WriteU8(uint8(typ)); err != nil {
		return 0, err
	}
	return b.Length24Placeholder()
}

// ReadHandshakeHeader reads and validates a handshake message header,
// returning the header and a Decoder scoped to exactly its body.
func ReadHandshakeHeader(d *Decoder) (HandshakeHeader, *Decoder, error) {
	typ, err := d.ReadU8()
	if err != nil {
		return HandshakeHeader{}, nil, err
	}
	length, err := d.ReadU24()
	if err != nil {
		return HandshakeHeader{}, nil, err
	}
	body, err := d.ReadBytes(int(length))
	if err != nil {
		return HandshakeHeader{}, nil, err
	}
	return HandshakeHeader{Type: constants.HandshakeType(typ), Length: length}, NewDecoder(body), nil
}

// ClientHello is the message the client sends to begin every handshake.
type ClientHello struct {
	Random             [constants.ClientRandomSize]byte
	LegacySessionID    []byte // up to 32 bytes; compatibility only, never resumed
	CipherSuites       []constants.CipherSuite
	SupportedGroups    []constants.NamedGroup
	KeyShares          map[constants.NamedGroup][]byte // only populated when TLS 1.3 is offered
	SignatureAlgorithms []constants.SignatureScheme
	ServerName         string
	OfferTLS12         bool
	OfferTLS13         bool
}

var defaultSignatureAlgorithms = []constants.SignatureScheme{
	constants.SigSchemeECDSASecp256r1,
	constants.SigSchemeECDSASecp384r1,
	constants.SigSchemeRSAPSSRSAESHA256,
	constants.SigSchemeRSAPSSRSAESHA384,
	constants.SigSchemeRSAPSSRSAESHA512,
	constants.SigSchemeEd25519,
	constants.SigSchemeRSAPKCS1SHA1,
	constants.SigSchemeRSAPKCS1SHA256,
	constants.SigSchemeRSAPKCS1SHA384,
}

// Encode writes the ClientHello onto b in a fixed extension order:
// supported_versions, ec_point_formats, renegotiation_info,
// signed_certificate_timestamp, signature_algorithms, supported_groups,
// key_share (only if TLS 1.3 is offered), server_name.
func (ch *ClientHello) Encode(b *Buffer) error {
	lenOffset, err := WriteHandshakeHeaderPlaceholder(b, constants.HandshakeTypeClientHello)
	if err != nil {
		return err
	}

	if err := b.WriteBytes(VersionTLS12.Bytes()); err != nil {
		return err
	}
	if err := b.WriteBytes(ch.Random[:]); err != nil {
		return err
	}
	if err := b.WriteVector8(ch.LegacySessionID); err != nil {
		return err
	}

	cipherBytes := make([]byte, 0, 2*len(ch.CipherSuites))
	for _, cs := range ch.CipherSuites {
		cipherBytes = append(cipherBytes, byte(cs>>8), byte(cs))
	}
	if err := b.WriteVector16(cipherBytes); err != nil {
		return err
	}
	if err := b.WriteVector8([]byte{0x00}); err != nil { // legacy_compression_methods: null only
		return err
	}

	extOffset, err := b.Length16Placeholder()
	if err != nil {
		return err
	}
	if err := ch.encodeExtensions(b); err != nil {
		return err
	}
	b.PatchU16(extOffset)

	b.PatchU24(lenOffset)
	return nil
}

func (ch *ClientHello) encodeExtensions(b *Buffer) error {
	if ch.OfferTLS13 {
		versions := []Version{}
		if ch.OfferTLS13 {
			versions = append(versions, VersionTLS13)
		}
		if ch.OfferTLS12 {
			versions = append(versions, VersionTLS12)
		}
		if err := writeExtension(b, constants.ExtSupportedVersions, func(eb *Buffer) error {
			vb := make([]byte, 0, 2*len(versions))
			for _, v := range versions {
				vb = append(vb, v.Bytes()...)
			}
			return eb.WriteVector8(vb)
		}); err != nil {
			return err
		}
	}

	if err := writeExtension(b, constants.ExtECPointFormats, func(eb *Buffer) error {
		return eb.WriteVector8([]byte{0x00}) // uncompressed
	}); err != nil {
		return err
	}

	if err := writeExtension(b, constants.ExtRenegotiationInfo, func(eb *Buffer) error {
		return eb.WriteVector8(nil)
	}); err != nil {
		return err
	}

	if err := writeExtension(b, constants.ExtSignedCertificateTimestamp, func(eb *Buffer) error {
		return nil
	}); err != nil {
		return err
	}

	sigAlgos := ch.SignatureAlgorithms
	if len(sigAlgos) == 0 {
		sigAlgos = defaultSignatureAlgorithms
	}
	if err := writeExtension(b, constants.ExtSignatureAlgorithms, func(eb *Buffer) error {
		sb := make([]byte, 0, 2*len(sigAlgos))
		for _, s := range sigAlgos {
			sb = append(sb, byte(s>>8), byte(s))
		}
		return eb.WriteVector16(sb)
	}); err != nil {
		return err
	}

	if err := writeExtension(b, constants.ExtSupportedGroups, func(eb *Buffer) error {
		gb := make([]byte, 0, 2*len(ch.SupportedGroups))
		for _, g := range ch.SupportedGroups {
			gb = append(gb, byte(g>>8), byte(g))
		}
		return eb.WriteVector16(gb)
	}); err != nil {
		return err
	}

	if ch.OfferTLS13 {
		if err := writeExtension(b, constants.ExtKeyShare, func(eb *Buffer) error {
			ksOffset, err := eb.Length16Placeholder()
			if err != nil {
				return err
			}
			for _, group := range ch.SupportedGroups {
				share, ok := ch.KeyShares[group]
				if !ok {
					continue
				}
				if err := eb.WriteU16(uint16(group)); err != nil {
					return err
				}
				if err := eb.WriteVector16(share); err != nil {
					return err
				}
			}
			eb.PatchU16(ksOffset)
			return nil
		}); err != nil {
			return err
		}
	}

	if ch.ServerName != "" {
		if err := writeExtension(b, constants.ExtServerName, func(eb *Buffer) error {
			listOffset, err := eb.Length16Placeholder()
			if err != nil {
				return err
			}
			if err := eb.WriteU8(0); err != nil { // name_type: host_name
				return err
			}
			if err := eb.WriteVector16([]byte(ch.ServerName)); err != nil {
				return err
			}
			eb.PatchU16(listOffset)
			return nil
		}); err != nil {
			return err
		}
	}

	return nil
}

// writeExtension writes an extension's type, a 2-byte length placeholder,
// runs body to fill the extension_data, then backpatches the length.
func writeExtension(b *Buffer, typ constants.ExtensionType, body func(*Buffer) error) error {
	if err := b.WriteU16(uint16(typ)); err != nil {
		return err
	}
	offset, err := b.Length16Placeholder()
	if err != nil {
		return err
	}
	if err := body(b); err != nil {
		return err
	}
	b.PatchU16(offset)
	return nil
}

// ServerHello is the server's response, parsed by the handshake state
// machine. Extensions holds the extensions block already split by
// ParseExtensions, keyed by extension type.
type ServerHello struct {
	Random      [constants.ServerRandomSize]byte
	SessionID   []byte
	CipherSuite constants.CipherSuite
	Extensions  map[constants.ExtensionType][]byte
}

// DecodeServerHello parses a ServerHello message body (post-header).
func DecodeServerHello(d *Decoder) (*ServerHello, error) {
	if _, err := d.ReadBytes(2); err != nil { // legacy_version
		return nil, err
	}
	randomBytes, err := d.ReadBytes(constants.ServerRandomSize)
	if err != nil {
		return nil, err
	}
	sessionID, err := d.ReadVector8()
	if err != nil {
		return nil, err
	}
	cipherBytes, err := d.ReadBytes(2)
	if err != nil {
		return nil, err
	}
	if _, err := d.ReadU8(); err != nil { // legacy_compression_method
		return nil, err
	}

	exts := map[constants.ExtensionType][]byte{}
	if d.Remaining() > 0 {
		extBlock, err := d.ReadVector16()
		if err != nil {
			return nil, err
		}
		exts, err = ParseExtensions(extBlock)
		if err != nil {
			return nil, err
		}
	}

	sh := &ServerHello{
		SessionID:   append([]byte{}, sessionID...),
		CipherSuite: constants.CipherSuite(uint16(cipherBytes[0])<<8 | uint16(cipherBytes[1])),
		Extensions:  exts,
	}
	copy(sh.Random[:], randomBytes)
	return sh, nil
}

// ParseExtensions splits an extensions block into a type -> data map. No
// extension appears more than once in a conformant message; a later
// duplicate silently overwrites an earlier one rather than erroring, since
// nothing in this engine's scope depends on rejecting duplicates.
func ParseExtensions(block []byte) (map[constants.ExtensionType][]byte, error) {
	d := NewDecoder(block)
	out := map[constants.ExtensionType][]byte{}
	for !d.Eof() {
		typ, err := d.ReadU16()
		if err != nil {
			return nil, err
		}
		data, err := d.ReadVector16()
		if err != nil {
			return nil, err
		}
		out[constants.ExtensionType(typ)] = data
	}
	return out, nil
}

// CertificateEntry is one entry of a TLS 1.3 Certificate message's
// certificate_list (TLS 1.2's Certificate has no per-entry extensions, so
// Extensions is simply empty there).
type CertificateEntry struct {
	Data       []byte
	Extensions []byte
}

// CertificateMessage carries the server's certificate chain, leaf first.
type CertificateMessage struct {
	Entries []CertificateEntry
}

// DecodeCertificate12 parses a TLS 1.2 Certificate message body.
func DecodeCertificate12(d *Decoder) (*CertificateMessage, error) {
	listBytes, err := d.ReadVector24()
	if err != nil {
		return nil, err
	}
	ld := NewDecoder(listBytes)
	var entries []CertificateEntry
	for !ld.Eof() {
		cert, err := ld.ReadVector24()
		if err != nil {
			return nil, err
		}
		entries = append(entries, CertificateEntry{Data: append([]byte{}, cert...)})
	}
	return &CertificateMessage{Entries: entries}, nil
}

// DecodeCertificate13 parses a TLS 1.3 Certificate message body (leading
// certificate_request_context, per-entry extensions).
func DecodeCertificate13(d *Decoder) (*CertificateMessage, error) {
	if _, err := d.ReadVector8(); err != nil { // certificate_request_context, empty for server auth
		return nil, err
	}
	listBytes, err := d.ReadVector24()
	if err != nil {
		return nil, err
	}
	ld := NewDecoder(listBytes)
	var entries []CertificateEntry
	for !ld.Eof() {
		cert, err := ld.ReadVector24()
		if err != nil {
			return nil, err
		}
		exts, err := ld.ReadVector16()
		if err != nil {
			return nil, err
		}
		entries = append(entries, CertificateEntry{Data: append([]byte{}, cert...), Extensions: append([]byte{}, exts...)})
	}
	return &CertificateMessage{Entries: entries}, nil
}

// ServerKeyExchange carries the TLS 1.2 ECDHE parameters and signature.
type ServerKeyExchange struct {
	Group           constants.NamedGroup
	PublicKey       []byte
	SignatureScheme constants.SignatureScheme
	Signature       []byte
}

// DecodeServerKeyExchange parses a TLS 1.2 ServerKeyExchange body for the
// ECDHE case (the only key-exchange method this engine negotiates via
// ServerKeyExchange; RSA key transport sends none).
func DecodeServerKeyExchange(d *Decoder) (*ServerKeyExchange, error) {
	curveType, err := d.ReadU8()
	if err != nil {
		return nil, err
	}
	if curveType != 3 { // named_curve
		return nil, qerrors.ErrIllegalParameter
	}
	groupBytes, err := d.ReadU16()
	if err != nil {
		return nil, err
	}
	pubKey, err := d.ReadVector8()
	if err != nil {
		return nil, err
	}
	sigSchemeBytes, err := d.ReadU16()
	if err != nil {
		return nil, err
	}
	sig, err := d.ReadVector16()
	if err != nil {
		return nil, err
	}
	return &ServerKeyExchange{
		Group:           constants.NamedGroup(groupBytes),
		PublicKey:       append([]byte{}, pubKey...),
		SignatureScheme: constants.SignatureScheme(sigSchemeBytes),
		Signature:       append([]byte{}, sig...),
	}, nil
}

// CertificateVerify carries the TLS 1.3 server's signature over the
// transcript.
type CertificateVerify struct {
	SignatureScheme constants.SignatureScheme
	Signature       []byte
}

// DecodeCertificateVerify parses a CertificateVerify message body.
func DecodeCertificateVerify(d *Decoder) (*CertificateVerify, error) {
	schemeBytes, err := d.ReadU16()
	if err != nil {
		return nil, err
	}
	sig, err := d.ReadVector16()
	if err != nil {
		return nil, err
	}
	return &CertificateVerify{SignatureScheme: constants.SignatureScheme(schemeBytes), Signature: append([]byte{}, sig...)}, nil
}

// Finished carries the 1.2 PRF-based or 1.3 HMAC-based verify_data.
type Finished struct {
	VerifyData []byte
}

// EncodeFinished writes a Finished message with the given verify_data.
func EncodeFinished(b *Buffer, verifyData []byte) error {
	lenOffset, err := WriteHandshakeHeaderPlaceholder(b, constants.HandshakeTypeFinished)
	if err != nil {
		return err
	}
	if err := b.WriteBytes(verifyData); err != nil {
		return err
	}
	b.PatchU24(lenOffset)
	return nil
}

// DecodeFinished parses a Finished message body.
func DecodeFinished(d *Decoder, expectedLen int) (*Finished, error) {
	data, err := d.ReadBytes(expectedLen)
	if err != nil {
		return nil, err
	}
	if err := d.RequireEof(); err != nil {
		return nil, err
	}
	return &Finished{VerifyData: append([]byte{}, data...)}, nil
}

// EncryptedExtensions is the TLS 1.3 server's post-ServerHello extension
// block; this engine parses and discards its contents (none of the
// extensions it might carry change this engine's negotiated behavior).
type EncryptedExtensions struct {
	Raw []byte
}

// DecodeEncryptedExtensions parses (and discards) an EncryptedExtensions
// message body.
func DecodeEncryptedExtensions(d *Decoder) (*EncryptedExtensions, error) {
	block, err := d.ReadVector16()
	if err != nil {
		return nil, err
	}
	if err := d.RequireEof(); err != nil {
		return nil, err
	}
	return &EncryptedExtensions{Raw: append([]byte{}, block...)}, nil
}

// EncodeClientKeyExchangeECDHE writes a TLS 1.2 ClientKeyExchange carrying
// the client's ECDHE public point.
func EncodeClientKeyExchangeECDHE(b *Buffer, publicKey []byte) error {
	lenOffset, err := WriteHandshakeHeaderPlaceholder(b, constants.HandshakeTypeClientKeyExchange)
	if err != nil {
		return err
	}
	if err := b.WriteVector8(publicKey); err != nil {
		return err
	}
	b.PatchU24(lenOffset)
	return nil
}

// EncodeClientKeyExchangeRSA writes a TLS 1.2 ClientKeyExchange carrying
// the RSA-encrypted pre-master secret.
func EncodeClientKeyExchangeRSA(b *Buffer, encryptedPreMaster []byte) error {
	lenOffset, err := WriteHandshakeHeaderPlaceholder(b, constants.HandshakeTypeClientKeyExchange)
	if err != nil {
		return err
	}
	if err := b.WriteVector16(encryptedPreMaster); err != nil {
		return err
	}
	b.PatchU24(lenOffset)
	return nil
}

// NewSessionTicket is parsed only to be skipped: session resumption is out
// of scope, so tickets are accepted and discarded rather than stored.
type NewSessionTicket struct{}

// SkipNewSessionTicket advances past a NewSessionTicket message body
// without retaining any of it.
func SkipNewSessionTicket(d *Decoder) error {
	return d.Skip(d.Remaining())
}
