// Package rweb implements a small web-over-mesh application layer on top
// of an LXMF/Reticulum-style mesh messaging substrate. It carries the
// types and constants shared by both peer roles: the content server
// (cmd/rweb-server) and the browser client (cmd/rweb-client).
package rweb

import (
	"encoding/hex"
	"errors"
	"strings"
)

// Field tags used in the LXMF message field map. These are the only
// integers the wire protocol in this package understands; the mesh
// package's EncodeFields carries only these three and drops any other
// tag in a field map.
const (
	// FieldFileAttachments carries a server->client list of (filename,
	// bytes) pairs.
	FieldFileAttachments = 2

	// FieldHTMLContent carries a server->client rendered HTML body.
	FieldHTMLContent = 10

	// FieldHTMLRequest carries a client->server requested page name.
	FieldHTMLRequest = 11
)

// HTMLMarker is the canonical capability tag that a display name must
// contain for its destination to be treated as an HTML content server.
// The looser substring match ("HTML" anywhere in the name) is accepted
// for tolerance but is second-class; see IsHTMLServerName.
const HTMLMarker = "[HTML]"

// DestinationHashSize is the byte length of a DestinationHash, matching
// the substrate's destination hash size.
const DestinationHashSize = 16

// DestinationHash is an opaque mesh destination identifier. Equality is
// by bytes; the canonical textual form is lowercase hex with no
// surrounding delimiters.
type DestinationHash [DestinationHashSize]byte

// ErrInvalidHash is returned when a hex string cannot be parsed into a
// DestinationHash.
var ErrInvalidHash = errors.New("rweb: invalid destination hash")

// ParseDestinationHash decodes the canonical lowercase-hex form (no
// surrounding <> or 0x) into a DestinationHash.
func ParseDestinationHash(s string) (DestinationHash, error) {
	var h DestinationHash
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != DestinationHashSize {
		return h, ErrInvalidHash
	}
	copy(h[:], b)
	return h, nil
}

// String renders h in its canonical lowercase-hex form.
func (h DestinationHash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero-value hash.
func (h DestinationHash) IsZero() bool {
	return h == DestinationHash{}
}

// FileAttachment is one (name, bytes) pair as carried by
// FieldFileAttachments.
type FileAttachment struct {
	Name  string
	Bytes []byte
}

// Fields is the small integer-keyed side-channel carried by every
// message. Values are one of string, []byte, or []FileAttachment; the
// Mesh Adapter is the only place that packs/unpacks it to wire bytes.
type Fields map[int]interface{}

// HTMLRequest returns the FieldHTMLRequest value, if present.
func (f Fields) HTMLRequest() (string, bool) {
	v, ok := f[FieldHTMLRequest]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// HTMLContent returns the FieldHTMLContent value, if present.
func (f Fields) HTMLContent() (string, bool) {
	v, ok := f[FieldHTMLContent]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// FileAttachments returns the FieldFileAttachments value, if present.
func (f Fields) FileAttachments() ([]FileAttachment, bool) {
	v, ok := f[FieldFileAttachments]
	if !ok {
		return nil, false
	}
	a, ok := v.([]FileAttachment)
	return a, ok
}

// InboundKind classifies an InboundPayload by shape.
type InboundKind uint8

// inbound payload kinds
const (
	KindText InboundKind = iota
	KindHTMLPage
	KindFiles
)

// InboundPayload is the typed sum the Mesh Adapter decodes a raw
// delivery into, replacing the substrate's untyped integer-keyed field
// map at every layer above C1.
type InboundPayload struct {
	Kind  InboundKind
	Text  string
	HTML  string
	Files []FileAttachment
}

// DecodeInbound classifies a raw body/fields pair into an InboundPayload
// the rest of the application can switch on, following the correlation
// priority of spec.md §4.4: an HTML content field (without an HTML
// request field, which would mark this as a server-side inbound
// instead) beats a file-attachments field, which beats plain text.
func DecodeInbound(bodyText string, fields Fields) InboundPayload {
	if _, isRequest := fields.HTMLRequest(); !isRequest {
		if html, ok := fields.HTMLContent(); ok {
			return InboundPayload{Kind: KindHTMLPage, HTML: html, Text: bodyText}
		}
	}
	if files, ok := fields.FileAttachments(); ok {
		return InboundPayload{Kind: KindFiles, Files: files, Text: bodyText}
	}
	return InboundPayload{Kind: KindText, Text: bodyText}
}

// IsHTMLServerName reports whether a display name advertises HTML
// content-server capability, and returns the presentation name with the
// marker stripped. The canonical form is the literal "[HTML]" prefix;
// the bare substring "HTML" anywhere is accepted as a second-class,
// over-broad match for tolerance (see spec's open question in §9).
func IsHTMLServerName(displayName string) (presentationName string, isHTMLServer bool) {
	if idx := strings.Index(displayName, HTMLMarker); idx >= 0 {
		stripped := displayName[:idx] + displayName[idx+len(HTMLMarker):]
		return trimOrUnknown(stripped), true
	}
	if strings.Contains(displayName, "HTML") {
		return trimOrUnknown(displayName), true
	}
	return "", false
}

func trimOrUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "Unknown Server"
	}
	return s
}
