package mesh

import (
	"fmt"

	"github.com/fr33n0w/rweb"
	"github.com/vmihailenco/msgpack"
)

// onDiskAttachment is the msgpack-encodable shape of one
// rweb.FileAttachment; msgpack can't encode []byte inside an
// interface{} map value without a concrete type to decode back into.
type onDiskAttachment struct {
	Name  string `msgpack:"name"`
	Bytes []byte `msgpack:"bytes"`
}

// wireFields is the msgpack-encodable shape of rweb.Fields: only the
// three field tags this protocol understands ever cross the wire, so
// the encoding is a concrete struct rather than a generic map.
type wireFields struct {
	HTMLContent     *string            `msgpack:"html_content,omitempty"`
	HTMLRequest     *string            `msgpack:"html_request,omitempty"`
	FileAttachments []onDiskAttachment `msgpack:"file_attachments,omitempty"`
}

// EncodeFields serializes fields to msgpack bytes, the wire format a
// byte-oriented Transport (one backed by a real datagram or stream
// link, unlike the in-process Loopback) exchanges over the substrate.
// This is msgpack because it's LXMF's own field-map encoding.
func EncodeFields(fields rweb.Fields) ([]byte, error) {
	var w wireFields
	if v, ok := fields.HTMLContent(); ok {
		w.HTMLContent = &v
	}
	if v, ok := fields.HTMLRequest(); ok {
		w.HTMLRequest = &v
	}
	if atts, ok := fields.FileAttachments(); ok {
		w.FileAttachments = make([]onDiskAttachment, len(atts))
		for i, a := range atts {
			w.FileAttachments[i] = onDiskAttachment{Name: a.Name, Bytes: a.Bytes}
		}
	}
	b, err := msgpack.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("mesh: encoding fields: %w", err)
	}
	return b, nil
}

// DecodeFields is the inverse of EncodeFields.
func DecodeFields(b []byte) (rweb.Fields, error) {
	var w wireFields
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("%w: decoding fields: %v", rweb.ErrDecode, err)
	}

	fields := rweb.Fields{}
	if w.HTMLContent != nil {
		fields[rweb.FieldHTMLContent] = *w.HTMLContent
	}
	if w.HTMLRequest != nil {
		fields[rweb.FieldHTMLRequest] = *w.HTMLRequest
	}
	if w.FileAttachments != nil {
		atts := make([]rweb.FileAttachment, len(w.FileAttachments))
		for i, a := range w.FileAttachments {
			atts[i] = rweb.FileAttachment{Name: a.Name, Bytes: a.Bytes}
		}
		fields[rweb.FieldFileAttachments] = atts
	}
	return fields, nil
}
