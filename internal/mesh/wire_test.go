package mesh

import (
	"testing"

	"github.com/fr33n0w/rweb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFieldsRoundTripsHTMLContent(t *testing.T) {
	fields := rweb.Fields{rweb.FieldHTMLContent: "<html></html>"}
	b, err := EncodeFields(fields)
	require.NoError(t, err)

	decoded, err := DecodeFields(b)
	require.NoError(t, err)
	html, ok := decoded.HTMLContent()
	require.True(t, ok)
	assert.Equal(t, "<html></html>", html)
}

func TestEncodeDecodeFieldsRoundTripsFileAttachments(t *testing.T) {
	fields := rweb.Fields{
		rweb.FieldFileAttachments: []rweb.FileAttachment{{Name: "a.txt", Bytes: []byte("hi")}},
	}
	b, err := EncodeFields(fields)
	require.NoError(t, err)

	decoded, err := DecodeFields(b)
	require.NoError(t, err)
	atts, ok := decoded.FileAttachments()
	require.True(t, ok)
	require.Len(t, atts, 1)
	assert.Equal(t, "a.txt", atts[0].Name)
	assert.Equal(t, []byte("hi"), atts[0].Bytes)
}

func TestDecodeFieldsRejectsMalformedBytes(t *testing.T) {
	_, err := DecodeFields([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestEncodeFieldsOmitsAbsentFields(t *testing.T) {
	b, err := EncodeFields(rweb.Fields{})
	require.NoError(t, err)

	decoded, err := DecodeFields(b)
	require.NoError(t, err)
	_, hasHTML := decoded.HTMLContent()
	_, hasFiles := decoded.FileAttachments()
	assert.False(t, hasHTML)
	assert.False(t, hasFiles)
}
