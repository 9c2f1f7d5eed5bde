package dispatch

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fr33n0w/rweb"
	"github.com/fr33n0w/rweb/internal/pagestore"
	"github.com/fr33n0w/rweb/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHash(t *testing.T, s string) rweb.DestinationHash {
	t.Helper()
	h, err := rweb.ParseDestinationHash(s)
	require.NoError(t, err)
	return h
}

func hashOf(pair string) string {
	return strings.Repeat(pair, 16)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "about.html"), []byte("<html><body>{{page_count}} pages</body></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.png"), []byte("\x89PNGdata"), 0o644))

	store := pagestore.New(dir, nil, 1<<20)
	engine := render.New()
	var log bytes.Buffer
	return New(store, engine, "Test Server", &log), &log
}

func TestHandleFieldRequestTakesPriorityOverBodyText(t *testing.T) {
	d, _ := newTestDispatcher(t)
	peer := mustHash(t, hashOf("aa"))

	resps := d.Handle(peer, "ping", rweb.Fields{rweb.FieldHTMLRequest: "about.html"})
	require.Len(t, resps, 1)
	resp := resps[0]
	assert.Contains(t, resp.BodyText, "Serving: about.html")
	html, ok := resp.Fields.HTMLContent()
	require.True(t, ok)
	assert.Contains(t, html, "pages")
}

func TestHandleListCommandServesIndex(t *testing.T) {
	d, _ := newTestDispatcher(t)
	peer := mustHash(t, hashOf("bb"))

	resps := d.Handle(peer, "LIST", rweb.Fields{})
	require.Len(t, resps, 2)

	htmlResp := resps[0]
	assert.Equal(t, "File Index", htmlResp.BodyText)
	_, ok := htmlResp.Fields.HTMLContent()
	assert.True(t, ok)

	textResp := resps[1]
	assert.Contains(t, textResp.BodyText, "Available Files")
	assert.Nil(t, textResp.Fields)
}

func TestHandlePingRepliesAck(t *testing.T) {
	d, _ := newTestDispatcher(t)
	peer := mustHash(t, hashOf("cc"))

	resps := d.Handle(peer, "ping", rweb.Fields{})
	require.Len(t, resps, 1)
	assert.Equal(t, ackText, resps[0].BodyText)
	assert.Nil(t, resps[0].Fields)
}

func TestHandleGetPrefixServesFile(t *testing.T) {
	d, _ := newTestDispatcher(t)
	peer := mustHash(t, hashOf("dd"))

	resps := d.Handle(peer, "GET:photo.png", rweb.Fields{})
	require.Len(t, resps, 1)
	resp := resps[0]
	assert.Contains(t, resp.BodyText, "File: photo.png")
	atts, ok := resp.Fields.FileAttachments()
	require.True(t, ok)
	require.Len(t, atts, 1)
	assert.Equal(t, "photo.png", atts[0].Name)
}

func TestHandleUnknownCommandReturnsHelp(t *testing.T) {
	d, _ := newTestDispatcher(t)
	peer := mustHash(t, hashOf("ee"))

	resps := d.Handle(peer, "what is this", rweb.Fields{})
	require.Len(t, resps, 1)
	assert.Equal(t, helpText, resps[0].BodyText)
}

func TestHandleMissingPageReturns404(t *testing.T) {
	d, _ := newTestDispatcher(t)
	peer := mustHash(t, hashOf("ff"))

	resps := d.Handle(peer, "GET:missing.html", rweb.Fields{})
	require.Len(t, resps, 1)
	assert.Contains(t, resps[0].BodyText, "404: missing.html")
}

func TestHandleWritesAccessLogAndCountsRequests(t *testing.T) {
	d, log := newTestDispatcher(t)
	peer := mustHash(t, hashOf("01"))

	d.Handle(peer, "GET:photo.png", rweb.Fields{})
	d.Handle(peer, "GET:missing.html", rweb.Fields{})

	assert.Equal(t, uint64(2), d.RequestCount())
	assert.Contains(t, log.String(), "requested 'photo.png' - SUCCESS")
	assert.Contains(t, log.String(), "requested 'missing.html' - FAILED")
	assert.Contains(t, log.String(), peer.String())
}
