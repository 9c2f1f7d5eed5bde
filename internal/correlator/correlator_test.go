package correlator

import (
	"strings"
	"testing"
	"time"

	"github.com/fr33n0w/rweb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHash(t *testing.T, s string) rweb.DestinationHash {
	t.Helper()
	h, err := rweb.ParseDestinationHash(s)
	require.NoError(t, err)
	return h
}

// hashOf builds a valid 32-hex-char DestinationHash string by
// repeating pair, avoiding hand-counted literals.
func hashOf(pair string) string {
	return strings.Repeat(pair, 16)
}

func TestIssueEvictsPriorPending(t *testing.T) {
	c := New(time.Minute, nil)
	peer := mustHash(t, hashOf("ab"))

	c.Issue(peer, KindList, "")
	c.Issue(peer, KindPage, "about.html")

	p, ok := c.Peek(peer)
	require.True(t, ok)
	assert.Equal(t, KindPage, p.Kind)
}

func TestAtMostOnePendingPerPeer(t *testing.T) {
	c := New(time.Minute, nil)
	p1 := mustHash(t, hashOf("11"))
	p2 := mustHash(t, hashOf("22"))

	c.Issue(p1, KindList, "")
	c.Issue(p2, KindFile, "photo.png")

	_, ok1 := c.Peek(p1)
	_, ok2 := c.Peek(p2)
	assert.True(t, ok1)
	assert.True(t, ok2)
}

func TestSweepDropsStaleEntries(t *testing.T) {
	c := New(10*time.Millisecond, nil)
	peer := mustHash(t, hashOf("33"))
	c.Issue(peer, KindList, "")

	time.Sleep(20 * time.Millisecond)
	dropped := c.Sweep()
	assert.Equal(t, 1, dropped)

	_, ok := c.Peek(peer)
	assert.False(t, ok)
}

func TestResolveHTMLPageClearsPending(t *testing.T) {
	c := New(time.Minute, nil)
	peer := mustHash(t, hashOf("44"))
	c.Issue(peer, KindPage, "about.html")

	payload := rweb.DecodeInbound("Serving: about.html", rweb.Fields{rweb.FieldHTMLContent: "<html></html>"})
	r := c.Resolve(peer, payload)

	assert.True(t, r.Matched)
	_, stillPending := c.Peek(peer)
	assert.False(t, stillPending)
}

func TestResolveListSentinelParsesPages(t *testing.T) {
	c := New(time.Minute, nil)
	peer := mustHash(t, hashOf("55"))
	c.Issue(peer, KindList, "")

	text := "Available Files (2):\n\n  [1] about.html (1.0 KB)\n  [2] help.html (2.0 KB)\n"
	payload := rweb.DecodeInbound(text, rweb.Fields{})
	r := c.Resolve(peer, payload)

	assert.True(t, r.Matched)
	assert.Equal(t, []string{"about.html", "help.html"}, r.Pages)
}

// TestResolveListTwoMessageSequenceUpdatesPages mirrors the real
// dispatcher output for a LIST request (internal/dispatch.serve's
// index branch): an HTML-content-only message first, then a separate
// plain-text message carrying the "Available Files" sentinel. Unlike
// TestResolveListSentinelParsesPages, this does not hand Resolve an
// artificial empty Fields map for the sentinel message in isolation —
// it replays both halves in order against the same pending LIST entry,
// so a regression that clears pending on the first (HTML) half would
// be caught here.
func TestResolveListTwoMessageSequenceUpdatesPages(t *testing.T) {
	c := New(time.Minute, nil)
	peer := mustHash(t, hashOf("77"))
	c.Issue(peer, KindList, "")

	htmlPayload := rweb.DecodeInbound("File Index", rweb.Fields{rweb.FieldHTMLContent: "<html></html>"})
	htmlResolved := c.Resolve(peer, htmlPayload)
	assert.True(t, htmlResolved.Matched)
	assert.Equal(t, rweb.KindHTMLPage, htmlResolved.Payload.Kind)

	_, stillPending := c.Peek(peer)
	assert.True(t, stillPending, "the HTML half of a LIST response must not clear the pending entry")

	text := "Available Files (2):\n\n  [1] about.html (1.0 KB)\n  [2] help.html (2.0 KB)\n"
	textPayload := rweb.DecodeInbound(text, rweb.Fields{})
	textResolved := c.Resolve(peer, textPayload)

	assert.True(t, textResolved.Matched)
	assert.Equal(t, []string{"about.html", "help.html"}, textResolved.Pages)
	_, clearedAfter := c.Peek(peer)
	assert.False(t, clearedAfter)
}

func TestResolveAncillaryTextDoesNotClear(t *testing.T) {
	c := New(time.Minute, nil)
	peer := mustHash(t, hashOf("66"))
	c.Issue(peer, KindList, "")

	payload := rweb.DecodeInbound("pong", rweb.Fields{})
	r := c.Resolve(peer, payload)

	assert.False(t, r.Matched)
	_, stillPending := c.Peek(peer)
	assert.True(t, stillPending)
}
