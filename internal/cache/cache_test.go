package cache

import (
	"strings"
	"testing"

	"github.com/fr33n0w/rweb"
	"github.com/fr33n0w/rweb/internal/events"
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

func TestStoreHTMLInjectsInterceptorExactlyOnce(t *testing.T) {
	c, err := New(t.TempDir(), nil, 0)
	require.NoError(t, err)
	peer := mustHash(t, hashOf("ab"))

	filename, err := c.StoreHTML(peer, "about.html", "<html><head></head><body>hi</body></html>")
	require.NoError(t, err)
	assert.True(t, LooksLikeHTMLArtifactName(filename))

	body, err := c.ReadHTML(filename)
	require.NoError(t, err)
	assert.Equal(t, 1, CountInterceptors(string(body)))
	assert.Contains(t, string(body), peer.String())
}

func TestStoreHTMLReinjectionStaysIdempotent(t *testing.T) {
	c, err := New(t.TempDir(), nil, 0)
	require.NoError(t, err)
	peer := mustHash(t, hashOf("cd"))

	already := `<html><head><script data-rweb-interceptor="1"></script></head><body></body></html>`

	filename, err := c.StoreHTML(peer, "about.html", already)
	require.NoError(t, err)

	body, err := c.ReadHTML(filename)
	require.NoError(t, err)
	assert.Equal(t, 1, CountInterceptors(string(body)))
}

func TestStoreHTMLPublishesEvent(t *testing.T) {
	bus := events.New()
	sub, unsub := bus.Subscribe(4)
	defer unsub()

	c, err := New(t.TempDir(), bus, 0)
	require.NoError(t, err)
	peer := mustHash(t, hashOf("ef"))

	filename, err := c.StoreHTML(peer, "about.html", "<html></html>")
	require.NoError(t, err)

	ev := <-sub
	assert.Equal(t, events.HTMLReceived, ev.Kind)
	assert.Equal(t, peer, ev.Peer)
	assert.Equal(t, "about.html", ev.Page)
	assert.Equal(t, filename, ev.Filename)
}

func TestStoreHTMLDedupesIdenticalResend(t *testing.T) {
	bus := events.New()
	sub, unsub := bus.Subscribe(4)
	defer unsub()

	c, err := New(t.TempDir(), bus, 0)
	require.NoError(t, err)
	peer := mustHash(t, hashOf("10"))

	first, err := c.StoreHTML(peer, "about.html", "<html>same</html>")
	require.NoError(t, err)
	<-sub

	second, err := c.StoreHTML(peer, "about.html", "<html>same</html>")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	select {
	case ev := <-sub:
		t.Fatalf("unexpected second event published: %+v", ev)
	default:
	}
}

func TestStoreFilesWritesByNameWithoutPrefix(t *testing.T) {
	c, err := New(t.TempDir(), nil, 0)
	require.NoError(t, err)
	peer := mustHash(t, hashOf("01"))

	stored, err := c.StoreFiles(peer, []rweb.FileAttachment{
		{Name: "photo.png", Bytes: []byte("\x89PNG\r\n\x1a\nrest")},
	})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "photo.png", stored[0].Filename)

	read, err := c.ReadFile("photo.png")
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG\r\n\x1a\nrest", string(read))
}

func TestStoreFilesOverwritesOnNameCollision(t *testing.T) {
	c, err := New(t.TempDir(), nil, 0)
	require.NoError(t, err)
	peer := mustHash(t, hashOf("02"))

	_, err = c.StoreFiles(peer, []rweb.FileAttachment{{Name: "note.txt", Bytes: []byte("first")}})
	require.NoError(t, err)
	_, err = c.StoreFiles(peer, []rweb.FileAttachment{{Name: "note.txt", Bytes: []byte("second")}})
	require.NoError(t, err)

	read, err := c.ReadFile("note.txt")
	require.NoError(t, err)
	assert.Equal(t, "second", string(read))
}

func TestStoreFilesRejectsPathTraversalInName(t *testing.T) {
	c, err := New(t.TempDir(), nil, 0)
	require.NoError(t, err)
	peer := mustHash(t, hashOf("03"))

	stored, err := c.StoreFiles(peer, []rweb.FileAttachment{{Name: "../../etc/passwd", Bytes: []byte("x")}})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "passwd", stored[0].Filename)
}

func TestStoreFilesPublishesEventPerAttachment(t *testing.T) {
	bus := events.New()
	sub, unsub := bus.Subscribe(4)
	defer unsub()

	c, err := New(t.TempDir(), bus, 0)
	require.NoError(t, err)
	peer := mustHash(t, hashOf("04"))

	_, err = c.StoreFiles(peer, []rweb.FileAttachment{
		{Name: "a.txt", Bytes: []byte("aa")},
		{Name: "b.txt", Bytes: []byte("bbb")},
	})
	require.NoError(t, err)

	first := <-sub
	second := <-sub
	assert.Equal(t, events.FileReceived, first.Kind)
	assert.Equal(t, "a.txt", first.Filename)
	assert.Equal(t, 2, first.Size)
	assert.Equal(t, "b.txt", second.Filename)
	assert.Equal(t, 3, second.Size)
}
