package registry

import (
	"os"
	"path/filepath"
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

func TestUpsertAndPersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discovered_servers.json")
	r := Load(path)

	h := mustHash(t, "00112233445566778899aabbccddeeff"[:32])
	require.NoError(t, r.Upsert(Peer{Hash: h, Name: "Node One", LastSeen: time.Now()}))

	assert.True(t, r.Known(h))

	reloaded := Load(path)
	p, ok := reloaded.Get(h)
	require.True(t, ok)
	assert.Equal(t, "Node One", p.Name)
}

func TestLoadMalformedFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "discovered_servers.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	r := Load(path)
	assert.Empty(t, r.Snapshot())
}

func TestSetPagesAndForget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "discovered_servers.json")
	r := Load(path)
	h := mustHash(t, "aabbccddeeff00112233445566778899"[:32])
	require.NoError(t, r.Upsert(Peer{Hash: h, Name: "X"}))

	require.NoError(t, r.SetPages(h, []string{"about.html", "help.html"}))
	p, _ := r.Get(h)
	assert.Equal(t, []string{"about.html", "help.html"}, p.Pages)

	require.NoError(t, r.Forget(h))
	assert.False(t, r.Known(h))
}
