package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadServerConfigDefaults(t *testing.T) {
	dir := t.TempDir()

	c, err := LoadServerConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "rWeb Server", c.ServerName)
	assert.True(t, c.AutoAnnounceEnabled)
}

func TestLoadServerConfigJSONOverride(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{
		"server_name": "Node One",
		"auto_announce_interval": 60,
		"auto_announce_enabled": false
	}`), 0o644)
	require.NoError(t, err)

	c, err := LoadServerConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "Node One", c.ServerName)
	assert.Equal(t, float64(60), c.AutoAnnounceInterval.Seconds())
}

func TestSaveServerConfigRoundTrips(t *testing.T) {
	dir := t.TempDir()
	c := DefaultServerConfig(dir)
	c.ServerName = "Saved Node"
	c.AutoAnnounceEnabled = false

	require.NoError(t, SaveServerConfig(dir, &c))

	reloaded, err := LoadServerConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "Saved Node", reloaded.ServerName)
	assert.False(t, reloaded.AutoAnnounceEnabled)
}
