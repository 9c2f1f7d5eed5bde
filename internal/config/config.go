// Package config loads the server and client configuration files named
// in spec.md §6's filesystem layout. It follows the teacher's decode
// style from air.Config/NewConfig: read the JSON file into a
// map[string]interface{}, then pull each field out with a type
// assertion and a documented default, rather than a single generic
// json.Unmarshal into the struct — so unrecognized or legacy keys are
// silently ignored exactly as the teacher's NewConfig ignores them.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
)

// ServerConfig mirrors the {enabled,transfer_mode,server_name,
// auto_announce_interval,auto_announce_enabled} shape of spec.md §6's
// config.json, plus the storage layout and an optional MIME-type
// override table.
type ServerConfig struct {
	StorageRoot          string
	Enabled              bool
	TransferMode         string
	ServerName           string
	AutoAnnounceInterval time.Duration
	AutoAnnounceEnabled  bool
	ExtraMimeTypes       map[string]string
}

// DefaultServerConfig returns the defaults applied before config.json
// (and an optional config.toml override) is read.
func DefaultServerConfig(storageRoot string) ServerConfig {
	return ServerConfig{
		StorageRoot:          storageRoot,
		Enabled:              true,
		TransferMode:         "direct",
		ServerName:           "rWeb Server",
		AutoAnnounceInterval: 1800 * time.Second,
		AutoAnnounceEnabled:  true,
	}
}

// LoadServerConfig reads <storageRoot>/config.json if present, then
// <storageRoot>/config.toml if present (the TOML file, when given, wins
// per-field), applying both atop DefaultServerConfig. A missing
// config.json is not an error: the defaults are used.
func LoadServerConfig(storageRoot string) (*ServerConfig, error) {
	c := DefaultServerConfig(storageRoot)

	jsonPath := filepath.Join(storageRoot, "config.json")
	if b, err := os.ReadFile(jsonPath); err == nil {
		var raw map[string]interface{}
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", jsonPath, err)
		}
		applyServerJSON(&c, raw)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: reading %s: %w", jsonPath, err)
	}

	tomlPath := filepath.Join(storageRoot, "config.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		var overlay map[string]interface{}
		if _, err := toml.DecodeFile(tomlPath, &overlay); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", tomlPath, err)
		}
		applyServerJSON(&c, overlay)
	}

	return &c, nil
}

func applyServerJSON(c *ServerConfig, raw map[string]interface{}) {
	if v, ok := raw["enabled"].(bool); ok {
		c.Enabled = v
	}
	if v, ok := raw["transfer_mode"].(string); ok {
		c.TransferMode = v
	}
	if v, ok := raw["server_name"].(string); ok {
		c.ServerName = v
	}
	if v, ok := raw["auto_announce_interval"].(float64); ok {
		c.AutoAnnounceInterval = time.Duration(v) * time.Second
	} else if v, ok := raw["auto_announce_interval"].(int64); ok {
		c.AutoAnnounceInterval = time.Duration(v) * time.Second
	}
	if v, ok := raw["auto_announce_enabled"].(bool); ok {
		c.AutoAnnounceEnabled = v
	}
	if v, ok := raw["extra_mime_types"]; ok {
		var m map[string]string
		if err := mapstructure.Decode(v, &m); err == nil {
			c.ExtraMimeTypes = m
		}
	}
}

// SaveServerConfig rewrites <storageRoot>/config.json from c, the way
// the original CLI persists flag overrides (--name, --announce-interval,
// --no-auto-announce) back to disk so the next run without flags picks
// them back up.
func SaveServerConfig(storageRoot string, c *ServerConfig) error {
	raw := map[string]interface{}{
		"enabled":                c.Enabled,
		"transfer_mode":          c.TransferMode,
		"server_name":            c.ServerName,
		"auto_announce_interval": int(c.AutoAnnounceInterval / time.Second),
		"auto_announce_enabled":  c.AutoAnnounceEnabled,
	}
	if c.ExtraMimeTypes != nil {
		raw["extra_mime_types"] = c.ExtraMimeTypes
	}

	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(storageRoot, 0o755); err != nil {
		return fmt.Errorf("config: creating %s: %w", storageRoot, err)
	}
	path := filepath.Join(storageRoot, "config.json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("config: writing %s: %w", tmp, err)
	}
	return os.Rename(tmp, path)
}

// ClientConfig is the analogous client-side configuration: storage
// layout, the cache's in-memory ceiling, the local display name (shown
// in the client's startup log line; the client itself never
// announces), and the number of history entries retained.
type ClientConfig struct {
	StorageRoot      string
	DisplayName      string
	CacheMaxBytes    int
	HistoryLimit     int
	PendingRequestTTL time.Duration
}

// DefaultClientConfig returns the defaults applied before config.json is read.
func DefaultClientConfig(storageRoot string) ClientConfig {
	return ClientConfig{
		StorageRoot:       storageRoot,
		DisplayName:       "rWeb Client",
		CacheMaxBytes:     32 * 1024 * 1024,
		HistoryLimit:      100,
		PendingRequestTTL: 60 * time.Second,
	}
}

// LoadClientConfig reads <storageRoot>/config.json if present.
func LoadClientConfig(storageRoot string) (*ClientConfig, error) {
	c := DefaultClientConfig(storageRoot)

	path := filepath.Join(storageRoot, "config.json")
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &c, nil
	} else if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if v, ok := raw["display_name"].(string); ok {
		c.DisplayName = v
	}
	if v, ok := raw["cache_max_bytes"].(float64); ok {
		c.CacheMaxBytes = int(v)
	}
	if v, ok := raw["history_limit"].(float64); ok {
		c.HistoryLimit = int(v)
	}
	if v, ok := raw["pending_request_ttl_seconds"].(float64); ok {
		c.PendingRequestTTL = time.Duration(v) * time.Second
	}
	return &c, nil
}
