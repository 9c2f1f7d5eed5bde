package rweb

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggerDisabledEmitsNothing(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewLogger("rweb-test", "", false)
	l.Output = buf

	l.Info("hello")
	assert.Zero(t, buf.Len())
}

func TestLoggerEmitsJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	l := NewLogger("rweb-test", "", true)
	l.Output = buf

	l.Infof("peer %s discovered", "abc123")

	m := map[string]interface{}{}
	assert.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "rweb-test", m["app_name"])
	assert.Equal(t, "INFO", m["level"])
	assert.Equal(t, "peer abc123 discovered", m["message"])
}
