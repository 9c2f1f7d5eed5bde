package render

import (
	"strings"
	"testing"

	"github.com/fr33n0w/rweb/internal/pagestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsIndexLike(t *testing.T) {
	assert.True(t, IsIndexLike(""))
	assert.True(t, IsIndexLike("INDEX"))
	assert.True(t, IsIndexLike("_list"))
	assert.False(t, IsIndexLike("about.html"))
}

func TestSubstitute(t *testing.T) {
	e := New()
	out := e.Substitute("pages: {{page_count}} at {{timestamp}} -> {{page_list}}", 2, "<a>x</a>")
	assert.Contains(t, out, "pages: 2 at")
	assert.Contains(t, out, "<a>x</a>")
	assert.NotContains(t, out, "{{")
}

func TestBuildIndexGroupsByCategory(t *testing.T) {
	e := New()
	entries := []pagestore.Entry{
		{Filename: "about.html", Category: pagestore.CategoryHTML},
		{Filename: "help.html", Category: pagestore.CategoryHTML},
		{Filename: "photo.png", Category: pagestore.CategoryImage, SizeBytes: 12345},
	}

	htmlBody, textBody := e.BuildIndex("Node", entries)
	assert.Contains(t, htmlBody, "LXMF HTML Server")
	assert.Contains(t, htmlBody, "about.html")
	assert.Contains(t, htmlBody, "help.html")
	assert.True(t, strings.Index(htmlBody, "HTML Pages") < strings.Index(htmlBody, "Images"))

	assert.Contains(t, textBody, "Available Files (3):")
	assert.Contains(t, textBody, "photo.png")
}

func TestMinifyStripsWhitespace(t *testing.T) {
	e := New()
	out, err := e.Minify("<html>  <body>  hi  </body>  </html>")
	require.NoError(t, err)
	assert.NotContains(t, out, "  ")
}
