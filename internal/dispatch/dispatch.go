// Package dispatch implements the server-side Request Dispatcher
// (spec.md §4.9): it interprets an inbound message as a command or
// page request, resolves the requested page against the Page Store,
// and produces the outbound fields/body-text pair the Mesh Adapter
// should send back. Grounded on air's router.go for the "classify,
// then dispatch to one handler" shape, generalized from HTTP verbs and
// paths down to the spec's three-tier text/field command grammar.
package dispatch

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fr33n0w/rweb"
	"github.com/fr33n0w/rweb/internal/pagestore"
	"github.com/fr33n0w/rweb/internal/render"
	"golang.org/x/text/cases"
)

var foldCaser = cases.Fold()

// Response is what a Dispatcher hands the caller to send back over the
// mesh: BodyText always set, Fields holding FieldHTMLContent or
// FieldFileAttachments when the reply carries one.
type Response struct {
	BodyText string
	Fields   rweb.Fields
}

// Dispatcher parses inbound requests and resolves them against a
// pagestore.Store and render.Engine, matching a single ServerName's
// worth of content.
type Dispatcher struct {
	pages      *pagestore.Store
	engine     *render.Engine
	serverName string
	accessLog  io.Writer
	now        func() time.Time

	mu       sync.Mutex
	requests uint64
}

// New returns a Dispatcher. accessLog may be nil to discard access
// log lines (e.g. in tests).
func New(pages *pagestore.Store, engine *render.Engine, serverName string, accessLog io.Writer) *Dispatcher {
	return &Dispatcher{pages: pages, engine: engine, serverName: serverName, accessLog: accessLog, now: time.Now}
}

// RequestCount returns the number of requests served so far.
func (d *Dispatcher) RequestCount() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.requests
}

// classified is the result of interpreting one inbound message per
// spec.md §4.9's priority order.
type classified struct {
	isPage bool
	page   string
	ack    bool
	help   bool
}

// classify implements the input-interpretation priority order:
// FIELD_HTML_REQUEST beats body-text commands, which beat the
// fallback help text.
func classify(bodyText string, fields rweb.Fields) classified {
	if page, ok := fields.HTMLRequest(); ok {
		return classified{isPage: true, page: page}
	}

	trimmed := strings.TrimSpace(bodyText)
	folded := foldCaser.String(trimmed)

	switch folded {
	case "list", "pages", "dir", "ls", "_index", "_list", "index":
		return classified{isPage: true, page: "index"}
	case "announce", "hello", "ping":
		return classified{ack: true}
	}

	for _, prefix := range []string{"GET:", "get:"} {
		if strings.HasPrefix(trimmed, prefix) {
			return classified{isPage: true, page: trimmed[len(prefix):]}
		}
	}

	return classified{help: true}
}

const helpText = "Send 'list' for the page index, or 'GET:<filename>' to request a specific page."
const ackText = "pong"

// Handle interprets one inbound (bodyText, fields) pair from peer and
// returns the Response(s) to send back, in order, logging one
// access-log line per served request. Every case but the index yields
// exactly one Response; the index case yields two (spec.md §4.9, §8
// S2): an HTML-content message followed by a separate plain-text
// message, matching the original's two distinct sends rather than one
// combined message carrying both.
func (d *Dispatcher) Handle(peer rweb.DestinationHash, bodyText string, fields rweb.Fields) []Response {
	c := classify(bodyText, fields)

	switch {
	case c.ack:
		return []Response{{BodyText: ackText}}
	case c.help:
		return []Response{{BodyText: helpText}}
	default:
		return d.serve(peer, c.page)
	}
}

// serve implements the per-page-name serve logic of spec.md §4.9.
func (d *Dispatcher) serve(peer rweb.DestinationHash, page string) []Response {
	if render.IsIndexLike(page) {
		entries, err := d.pages.List()
		if err != nil {
			d.logAccess(peer, page, false)
			return []Response{{BodyText: fmt.Sprintf("404: %s", page)}}
		}
		htmlBody, textBody := d.engine.BuildIndex(d.serverName, entries)
		minified, err := d.engine.Minify(htmlBody)
		if err == nil {
			htmlBody = minified
		}
		d.logAccess(peer, page, true)
		return []Response{
			{
				BodyText: "File Index",
				Fields:   rweb.Fields{rweb.FieldHTMLContent: htmlBody},
			},
			{
				BodyText: textBody,
			},
		}
	}

	bytes, entry, err := d.pages.Read(page)
	if err != nil {
		d.logAccess(peer, page, false)
		return []Response{{
			BodyText: fmt.Sprintf("404: %s", page),
			Fields:   rweb.Fields{rweb.FieldHTMLContent: notFoundPage(page)},
		}}
	}

	if entry.Category == pagestore.CategoryHTML {
		pageCount, pageList := 0, ""
		if entries, err := d.pages.List(); err == nil {
			pageCount = len(entries)
			pageList = render.PageListFragment(entries)
		}
		content := d.engine.Substitute(string(bytes), pageCount, pageList)
		minified, err := d.engine.Minify(content)
		if err == nil {
			content = minified
		}
		d.logAccess(peer, page, true)
		return []Response{{
			BodyText: fmt.Sprintf("Serving: %s", page),
			Fields:   rweb.Fields{rweb.FieldHTMLContent: content},
		}}
	}

	d.logAccess(peer, page, true)
	return []Response{{
		BodyText: fmt.Sprintf("File: %s (%s)", page, render.HumanSize(entry.SizeBytes)),
		Fields: rweb.Fields{
			rweb.FieldFileAttachments: []rweb.FileAttachment{{Name: page, Bytes: bytes}},
		},
	}}
}

func notFoundPage(page string) string {
	return fmt.Sprintf("<!DOCTYPE html><html><head><title>404</title></head><body><h1>404</h1><p>%s was not found.</p></body></html>", page)
}

// logAccess writes one access-log line and bumps the request counter,
// per spec.md §4.9: "[timestamp] <peer_hex> requested '<P>' -
// SUCCESS|FAILED".
func (d *Dispatcher) logAccess(peer rweb.DestinationHash, page string, ok bool) {
	d.mu.Lock()
	d.requests++
	d.mu.Unlock()

	if d.accessLog == nil {
		return
	}
	status := "SUCCESS"
	if !ok {
		status = "FAILED"
	}
	fmt.Fprintf(d.accessLog, "[%s] %s requested '%s' - %s\n",
		d.now().Format("2006-01-02 15:04:05"), peer.String(), page, status)
}
