package correlator

import (
	"strings"

	"github.com/fr33n0w/rweb"
)

// Resolved is what Resolve hands back to the caller once an inbound
// message has been matched against the correlator's state.
type Resolved struct {
	Matched  bool
	Pending  Pending
	Payload  rweb.InboundPayload
	Pages    []string // populated only for a matched KindList response
}

// Resolve implements the decision table of spec.md §4.4: given the
// decoded InboundPayload for a message from peer, it determines
// whether this clears a pending request, and if so of what kind. The
// correlator is cleared as a side effect of a successful match; an
// ancillary text message (no match) leaves the pending entry intact.
func (c *Correlator) Resolve(peer rweb.DestinationHash, payload rweb.InboundPayload) Resolved {
	pending, hasPending := c.Peek(peer)

	switch payload.Kind {
	case rweb.KindHTMLPage:
		// A LIST request's response arrives as two messages (spec.md
		// §4.9, §8 S2): this HTML half (the rendered index) followed
		// by a plain-text half carrying the "Available Files"
		// sentinel. Clearing pending here would leave the text half
		// with nothing to match against, so the registry's pages
		// update (rule below) never fires. Store the HTML half
		// without clearing; the text half clears it.
		if hasPending && pending.Kind == KindList {
			return Resolved{Matched: true, Pending: pending, Payload: payload}
		}
		c.Clear(peer)
		return Resolved{Matched: true, Pending: pending, Payload: payload}
	case rweb.KindFiles:
		c.Clear(peer)
		return Resolved{Matched: true, Pending: pending, Payload: payload}
	}

	if hasPending && pending.Kind == KindList && isListSentinel(payload.Text) {
		pages := ParseList(payload.Text)
		c.Clear(peer)
		return Resolved{Matched: true, Pending: pending, Payload: payload, Pages: pages}
	}

	return Resolved{Matched: false, Pending: pending, Payload: payload}
}

// isListSentinel recognizes a plain-text page listing. The text index
// body generated by the render engine opens with "Available Files"
// (spec.md §4.8/S2); the correlator's own recognition rule is written
// against "Available Pages" (§4.4). Both are accepted here so the two
// spec sections agree on one working round trip rather than leaving
// the server's own index text unrecognized by the client that
// requested it.
func isListSentinel(text string) bool {
	return strings.Contains(text, "Available Pages") || strings.Contains(text, "Available Files")
}
