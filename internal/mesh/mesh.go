// Package mesh implements the Mesh Adapter (spec.md §4.1, §6): a
// narrow facade over the external LXMF/Reticulum-style substrate.
// Identity creation, transport interfaces, announce propagation, path
// resolution, encryption and delivery belong to that substrate and are
// deliberately out of scope (spec.md §1); this package only adapts the
// substrate's contract — recall-or-request-path, bounded wait, send,
// announce, deliver — to the shapes the rest of the application uses.
// Grounded on the original implementation's identity-recall/
// request-path/wait loop in rWeb_server.py's _send_file and
// _send_html_content.
package mesh

import (
	"context"
	"fmt"
	"time"

	"github.com/fr33n0w/rweb"
	"golang.org/x/sync/singleflight"
)

// PathWait is the bounded wait for path resolution spec.md §5
// mandates ("path request, bounded wait ≤15 s"). A real substrate may
// resolve well before this; Send gives up and reports ErrPathUnreachable
// once it elapses.
const PathWait = 15 * time.Second

const pathPollInterval = 500 * time.Millisecond

// Transport is the narrow contract this package expects from the
// backing mesh substrate (spec.md §6's "Mesh substrate contract").
// A production binary supplies an implementation backed by a real
// LXMF/Reticulum router; Loopback (loopback.go) is the in-process
// reference implementation used for local demos and tests.
type Transport interface {
	// LocalHash returns this process's own destination hash.
	LocalHash() rweb.DestinationHash

	// HasPath reports whether dest is already resolvable without
	// blocking.
	HasPath(dest rweb.DestinationHash) bool

	// RequestPath asks the substrate to resolve dest; resolution, if
	// it happens, surfaces asynchronously via HasPath becoming true.
	RequestPath(dest rweb.DestinationHash) error

	// Send hands one outbound message to the substrate for delivery
	// to dest. It must not be called before HasPath(dest) is true.
	Send(dest rweb.DestinationHash, bodyText string, fields rweb.Fields) error

	// Announce broadcasts this process's destination with the given
	// display name as announce app-data.
	Announce(displayName string) error

	// RegisterAnnounceHandler registers fn to be called for every
	// observed announce; aspect mirrors the substrate's own
	// announce-handler aspect filter (spec.md §6).
	RegisterAnnounceHandler(aspect string, fn func(dest rweb.DestinationHash, appData []byte))

	// RegisterDeliveryCallback registers fn to be called for every
	// inbound message addressed to this process's destination.
	RegisterDeliveryCallback(fn func(source rweb.DestinationHash, bodyText string, fields rweb.Fields))
}

// Adapter is the Mesh Adapter (C1): it owns a Transport and adds the
// one behavior the raw contract doesn't give for free — a bounded,
// deduplicated wait for path resolution before Send.
type Adapter struct {
	transport Transport
	group     singleflight.Group
}

// New wraps transport as an Adapter.
func New(transport Transport) *Adapter {
	return &Adapter{transport: transport}
}

// LocalHash returns this process's own destination hash.
func (a *Adapter) LocalHash() rweb.DestinationHash {
	return a.transport.LocalHash()
}

// AnnounceSelf broadcasts displayName as this process's capability
// advertisement (spec.md §6: "the display name is the sole carrier of
// capability advertising").
func (a *Adapter) AnnounceSelf(displayName string) error {
	if err := a.transport.Announce(displayName); err != nil {
		return fmt.Errorf("%w: %v", rweb.ErrSubstrateInit, err)
	}
	return nil
}

// OnAnnounce registers fn against the substrate's announce handler.
func (a *Adapter) OnAnnounce(aspect string, fn func(dest rweb.DestinationHash, appData []byte)) {
	a.transport.RegisterAnnounceHandler(aspect, fn)
}

// OnDelivery registers fn against the substrate's delivery callback.
func (a *Adapter) OnDelivery(fn func(source rweb.DestinationHash, bodyText string, fields rweb.Fields)) {
	a.transport.RegisterDeliveryCallback(fn)
}

// Send resolves a path to dest if one isn't already known, waiting up
// to PathWait, then hands the message to the transport. Concurrent
// Sends to the same unresolved dest share one path-request via a
// singleflight.Group rather than each issuing their own.
func (a *Adapter) Send(ctx context.Context, dest rweb.DestinationHash, bodyText string, fields rweb.Fields) error {
	if !a.transport.HasPath(dest) {
		if err := a.awaitPath(ctx, dest); err != nil {
			return err
		}
	}
	if err := a.transport.Send(dest, bodyText, fields); err != nil {
		return fmt.Errorf("%w: %v", rweb.ErrSendFailure, err)
	}
	return nil
}

func (a *Adapter) awaitPath(ctx context.Context, dest rweb.DestinationHash) error {
	_, err, _ := a.group.Do(dest.String(), func() (interface{}, error) {
		if err := a.transport.RequestPath(dest); err != nil {
			return nil, fmt.Errorf("%w: %v", rweb.ErrPathUnreachable, err)
		}

		deadline := time.Now().Add(PathWait)
		ticker := time.NewTicker(pathPollInterval)
		defer ticker.Stop()

		for {
			if a.transport.HasPath(dest) {
				return nil, nil
			}
			if time.Now().After(deadline) {
				return nil, rweb.ErrPathUnreachable
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ticker.C:
			}
		}
	})
	return err
}
