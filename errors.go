package rweb

import "errors"

// Sentinel error kinds, one per row of spec.md §7's error table. Call
// sites wrap these with fmt.Errorf("...: %w", Err...) to add context;
// callers that need to branch on kind use errors.Is.
var (
	// ErrSubstrateInit means the mesh adapter could not attach to the
	// underlying substrate. Fatal at startup.
	ErrSubstrateInit = errors.New("rweb: cannot attach to mesh substrate")

	// ErrPathUnreachable means a destination was not recalled after the
	// bounded path-request wait.
	ErrPathUnreachable = errors.New("rweb: destination path unreachable")

	// ErrDecode means malformed announce app-data, unreadable
	// persistence, or invalid JSON; the caller should log and skip the
	// offending item rather than abort.
	ErrDecode = errors.New("rweb: decode error")

	// ErrNotFound means a requested server-side file does not exist.
	ErrNotFound = errors.New("rweb: page not found")

	// ErrPathTraversal means a request resolved outside the pages
	// directory; the caller must fold this into ErrNotFound before it
	// reaches the wire, never leaking the reason.
	ErrPathTraversal = errors.New("rweb: path traversal rejected")

	// ErrSendFailure means the substrate rejected an outbound handoff.
	ErrSendFailure = errors.New("rweb: send failed")

	// ErrStale means a pending request exceeded its TTL and was
	// discarded without a response.
	ErrStale = errors.New("rweb: pending request stale")
)
