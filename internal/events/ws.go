package events

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

// upgrader mirrors air's websocket.go defaults: no origin checking is
// imposed here because the shell this serves is always loopback-bound
// (spec.md §1 keeps authn/authz firmly out of scope for the core).
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wireEvent is the JSON shape pushed to a connected UI shell; Kind is
// rendered as a string so the shell doesn't need this package's
// numbering.
type wireEvent struct {
	Kind     string `json:"kind"`
	Peer     string `json:"peer,omitempty"`
	Name     string `json:"name,omitempty"`
	Page     string `json:"page,omitempty"`
	Filename string `json:"filename,omitempty"`
	Size     int    `json:"size,omitempty"`
}

var kindNames = map[Kind]string{
	ServerDiscovered: "server_discovered",
	PagesUpdated:     "pages_updated",
	HTMLReceived:     "html_received",
	FileReceived:     "file_received",
}

func (e Event) toWire() wireEvent {
	w := wireEvent{Kind: kindNames[e.Kind], Name: e.Name, Page: e.Page, Filename: e.Filename, Size: e.Size}
	if !e.Peer.IsZero() {
		w.Peer = e.Peer.String()
	}
	return w
}

// ServeWS upgrades r to a WebSocket and streams every subsequent Event
// to it as a JSON text message, until the client disconnects or a
// write fails. It is the narrow hook an external UI shell attaches to;
// nothing else in this package, or in any other SPEC_FULL component,
// depends on gorilla/websocket.
func (b *Bus) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	events, unsubscribe := b.Subscribe(64)
	defer unsubscribe()

	for ev := range events {
		b, err := json.Marshal(ev.toWire())
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
			return
		}
	}
}
