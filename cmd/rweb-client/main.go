// Command rweb-client runs the browser peer role: it discovers [HTML]
// servers announced on the mesh, lets an operator (via the local HTTP
// API a UI shell sits on top of) request a page index, a page, or a
// file from a known peer, and caches what comes back (spec.md §2,
// §4.2-§4.6). CLI shape mirrors rweb-server's flag conventions.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fr33n0w/rweb"
	"github.com/fr33n0w/rweb/internal/cache"
	"github.com/fr33n0w/rweb/internal/config"
	"github.com/fr33n0w/rweb/internal/correlator"
	"github.com/fr33n0w/rweb/internal/discovery"
	"github.com/fr33n0w/rweb/internal/events"
	"github.com/fr33n0w/rweb/internal/historystore"
	"github.com/fr33n0w/rweb/internal/mesh"
	"github.com/fr33n0w/rweb/internal/registry"
)

func defaultStorage() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rweb_client"
	}
	return filepath.Join(home, ".rweb_client")
}

// sweepInterval is how often the correlator's Stale-TTL sweep runs
// (spec.md §7: "Idle pending entries older than a configurable TTL are
// swept"); independent of the TTL itself.
const sweepInterval = 15 * time.Second

func main() {
	storagePath := flag.String("storage", defaultStorage(), "storage path")
	identityPath := flag.String("identity", "", "path to identity directory (default: storage path)")
	displayName := flag.String("name", "", "local display name")
	apiAddr := flag.String("api-addr", "127.0.0.1:8787", "address for the local UI API/WebSocket server")
	flag.Parse()

	if err := os.MkdirAll(*storagePath, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "rweb-client: creating storage path: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadClientConfig(*storagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rweb-client: %v\n", err)
		os.Exit(1)
	}
	if *displayName != "" {
		cfg.DisplayName = *displayName
	}

	identityDir := *identityPath
	if identityDir == "" {
		identityDir = *storagePath
	}
	if err := os.MkdirAll(identityDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "rweb-client: creating identity path: %v\n", err)
		os.Exit(1)
	}
	id, err := rweb.LoadOrCreateIdentity(identityDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rweb-client: %v\n", err)
		os.Exit(1)
	}

	logger := rweb.NewLogger("rweb-client", "", true)

	bus := events.New()
	reg := registry.Load(filepath.Join(*storagePath, "discovered_servers.json"))
	hist := historystore.Load(*storagePath, cfg.HistoryLimit)
	contentCache, err := cache.New(*storagePath, bus, cfg.CacheMaxBytes)
	if err != nil {
		logger.Fatalf("rweb-client: %v", err)
	}
	corr := correlator.New(cfg.PendingRequestTTL, logger)

	// No real LXMF/Reticulum substrate is wired here (spec.md §1's
	// Non-goal): Loopback only reaches peers registered on the same
	// in-process Network, so a standalone rweb-client run this way
	// never observes a real server's announces. A real deployment
	// replaces transport below with one backed by an actual substrate
	// connection shared with the server(s) it talks to.
	network := mesh.NewNetwork()
	transport := mesh.NewLoopback(network, id.DestinationHash())
	adapter := mesh.New(transport)

	filter := discovery.New(adapter.LocalHash(), reg, bus, logger)
	adapter.OnAnnounce("lxmf.delivery", filter.HandleAnnounce)

	adapter.OnDelivery(func(source rweb.DestinationHash, bodyText string, fields rweb.Fields) {
		handleDelivery(logger, reg, corr, contentCache, hist, bus, source, bodyText, fields)
	})

	api := newAPI(adapter, reg, corr, contentCache, hist, bus, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, gctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{Addr: *apiAddr, Handler: api.routes()}
	group.Go(func() error {
		logger.Infof("rweb-client: UI API listening on %s", *apiAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("ui api: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := corr.Sweep(); n > 0 {
					logger.Infof("rweb-client: swept %d stale pending request(s)", n)
				}
			}
		}
	})

	logger.Infof("rweb-client: %s ready as %s", cfg.DisplayName, id.DestinationHash())
	<-gctx.Done()
	logger.Info("rweb-client: shutting down")
	if err := group.Wait(); err != nil {
		logger.Errorf("rweb-client: %v", err)
	}
	logger.Info("rweb-client: shutdown complete")
}

// handleDelivery implements the client side of spec.md §4.4's
// correlation table: decode the inbound payload, resolve it against
// the correlator, and route a match to the content cache, the peer
// registry (for a LIST response), or the history store.
func handleDelivery(
	logger *rweb.Logger,
	reg *registry.Registry,
	corr *correlator.Correlator,
	contentCache *cache.Cache,
	hist *historystore.Store,
	bus *events.Bus,
	source rweb.DestinationHash,
	bodyText string,
	fields rweb.Fields,
) {
	payload := rweb.DecodeInbound(bodyText, fields)
	resolved := corr.Resolve(source, payload)
	if !resolved.Matched {
		return
	}

	peerName := source.String()
	if p, ok := reg.Get(source); ok && p.Name != "" {
		peerName = p.Name
	}

	switch payload.Kind {
	case rweb.KindHTMLPage:
		page := resolved.Pending.PageName
		if page == "" {
			page = "index"
		}
		if _, err := contentCache.StoreHTML(source, page, payload.HTML); err != nil {
			logger.Errorf("rweb-client: caching html from %s: %v", source, err)
			return
		}
		if err := hist.AppendHistory(historystore.HistoryEntry{
			Peer: source, PeerName: peerName, ResourceName: page,
			Timestamp: time.Now(), Kind: historystore.KindPage,
		}); err != nil {
			logger.Errorf("rweb-client: appending history: %v", err)
		}
	case rweb.KindFiles:
		stored, err := contentCache.StoreFiles(source, payload.Files)
		if err != nil {
			logger.Errorf("rweb-client: caching files from %s: %v", source, err)
			return
		}
		for _, f := range stored {
			if err := hist.AppendHistory(historystore.HistoryEntry{
				Peer: source, PeerName: peerName, ResourceName: f.Filename,
				Timestamp: time.Now(), Kind: historystore.KindFile,
			}); err != nil {
				logger.Errorf("rweb-client: appending history: %v", err)
			}
		}
	default:
		if resolved.Pending.Kind == correlator.KindList {
			if err := reg.SetPages(source, resolved.Pages); err != nil {
				logger.Errorf("rweb-client: updating pages for %s: %v", source, err)
				return
			}
			bus.Publish(events.Event{Kind: events.PagesUpdated, Peer: source})
		}
	}
}

// api wires the registry/correlator/cache/history/bus into the local
// HTTP surface an external UI shell (out of scope per spec.md §1)
// consumes: plain success/failure JSON on operations, a WebSocket for
// the event stream, matching spec.md §7's "UI layer never sees
// structured error types" asymmetry.
type api struct {
	adapter *mesh.Adapter
	reg     *registry.Registry
	corr    *correlator.Correlator
	cache   *cache.Cache
	hist    *historystore.Store
	bus     *events.Bus
	log     *rweb.Logger
}

func newAPI(adapter *mesh.Adapter, reg *registry.Registry, corr *correlator.Correlator, c *cache.Cache, hist *historystore.Store, bus *events.Bus, log *rweb.Logger) *api {
	return &api{adapter: adapter, reg: reg, corr: corr, cache: c, hist: hist, bus: bus, log: log}
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/peers", a.handlePeers)
	mux.HandleFunc("/api/request", a.handleRequest)
	mux.HandleFunc("/api/history", a.handleHistory)
	mux.HandleFunc("/api/bookmarks", a.handleBookmarks)
	mux.HandleFunc("/api/cache/html/", a.handleCachedHTML)
	mux.HandleFunc("/api/cache/file/", a.handleCachedFile)
	mux.HandleFunc("/ws", a.bus.ServeWS)
	return mux
}

// handleCachedHTML serves one previously-cached, interceptor-injected
// HTML artifact by filename; the embedded view (out of scope per
// spec.md §1) renders this directly rather than issuing any request to
// the originating peer.
func (a *api) handleCachedHTML(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/cache/html/")
	body, err := a.cache.ReadHTML(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(body)
}

// handleCachedFile serves one previously-downloaded binary artifact by
// filename, for the UI shell to offer as a download.
func (a *api) handleCachedFile(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/cache/file/")
	body, err := a.cache.ReadFile(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(body)
}

func (a *api) handlePeers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.reg.Snapshot())
}

type requestBody struct {
	Peer string `json:"peer"`
	Kind string `json:"kind"` // "list", "page", "file"
	Page string `json:"page"`
}

type resultBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// handleRequest issues one outbound mesh request and returns only a
// success/failure boolean (spec.md §7): the eventual response, if any,
// arrives asynchronously over /ws as a cache/history-backed event.
func (a *api) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req requestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, resultBody{OK: false, Error: "bad request"})
		return
	}
	peer, err := rweb.ParseDestinationHash(req.Peer)
	if err != nil {
		writeJSON(w, resultBody{OK: false, Error: "bad peer hash"})
		return
	}

	var bodyText string
	fields := rweb.Fields{}
	switch req.Kind {
	case "list":
		a.corr.Issue(peer, correlator.KindList, "")
		bodyText = "list"
	case "page":
		a.corr.Issue(peer, correlator.KindPage, req.Page)
		fields[rweb.FieldHTMLRequest] = req.Page
	case "file":
		a.corr.Issue(peer, correlator.KindFile, req.Page)
		bodyText = "GET:" + req.Page
	default:
		writeJSON(w, resultBody{OK: false, Error: "unknown kind"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), mesh.PathWait+5*time.Second)
	defer cancel()
	if err := a.adapter.Send(ctx, peer, bodyText, fields); err != nil {
		a.corr.Clear(peer)
		a.log.Errorf("rweb-client: request to %s failed: %v", peer, err)
		writeJSON(w, resultBody{OK: false, Error: "unreachable"})
		return
	}
	writeJSON(w, resultBody{OK: true})
}

func (a *api) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.hist.History())
}

func (a *api) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, a.hist.Bookmarks())
	case http.MethodPost:
		var b struct {
			Name string `json:"name"`
			Peer string `json:"peer_hash"`
		}
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			writeJSON(w, resultBody{OK: false, Error: "bad request"})
			return
		}
		peer, err := rweb.ParseDestinationHash(b.Peer)
		if err != nil {
			writeJSON(w, resultBody{OK: false, Error: "bad peer hash"})
			return
		}
		if err := a.hist.AddBookmark(historystore.Bookmark{Name: b.Name, Peer: peer, AddedAt: time.Now()}); err != nil {
			writeJSON(w, resultBody{OK: false, Error: "persist failed"})
			return
		}
		writeJSON(w, resultBody{OK: true})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
