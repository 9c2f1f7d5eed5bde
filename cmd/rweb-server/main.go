// Command rweb-server runs the content-server peer role: it serves a
// pages directory over the mesh protocol, auto-announcing its [HTML]
// capability on a schedule and replying to GET:/list/file requests
// (spec.md §2, §4.9). CLI shape mirrors the original's argparse flags
// (spec.md §6).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fr33n0w/rweb"
	"github.com/fr33n0w/rweb/internal/config"
	"github.com/fr33n0w/rweb/internal/dispatch"
	"github.com/fr33n0w/rweb/internal/mesh"
	"github.com/fr33n0w/rweb/internal/pagestore"
	"github.com/fr33n0w/rweb/internal/render"
	"github.com/fr33n0w/rweb/internal/scheduler"
)

func defaultStorage() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rweb_server"
	}
	return filepath.Join(home, ".rweb_server")
}

func main() {
	storagePath := flag.String("storage", defaultStorage(), "storage path")
	identityPath := flag.String("identity", "", "path to identity directory (default: storage path)")
	name := flag.String("name", "", "server display name")
	announceInterval := flag.Int("announce-interval", 0, "auto-announce interval in seconds (default: 1800)")
	noAutoAnnounce := flag.Bool("no-auto-announce", false, "disable automatic announcements")
	showStats := flag.Bool("stats", false, "show statistics and exit")
	flag.Parse()

	startedAt := time.Now()

	if err := os.MkdirAll(*storagePath, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "rweb-server: creating storage path: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadServerConfig(*storagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rweb-server: %v\n", err)
		os.Exit(1)
	}
	if *name != "" {
		cfg.ServerName = *name
	}
	if *announceInterval > 0 {
		cfg.AutoAnnounceInterval = time.Duration(*announceInterval) * time.Second
	}
	if *noAutoAnnounce {
		cfg.AutoAnnounceEnabled = false
	}
	if err := config.SaveServerConfig(*storagePath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "rweb-server: saving config: %v\n", err)
		os.Exit(1)
	}

	identityDir := *identityPath
	if identityDir == "" {
		identityDir = *storagePath
	}
	if err := os.MkdirAll(identityDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "rweb-server: creating identity path: %v\n", err)
		os.Exit(1)
	}
	id, err := rweb.LoadOrCreateIdentity(identityDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rweb-server: %v\n", err)
		os.Exit(1)
	}

	logger := rweb.NewLogger("rweb-server", "", true)

	pagesDir := filepath.Join(*storagePath, "pages")
	if err := os.MkdirAll(pagesDir, 0o755); err != nil {
		logger.Fatalf("rweb-server: creating pages dir: %v", err)
	}

	accessLogPath := filepath.Join(*storagePath, "access.log")
	accessLog, err := os.OpenFile(accessLogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		logger.Fatalf("rweb-server: opening access log: %v", err)
	}
	defer accessLog.Close()

	store := pagestore.New(pagesDir, cfg.ExtraMimeTypes, 0)
	engine := render.New()
	disp := dispatch.New(store, engine, cfg.ServerName, accessLog)

	if *showStats {
		printStats(cfg, id, disp, startedAt)
		return
	}

	// No real LXMF/Reticulum substrate is wired here (spec.md §1's
	// Non-goal): Loopback only reaches peers registered on the same
	// in-process Network, so a standalone rweb-server run this way only
	// ever talks to itself. A real deployment replaces transport below
	// with a Transport backed by an actual substrate connection.
	network := mesh.NewNetwork()
	displayName := rweb.HTMLMarker + " " + cfg.ServerName
	transport := mesh.NewLoopback(network, id.DestinationHash())
	adapter := mesh.New(transport)

	adapter.OnDelivery(func(source rweb.DestinationHash, bodyText string, fields rweb.Fields) {
		// An index request yields two Responses (spec.md §4.9, §8 S2):
		// the HTML-content message and the plain-text index as a
		// separate send, in that order — never combined into one.
		for _, resp := range disp.Handle(source, bodyText, fields) {
			ctx, cancel := context.WithTimeout(context.Background(), mesh.PathWait+5*time.Second)
			err := adapter.Send(ctx, source, resp.BodyText, resp.Fields)
			cancel()
			if err != nil {
				logger.Errorf("rweb-server: replying to %s: %v", source, err)
			}
		}
	})

	sched := scheduler.New(cfg.AutoAnnounceInterval, cfg.AutoAnnounceEnabled, func() error {
		return adapter.AnnounceSelf(displayName)
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// errgroup runs the scheduler goroutine; after the signal wait,
	// sched.Stop ends its loop and group.Wait waits for it to return.
	// The scheduler goroutine always returns nil, so nothing in this
	// group triggers a shutdown on its own.
	group, _ := errgroup.WithContext(ctx)
	group.Go(func() error {
		sched.Run()
		return nil
	})

	logger.Infof("rweb-server: %s listening as %s", cfg.ServerName, id.DestinationHash())
	<-ctx.Done()

	logger.Info("rweb-server: shutting down")
	sched.Stop()
	if err := group.Wait(); err != nil {
		logger.Errorf("rweb-server: %v", err)
	}
	logger.Info("rweb-server: shutdown complete")
}

func printStats(cfg *config.ServerConfig, id *rweb.Identity, disp *dispatch.Dispatcher, startedAt time.Time) {
	uptime := time.Since(startedAt)
	fmt.Printf("Server name:      %s\n", cfg.ServerName)
	fmt.Printf("Destination hash: %s\n", id.DestinationHash())
	fmt.Printf("Requests served:  %d\n", disp.RequestCount())
	fmt.Printf("Uptime:           %s\n", uptime.Round(time.Second))
	fmt.Printf("Auto-announce:    %s\n", enabledLabel(cfg.AutoAnnounceEnabled))
	fmt.Printf("Announce interval: %ds (%dmin)\n",
		int(cfg.AutoAnnounceInterval/time.Second), int(cfg.AutoAnnounceInterval/time.Minute))
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}
