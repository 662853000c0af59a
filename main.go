// The 3A control loop service: it receives ISP
// statistics frames over UDP, drives the algorithm engine, records the
// resulting decisions, and serves a monitoring HTTP interface.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gmykhailiuta/libcamera/api"
	"github.com/gmykhailiuta/libcamera/internal/config"
	"github.com/gmykhailiuta/libcamera/internal/ipa/aiq"
	"github.com/gmykhailiuta/libcamera/internal/ipa/engine"
	"github.com/gmykhailiuta/libcamera/internal/ipa/iaiq"
	"github.com/gmykhailiuta/libcamera/internal/ipa/params"
	"github.com/gmykhailiuta/libcamera/internal/ipadb"
	"github.com/gmykhailiuta/libcamera/internal/pipeline"
)

var (
	configPath  = flag.String("config", "", "Path to JSON config file (optional)")
	listen      = flag.String("listen", "", "HTTP listen address (overrides config)")
	statsListen = flag.String("stats-listen", "", "UDP statistics listen address (overrides config)")
	dbPath      = flag.String("db", "", "Decision store path (overrides config)")
)

func main() {
	flag.Parse()

	cfg := &config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *listen != "" {
		cfg.HTTPListenAddr = listen
	}
	if *statsListen != "" {
		cfg.StatsListenAddr = statsListen
	}
	if *dbPath != "" {
		cfg.DBPath = dbPath
	}

	// An empty store path disables decision recording.
	var db *ipadb.DB
	var sessionID string
	depth := cfg.GetPipelineDepth()

	if path := cfg.GetDBPath(); path != "" {
		var err error
		db, err = ipadb.New(path)
		if err != nil {
			log.Fatalf("Failed to open decision store: %v", err)
		}
		defer db.Close()
	}

	var onDecision func(frame uint32, d *iaiq.Decision)
	if db != nil {
		// sessionID is assigned once the engine is up, before any
		// statistics arrive.
		onDecision = func(frame uint32, d *iaiq.Decision) {
			if err := db.RecordDecision(sessionID, int64(frame), int64(frame)+int64(depth), d); err != nil {
				log.Printf("failed to record decision for frame %d: %v", frame, err)
			}
		}
	}

	session := aiq.New(aiq.Config{
		TuningPath: cfg.GetTuningBlobPath(),
		NVMPath:    cfg.GetNVMBlobPath(),
		AIQDPath:   cfg.GetAIQDBlobPath(),
		NewEngine:  engine.New,
		OnDecision: onDecision,
	})
	if err := session.Init(); err != nil {
		log.Fatalf("Failed to initialise 3A session: %v", err)
	}
	defer session.Close()

	if db != nil {
		var err error
		sessionID, err = db.BeginSession(session.Degraded())
		if err != nil {
			log.Fatalf("Failed to record session: %v", err)
		}
	}

	loop := pipeline.NewLoop(pipeline.LoopConfig{
		Session: session,
		Depth:   depth,
		// The parameter buffer would be handed to the ISP driver here;
		// without camera hardware attached the encoded buffers are only
		// observable through the decision store.
		Sink: func(frame uint32, buf *params.Buffer) {},
	})

	listener := pipeline.NewUDPListener(pipeline.UDPListenerConfig{
		Address:     cfg.GetStatsListenAddr(),
		RcvBuf:      cfg.GetStatsRcvBuf(),
		LogInterval: cfg.GetLogInterval(),
		Loop:        loop,
	})

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the listener routine to receive statistics frames
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := listener.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("statistics listener failed: %v", err)
			stop()
		}
		log.Print("statistics listener terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		server := api.NewServer(api.ServerConfig{
			Address: cfg.GetHTTPListenAddr(),
			Session: session,
			DB:      db,
		})

		// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
		if db != nil {
			if err := db.AttachAdminRoutes(server.Mux()); err != nil {
				log.Printf("failed to attach admin routes: %v", err)
			}
		}

		if err := server.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("HTTP server failed: %v", err)
			stop()
		}
	}()

	// Wait for all goroutines to finish
	wg.Wait()

	if db != nil {
		if err := db.EndSession(sessionID, session.FrameCount()); err != nil {
			log.Printf("failed to record session end: %v", err)
		}
	}
	log.Printf("Graceful shutdown complete")
}
