package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codebyjaini/beezify/internal/alt"
	"github.com/codebyjaini/beezify/internal/api"
	"github.com/codebyjaini/beezify/internal/beezie"
	"github.com/codebyjaini/beezify/internal/config"
	"github.com/codebyjaini/beezify/internal/pkg/ratelimit"
	"github.com/codebyjaini/beezify/internal/repository/postgres"
	syncpipe "github.com/codebyjaini/beezify/internal/sync"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("Starting Beezify server...")

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("No database configured (set DATABASE_URL or database.url)")
	}
	if cfg.Sync.Token == "" {
		log.Println("Warning: SYNC_TOKEN not set — /api/sync will reject all requests")
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	// Database pool. An unreachable database at startup is fatal: the
	// service must not run degraded with no store behind it.
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime())

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Failed to ping database: %v", err)
	}
	pingCancel()
	log.Println("Connected to database")

	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := postgres.EnsureSchema(schemaCtx, db); err != nil {
		schemaCancel()
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	schemaCancel()

	// Clients and pipeline
	beezieClient := beezie.NewClient(beezie.Config{
		BaseURL:     cfg.Beezie.BaseURL,
		Timeout:     cfg.Beezie.Timeout(),
		PageSize:    cfg.Beezie.PageSize,
		MaxPages:    cfg.Beezie.MaxPages,
		PagePacer:   ratelimit.Every(cfg.Beezie.PageDelay()),
		DetailPacer: ratelimit.Every(cfg.Beezie.DetailDelay()),
	})

	var enricher syncpipe.Enricher = alt.NopEnricher{}
	if cfg.Alt.Enabled {
		altClient := alt.NewClient(alt.Config{
			BaseURL:  cfg.Alt.BaseURL,
			APIToken: cfg.Alt.APIToken,
			Timeout:  cfg.Alt.Timeout(),
		})
		enricher = alt.NewEnricher(altClient, ratelimit.Every(cfg.Alt.StepDelay()))
	} else {
		log.Println("ALT enrichment disabled (no ALT_API_TOKEN)")
	}

	repo := postgres.NewCollectibleRepo(db)

	orchestrator := syncpipe.New(beezieClient, enricher, repo, syncpipe.Options{
		Categories: cfg.Beezie.Categories,
		PageSize:   cfg.Beezie.PageSize,
		PagePacer:  ratelimit.Every(cfg.Beezie.PageDelay()),
		ItemPacer:  ratelimit.Every(cfg.Sync.ItemDelay()),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Scheduled syncs. External schedulers POSTing /api/sync work too.
	scheduler := syncpipe.NewScheduler(orchestrator, cfg.Sync.Interval(), cfg.Sync.RunOnStart)
	go scheduler.Start(ctx)

	handlers := api.NewHandlers(repo, orchestrator, db, cfg.Sync.Token)
	server := api.NewServer(cfg.Server, handlers)

	addr := fmt.Sprintf("%s:%d", host, port)
	go func() {
		log.Printf("Beezify server listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
