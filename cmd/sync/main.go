// Command sync runs one full sync pass and exits. Useful for cron-style
// deployments and for backfilling a fresh database without the server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	"github.com/codebyjaini/beezify/internal/alt"
	"github.com/codebyjaini/beezify/internal/beezie"
	"github.com/codebyjaini/beezify/internal/config"
	"github.com/codebyjaini/beezify/internal/pkg/ratelimit"
	"github.com/codebyjaini/beezify/internal/repository/postgres"
	syncpipe "github.com/codebyjaini/beezify/internal/sync"

	_ "github.com/lib/pq"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	maxPages := flag.Int("max-pages", 0, "cap listing pages per category (0 = unbounded)")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("No database configured (set DATABASE_URL or database.url)")
	}
	if *maxPages > 0 {
		cfg.Beezie.MaxPages = *maxPages
	}

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

	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := postgres.EnsureSchema(schemaCtx, db); err != nil {
		schemaCancel()
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	schemaCancel()

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

	stats := orchestrator.Run(context.Background())
	log.Printf("Sync complete: inserted=%d updated=%d failed=%d", stats.Inserted, stats.Updated, stats.Failed)
	if n, err := repo.Count(context.Background()); err == nil {
		log.Printf("Store now holds %d collectibles", n)
	}
	if stats.Failed > 0 && stats.Inserted == 0 && stats.Updated == 0 {
		os.Exit(1)
	}
}
