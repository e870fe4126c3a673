// Package sync drives the category → listing → detail → enrich → persist
// pipeline. One logical thread of control per run: every network call and
// database write is issued sequentially to respect upstream rate limits.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/codebyjaini/beezify/internal/beezie"
	"github.com/codebyjaini/beezify/internal/domain"
	"github.com/codebyjaini/beezify/internal/pkg/logger"
	"github.com/codebyjaini/beezify/internal/pkg/ratelimit"
	"github.com/google/uuid"
)

// Lister fetches listing pages and per-item details from the marketplace.
type Lister interface {
	FetchPage(ctx context.Context, categoryID string, page, pageSize int) ([]beezie.ItemSummary, error)
	FetchDetail(ctx context.Context, tokenID int64) (*beezie.ItemDetail, error)
}

// Enricher augments a collectible with valuation data. Implementations must
// degrade internally and never fail the pipeline.
type Enricher interface {
	Enrich(ctx context.Context, c domain.Collectible) domain.EnrichmentResult
}

// Upserter persists canonical records and reports per-row outcomes.
type Upserter interface {
	Upsert(ctx context.Context, items []domain.Collectible) domain.RunStats
}

// Options tune one orchestrator.
type Options struct {
	Categories []domain.Category
	PageSize   int
	// PagePacer gates listing pages, ItemPacer gates consecutive items.
	// Nil pacers default to no delay.
	PagePacer ratelimit.Pacer
	ItemPacer ratelimit.Pacer
}

// Orchestrator runs the full sync pipeline across the configured categories.
// Failures are isolated at the smallest enclosing scope: a bad item costs one
// Failed count, a bad category costs one Failed count plus its remaining
// pages, and nothing short of process death aborts a run. There is no
// run-level lock: overlapping runs race on merge order but converge, because
// the upsert merge is null-coalescing with unconditional price/timestamp.
type Orchestrator struct {
	lister     Lister
	enricher   Enricher
	upserter   Upserter
	categories []domain.Category
	pageSize   int
	pagePacer  ratelimit.Pacer
	itemPacer  ratelimit.Pacer

	mu        sync.RWMutex
	running   bool
	lastRun   time.Time
	lastStats domain.RunStats
}

// New creates an orchestrator.
func New(lister Lister, enricher Enricher, upserter Upserter, opts Options) *Orchestrator {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 40
	}
	pagePacer := opts.PagePacer
	if pagePacer == nil {
		pagePacer = ratelimit.None()
	}
	itemPacer := opts.ItemPacer
	if itemPacer == nil {
		itemPacer = ratelimit.None()
	}
	return &Orchestrator{
		lister:     lister,
		enricher:   enricher,
		upserter:   upserter,
		categories: opts.Categories,
		pageSize:   pageSize,
		pagePacer:  pagePacer,
		itemPacer:  itemPacer,
	}
}

// Run executes one full sync pass over all categories and returns the folded
// statistics. Categories are processed sequentially; one category's failure
// never aborts the run. Nothing is retried within a run — the next run starts
// over from page zero and re-converges through upsert idempotence.
func (o *Orchestrator) Run(ctx context.Context) domain.RunStats {
	runID := uuid.New().String()
	start := time.Now()

	o.mu.Lock()
	o.running = true
	o.mu.Unlock()

	logger.Info("sync run started", "run_id", runID, "categories", len(o.categories))

	var total domain.RunStats
	for _, cat := range o.categories {
		if err := o.syncCategory(ctx, runID, cat, &total); err != nil {
			logger.Error("category sync failed", "run_id", runID, "category", cat.Name, "error", err)
			total.Failed++
		}
	}

	o.mu.Lock()
	o.running = false
	o.lastRun = time.Now()
	o.lastStats = total
	o.mu.Unlock()

	logger.Info("sync run completed",
		"run_id", runID,
		"duration", time.Since(start).Round(time.Second).String(),
		"inserted", total.Inserted,
		"updated", total.Updated,
		"failed", total.Failed,
	)
	return total
}

// syncCategory pages through one category, processing every item immediately.
// A page-level fetch error aborts the category's remaining pages and is
// counted once by the caller; per-item failures are counted here and the
// loop continues.
func (o *Orchestrator) syncCategory(ctx context.Context, runID string, cat domain.Category, total *domain.RunStats) error {
	logger.Info("category sync started",
		"run_id", runID, "category", cat.Name, "category_id", cat.ID, "expected", cat.ExpectedCount)

	processed := 0
	for page := 0; ; page++ {
		if page > 0 {
			if err := o.pagePacer.Wait(ctx); err != nil {
				return err
			}
		}

		items, err := o.lister.FetchPage(ctx, cat.ID, page, o.pageSize)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			break
		}

		for i, item := range items {
			if processed > 0 || i > 0 {
				if err := o.itemPacer.Wait(ctx); err != nil {
					return err
				}
			}
			processed++
			total.Add(o.processItem(ctx, runID, item.TokenID))
		}

		logger.Info("category progress",
			"run_id", runID, "category", cat.Name,
			"processed", processed, "expected", cat.ExpectedCount,
			"inserted", total.Inserted, "updated", total.Updated, "failed", total.Failed)

		if len(items) < o.pageSize {
			break
		}
	}

	logger.Info("category sync complete", "run_id", runID, "category", cat.Name, "processed", processed)
	return nil
}

// processItem assembles one canonical record end to end and persists it as a
// single-item batch. The record is never partially persisted: normalize and
// enrich both finish before the one upsert call. A detail-fetch failure
// counts the item failed; a degraded enrichment only logs.
func (o *Orchestrator) processItem(ctx context.Context, runID string, tokenID int64) domain.RunStats {
	detail, err := o.lister.FetchDetail(ctx, tokenID)
	if err != nil {
		logger.Warn("item detail fetch failed", "run_id", runID, "token_id", tokenID, "error", err)
		return domain.RunStats{Failed: 1}
	}

	record := beezie.Normalize(detail)
	record.ApplyEnrichment(o.enricher.Enrich(ctx, record))

	return o.upserter.Upsert(ctx, []domain.Collectible{record})
}

// IsRunning reports whether a run is currently in flight.
func (o *Orchestrator) IsRunning() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.running
}

// LastRun returns the completion time and stats of the most recent run.
func (o *Orchestrator) LastRun() (time.Time, domain.RunStats) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastRun, o.lastStats
}
