package api

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codebyjaini/beezify/internal/domain"
	"github.com/codebyjaini/beezify/internal/pkg/httputil"
	"github.com/codebyjaini/beezify/internal/pkg/logger"
	"github.com/codebyjaini/beezify/internal/repository/postgres"
)

// Repository is the read side of the persisted store used by the query
// endpoints.
type Repository interface {
	List(ctx context.Context, f postgres.ListFilter) ([]domain.Collectible, error)
	Stats(ctx context.Context) (*domain.StoreStats, []domain.CategoryCount, []domain.GraderCount, error)
}

// SyncRunner triggers and reports on sync runs.
type SyncRunner interface {
	Run(ctx context.Context) domain.RunStats
	IsRunning() bool
	LastRun() (time.Time, domain.RunStats)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	repo      Repository
	runner    SyncRunner
	db        *sql.DB
	syncToken string
}

// NewHandlers creates the handler set.
func NewHandlers(repo Repository, runner SyncRunner, db *sql.DB, syncToken string) *Handlers {
	return &Handlers{repo: repo, runner: runner, db: db, syncToken: syncToken}
}

// HealthCheck reports process and database health plus the last sync time.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "connected"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			dbStatus = "error: " + err.Error()
		}
	} else {
		dbStatus = "not configured"
	}

	resp := map[string]interface{}{
		"status":   "ok",
		"database": dbStatus,
	}
	if h.runner != nil {
		lastRun, _ := h.runner.LastRun()
		if !lastRun.IsZero() {
			resp["last_sync"] = lastRun.UTC().Format(time.RFC3339)
		}
		resp["sync_running"] = h.runner.IsRunning()
	}
	httputil.OK(w, resp)
}

// GetCollectibles serves the filtered listing over synced records.
func (h *Handlers) GetCollectibles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := postgres.ListFilter{
		Category: q.Get("category"),
		Grader:   q.Get("grader"),
		Search:   q.Get("search"),
	}
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	items, err := h.repo.List(r.Context(), filter)
	if err != nil {
		httputil.InternalError(w, "Failed to fetch collectibles", err)
		return
	}
	if items == nil {
		items = []domain.Collectible{}
	}

	httputil.OK(w, map[string]interface{}{
		"success": true,
		"count":   len(items),
		"data":    items,
	})
}

// GetStats serves store-wide aggregates plus category and grader breakdowns.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, categories, graders, err := h.repo.Stats(r.Context())
	if err != nil {
		httputil.InternalError(w, "Failed to fetch statistics", err)
		return
	}
	if categories == nil {
		categories = []domain.CategoryCount{}
	}
	if graders == nil {
		graders = []domain.GraderCount{}
	}

	httputil.OK(w, map[string]interface{}{
		"success":    true,
		"stats":      stats,
		"categories": categories,
		"graders":    graders,
	})
}

// TriggerSync starts a sync run in the background. The caller must present
// the configured bearer token; on a match the response goes out immediately
// so an external scheduler never times out waiting on a multi-hour run. The
// run outcome is observable only via logs and the stats endpoint.
func (h *Handlers) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		httputil.Unauthorized(w, "Unauthorized")
		return
	}

	logger.Info("sync triggered via API")
	httputil.Accepted(w, map[string]interface{}{
		"success":   true,
		"message":   "Sync started in background",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})

	// Detached from the request context: the run outlives this response.
	go h.runner.Run(context.Background())
}

// authorized checks the Authorization header against the configured sync
// token using a constant-time compare. An empty configured token rejects
// everything.
func (h *Handlers) authorized(r *http.Request) bool {
	if h.syncToken == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.syncToken)) == 1
}
