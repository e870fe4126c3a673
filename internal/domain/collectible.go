package domain

import "time"

// Collectible represents one graded collectible card as stored in the
// collectible_details table. TokenID is the Beezie-assigned token id and is
// the sole upsert key; every pointer field is nullable and subject to the
// keep-existing-on-null merge policy. Price and LastUpdated are the two
// exceptions: they are overwritten on every sync pass, because a listing can
// legitimately become delisted (nil price) and the refresh time must advance.
type Collectible struct {
	TokenID        int64      `json:"beezie_token_id" db:"beezie_token_id"`
	Name           *string    `json:"name" db:"name"`
	ImageURL       *string    `json:"image_url" db:"image_url"`
	Price          *float64   `json:"beezie_price" db:"beezie_price"`
	SerialNumber   *string    `json:"serial_number" db:"serial_number"`
	Year           *string    `json:"year" db:"year"`
	Grader         *string    `json:"grader" db:"grader"`
	Grade          *string    `json:"grade" db:"grade"`
	SubjectName    *string    `json:"player_name" db:"player_name"`
	SetName        *string    `json:"set_name" db:"set_name"`
	CardNumber     *string    `json:"card_number" db:"card_number"`
	Category       *string    `json:"category" db:"category"`
	Language       *string    `json:"language" db:"language"`
	AltAssetID     *string    `json:"alt_asset_id" db:"alt_asset_id"`
	AltMarketValue *float64   `json:"alt_market_value" db:"alt_market_value"`
	LastUpdated    time.Time  `json:"last_updated" db:"last_updated"`
	CreatedAt      *time.Time `json:"created_at,omitempty" db:"created_at"`
}

// ApplyEnrichment merges an enrichment result into the collectible.
func (c *Collectible) ApplyEnrichment(e EnrichmentResult) {
	c.AltAssetID = e.AltAssetID
	c.AltMarketValue = e.AltMarketValue
}

// EnrichmentResult carries the outcome of an ALT lookup for one collectible.
// Both fields are nil when the certificate did not resolve; AltMarketValue
// alone is nil when the asset resolved but no value series matched the
// grade/grader pair. A zero EnrichmentResult is a valid "no data" outcome,
// not an error.
type EnrichmentResult struct {
	AltAssetID     *string
	AltMarketValue *float64
}

// Category is one marketplace category to sync. ExpectedCount is advisory,
// used only for progress logging, never as a correctness bound.
type Category struct {
	ID            string `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	ExpectedCount int    `yaml:"expected_count" json:"expected_count"`
}

// RunStats accumulates insert/update/failure counts for one sync run. It is
// an explicit value threaded through every pipeline stage; the orchestrator
// owns the fold, so no shared mutable accumulator exists across runs.
type RunStats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// Add folds another stats value into this one.
func (s *RunStats) Add(o RunStats) {
	s.Inserted += o.Inserted
	s.Updated += o.Updated
	s.Failed += o.Failed
}

// Total returns the number of items accounted for by this stats value.
func (s RunStats) Total() int { return s.Inserted + s.Updated + s.Failed }

// StoreStats is the aggregate view over the persisted store served by the
// stats endpoint.
type StoreStats struct {
	TotalItems       int      `json:"total_items"`
	TotalBeezieValue *float64 `json:"total_beezie_value"`
	TotalAltValue    *float64 `json:"total_alt_value"`
	AvgPrice         *float64 `json:"avg_price"`
	TotalCategories  int      `json:"total_categories"`
	TotalGraders     int      `json:"total_graders"`
}

// CategoryCount is one category bucket in the stats response.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// GraderCount is one grader bucket in the stats response.
type GraderCount struct {
	Grader string `json:"grader"`
	Count  int    `json:"count"`
}

// String helpers used across the pipeline.

// StrPtr returns a pointer to s, or nil when s is empty.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StrVal dereferences p, returning "" for nil.
func StrVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
