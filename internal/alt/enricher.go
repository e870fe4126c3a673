package alt

import (
	"context"

	"github.com/codebyjaini/beezify/internal/domain"
	"github.com/codebyjaini/beezify/internal/pkg/logger"
	"github.com/codebyjaini/beezify/internal/pkg/ratelimit"
)

// Resolver is the subset of the client the enricher uses.
type Resolver interface {
	ResolveCert(ctx context.Context, certNumber string) (*Asset, error)
	AssetValue(ctx context.Context, assetID, gradeNumber, gradingCompany string) (*float64, error)
}

// Enricher augments collectibles with ALT asset ids and market values.
type Enricher struct {
	resolver Resolver
	pacer    ratelimit.Pacer
}

// NewEnricher creates an enricher over the given resolver. A nil pacer means
// no delay between the two lookup steps.
func NewEnricher(resolver Resolver, pacer ratelimit.Pacer) *Enricher {
	if pacer == nil {
		pacer = ratelimit.None()
	}
	return &Enricher{resolver: resolver, pacer: pacer}
}

// NopEnricher skips enrichment entirely. Wired in when no ALT token is
// configured, so the pipeline never issues doomed lookups.
type NopEnricher struct{}

// Enrich returns an empty result without any provider calls.
func (NopEnricher) Enrich(ctx context.Context, c domain.Collectible) domain.EnrichmentResult {
	return domain.EnrichmentResult{}
}

// Enrich resolves the ALT asset for a collectible's certificate number and,
// when both grader and grade are known, the current market value for that
// asset/grade/grader triple. Every failure mode degrades to a partial or
// fully-nil result; Enrich never returns an error, so a flaky valuation
// provider can't take down a sync run.
func (e *Enricher) Enrich(ctx context.Context, c domain.Collectible) domain.EnrichmentResult {
	var result domain.EnrichmentResult

	serial := domain.StrVal(c.SerialNumber)
	if serial == "" {
		return result
	}

	asset, err := e.resolver.ResolveCert(ctx, serial)
	if err != nil {
		logger.Warn("alt: cert lookup failed", "token_id", c.TokenID, "serial", serial, "error", err)
		return result
	}
	if asset == nil {
		logger.Debug("alt: no asset for cert", "token_id", c.TokenID, "serial", serial)
		return result
	}
	result.AltAssetID = &asset.ID

	if err := e.pacer.Wait(ctx); err != nil {
		return result
	}

	grader := domain.StrVal(c.Grader)
	grade := domain.StrVal(c.Grade)
	if grader == "" || grade == "" {
		return result
	}

	value, err := e.resolver.AssetValue(ctx, asset.ID, grade, grader)
	if err != nil {
		logger.Warn("alt: value lookup failed", "token_id", c.TokenID, "asset_id", asset.ID, "error", err)
	} else {
		result.AltMarketValue = value
	}

	if err := e.pacer.Wait(ctx); err != nil {
		return result
	}
	return result
}
