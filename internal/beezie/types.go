package beezie

import (
	"fmt"
	"time"

	"github.com/codebyjaini/beezify/internal/pkg/ratelimit"
)

// Config holds the Beezie client settings.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	PageSize int
	// MaxPages caps FetchAllPages; 0 means unbounded.
	MaxPages int
	// PagePacer gates listing page fetches, DetailPacer gates detail fetches.
	// Nil pacers default to no delay.
	PagePacer   ratelimit.Pacer
	DetailPacer ratelimit.Pacer
}

// ProviderError is returned for any non-2xx or malformed response from the
// marketplace API. It is never retried here; callers decide whether the
// failure aborts a category or is counted against a single item.
type ProviderError struct {
	Op      string
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("beezie: %s failed (status %d): %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("beezie: %s failed: %s", e.Op, e.Message)
}

// listingRequest is the byCategory request body. Page and page size are
// serialized as strings because the upstream API expects them that way.
type listingRequest struct {
	CategoryID string   `json:"categoryId"`
	Page       string   `json:"page"`
	PageSize   string   `json:"pageSize"`
	Filters    []string `json:"filters"`
	SaleStatus string   `json:"saleStatus"`
	SortOrder  string   `json:"sellOrderDateOrder"`
}

// Attribute is one entry of the provider's trait bag.
type Attribute struct {
	TraitType  string `json:"trait_type"`
	TraitValue string `json:"trait_value"`
}

// Metadata is the nested item metadata returned by both listing and detail
// endpoints.
type Metadata struct {
	Name       string      `json:"name"`
	Image      string      `json:"image"`
	Attributes []Attribute `json:"attributes"`
}

// SellOrder is the active sale order of a listed item. AmountUSDC is a
// decimal string.
type SellOrder struct {
	AmountUSDC string `json:"amountUSDC"`
}

// ItemSummary is one element of a listing page. The listing endpoint
// capitalizes SellOrder; the detail endpoint does not.
type ItemSummary struct {
	TokenID   int64      `json:"tokenId"`
	Metadata  Metadata   `json:"metadata"`
	SellOrder *SellOrder `json:"SellOrder"`
}

// ItemDetail is the full item record from the getByTokenId endpoint,
// including the complete attribute bag.
type ItemDetail struct {
	TokenID   int64      `json:"tokenId"`
	Metadata  Metadata   `json:"metadata"`
	SellOrder *SellOrder `json:"sellOrder"`
}

// detailResponse wraps the detail payload.
type detailResponse struct {
	DropItem *ItemDetail `json:"dropItem"`
}
