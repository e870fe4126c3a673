package beezie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/codebyjaini/beezify/internal/pkg/logger"
	"github.com/codebyjaini/beezify/internal/pkg/ratelimit"
)

const (
	listingPath = "/dropItems/byCategory"
	detailPath  = "/dropItems/getByTokenId"
)

// HTTPDoer is the interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the Beezie marketplace API client. Calls are never retried: a
// failed call surfaces to the caller, which decides how the failure is
// counted.
type Client struct {
	baseURL     string
	pageSize    int
	maxPages    int
	pagePacer   ratelimit.Pacer
	detailPacer ratelimit.Pacer
	httpClient  HTTPDoer
}

// NewClient creates a new Beezie API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 40
	}
	pagePacer := cfg.PagePacer
	if pagePacer == nil {
		pagePacer = ratelimit.None()
	}
	detailPacer := cfg.DetailPacer
	if detailPacer == nil {
		detailPacer = ratelimit.None()
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		pageSize:    pageSize,
		maxPages:    cfg.MaxPages,
		pagePacer:   pagePacer,
		detailPacer: detailPacer,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client HTTPDoer) {
	c.httpClient = client
}

// doRequest performs a request against the marketplace API and returns the
// raw response body. Non-2xx responses become a *ProviderError.
func (c *Client) doRequest(ctx context.Context, op, method, path string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "*/*")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Op: op, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Op: op, Status: resp.StatusCode, Message: "failed to read response body: " + err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{Op: op, Status: resp.StatusCode, Message: truncate(string(respBody), 200)}
	}

	return respBody, nil
}

// FetchPage retrieves one listing page for a category. Page indexes start at
// zero. Malformed bodies and non-2xx statuses are propagated as
// *ProviderError, not swallowed.
func (c *Client) FetchPage(ctx context.Context, categoryID string, page, pageSize int) ([]ItemSummary, error) {
	reqBody := listingRequest{
		CategoryID: categoryID,
		Page:       strconv.Itoa(page),
		PageSize:   strconv.Itoa(pageSize),
		Filters:    []string{},
		SaleStatus: "all",
		SortOrder:  "DESC",
	}

	respBody, err := c.doRequest(ctx, "fetch page", http.MethodPost, listingPath, reqBody)
	if err != nil {
		return nil, err
	}

	var items []ItemSummary
	if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, &ProviderError{Op: "fetch page", Message: "failed to parse listing response: " + err.Error()}
	}

	return items, nil
}

// FetchAllPages pages through a category until an empty page, a short page
// (fewer than pageSize items, the provider's last-page signal), or the
// configured page cap. Pagination is offset-based upstream, so a concurrent
// insert or delete can skip or duplicate an item; that is accepted, not
// corrected here.
func (c *Client) FetchAllPages(ctx context.Context, categoryID string) ([]ItemSummary, error) {
	var all []ItemSummary
	for page := 0; ; page++ {
		if c.maxPages > 0 && page >= c.maxPages {
			logger.Info("beezie: reached page cap", "category", categoryID, "max_pages", c.maxPages)
			break
		}
		if page > 0 {
			if err := c.pagePacer.Wait(ctx); err != nil {
				return all, err
			}
		}

		items, err := c.FetchPage(ctx, categoryID, page, c.pageSize)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			break
		}

		all = append(all, items...)
		logger.Debug("beezie: page fetched", "category", categoryID, "page", page, "items", len(items), "total", len(all))

		if len(items) < c.pageSize {
			break
		}
	}
	return all, nil
}

// FetchDetail retrieves the full record for one token. Failures surface as
// *ProviderError; the orchestrator counts them per item and keeps going.
func (c *Client) FetchDetail(ctx context.Context, tokenID int64) (*ItemDetail, error) {
	path := fmt.Sprintf("%s/%d", detailPath, tokenID)
	respBody, err := c.doRequest(ctx, "fetch detail", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var response detailResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, &ProviderError{Op: "fetch detail", Message: "failed to parse detail response: " + err.Error()}
	}
	if response.DropItem == nil {
		return nil, &ProviderError{Op: "fetch detail", Message: fmt.Sprintf("no dropItem in response for token %d", tokenID)}
	}

	return response.DropItem, nil
}

// FetchManyDetails fetches details for the given tokens sequentially. A
// failing token is logged and skipped, never retried, and never stops the
// remaining fetches.
func (c *Client) FetchManyDetails(ctx context.Context, tokenIDs []int64) []ItemDetail {
	details := make([]ItemDetail, 0, len(tokenIDs))
	for i, tokenID := range tokenIDs {
		if i > 0 {
			if err := c.detailPacer.Wait(ctx); err != nil {
				return details
			}
		}
		d, err := c.FetchDetail(ctx, tokenID)
		if err != nil {
			logger.Warn("beezie: detail fetch failed, skipping", "token_id", tokenID, "error", err)
			continue
		}
		details = append(details, *d)
	}
	return details
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
