// Package alt talks to the ALT grading/valuation platform. Lookups are best
// effort: a certificate or value that doesn't resolve is a normal "no data"
// outcome, and the enricher degrades to partial results on any failure.
package alt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds the ALT client settings.
type Config struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// ProviderError is returned for any non-2xx or malformed response from the
// ALT API.
type ProviderError struct {
	Op      string
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("alt: %s failed (status %d): %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("alt: %s failed: %s", e.Op, e.Message)
}

// HTTPDoer is the interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Asset is the ALT asset resolved from a certificate number.
type Asset struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Year     string `json:"year"`
	Subject  string `json:"subject"`
	Category string `json:"category"`
	Brand    string `json:"brand"`
}

const certQuery = `
  query Cert($certNumber: String!) {
    cert(certNumber: $certNumber) {
      certNumber
      gradeNumber
      gradingCompany
      asset {
        id
        name
        year
        subject
        category
        brand
      }
    }
  }
`

const assetValueQuery = `
  query AssetDetails($id: ID!, $tsFilter: TimeSeriesFilter!) {
    asset(id: $id) {
      id
      name
      altValueInfo(tsFilter: $tsFilter) {
        currentAltValue
      }
    }
  }
`

type queryRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type certResponse struct {
	Data struct {
		Cert *struct {
			CertNumber     string `json:"certNumber"`
			GradeNumber    string `json:"gradeNumber"`
			GradingCompany string `json:"gradingCompany"`
			Asset          *Asset `json:"asset"`
		} `json:"cert"`
	} `json:"data"`
}

type assetValueResponse struct {
	Data struct {
		Asset *struct {
			ID           string `json:"id"`
			Name         string `json:"name"`
			AltValueInfo *struct {
				CurrentAltValue json.Number `json:"currentAltValue"`
			} `json:"altValueInfo"`
		} `json:"asset"`
	} `json:"data"`
}

// Client is the ALT query API client. Calls are never retried.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient HTTPDoer
}

// NewClient creates a new ALT API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiToken:   cfg.APIToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client HTTPDoer) {
	c.httpClient = client
}

// query posts one named query document and returns the raw response body.
func (c *Client) query(ctx context.Context, op, name, document string, variables map[string]interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(queryRequest{Query: document, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+name, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/json")
	// The provider rejects requests without a browser-looking origin.
	req.Header.Set("Origin", "https://app.alt.xyz")
	req.Header.Set("Referer", "https://app.alt.xyz/")
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
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
		msg := string(respBody)
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		return nil, &ProviderError{Op: op, Status: resp.StatusCode, Message: msg}
	}

	return respBody, nil
}

// ResolveCert looks up the ALT asset for a certificate number. A certificate
// the provider doesn't know returns (nil, nil).
func (c *Client) ResolveCert(ctx context.Context, certNumber string) (*Asset, error) {
	if certNumber == "" {
		return nil, nil
	}

	respBody, err := c.query(ctx, "resolve cert", "Cert", certQuery, map[string]interface{}{
		"certNumber": certNumber,
	})
	if err != nil {
		return nil, err
	}

	var response certResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, &ProviderError{Op: "resolve cert", Message: "failed to parse cert response: " + err.Error()}
	}

	if response.Data.Cert == nil || response.Data.Cert.Asset == nil {
		return nil, nil
	}
	return response.Data.Cert.Asset, nil
}

// AssetValue looks up the current market value for an asset at a given grade
// from a given grading company. The grading company is uppercased before the
// call because the provider requires canonical casing. No matching value
// series returns (nil, nil).
func (c *Client) AssetValue(ctx context.Context, assetID, gradeNumber, gradingCompany string) (*float64, error) {
	if assetID == "" || gradeNumber == "" || gradingCompany == "" {
		return nil, nil
	}

	respBody, err := c.query(ctx, "asset value", "AssetDetails", assetValueQuery, map[string]interface{}{
		"id": assetID,
		"tsFilter": map[string]interface{}{
			"gradeNumber":    gradeNumber,
			"gradingCompany": strings.ToUpper(gradingCompany),
		},
	})
	if err != nil {
		return nil, err
	}

	var response assetValueResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, &ProviderError{Op: "asset value", Message: "failed to parse value response: " + err.Error()}
	}

	asset := response.Data.Asset
	if asset == nil || asset.AltValueInfo == nil {
		return nil, nil
	}
	v, err := asset.AltValueInfo.CurrentAltValue.Float64()
	if err != nil {
		return nil, nil
	}
	return &v, nil
}
