package beezie

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func makeItems(n int, startID int64) []ItemSummary {
	items := make([]ItemSummary, n)
	for i := range items {
		items[i] = ItemSummary{
			TokenID:  startID + int64(i),
			Metadata: Metadata{Name: fmt.Sprintf("Card %d", startID+int64(i))},
		}
	}
	return items
}

func TestFetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		// Page and pageSize go over the wire as strings
		if req["page"] != "2" {
			t.Errorf("Expected page \"2\", got %v", req["page"])
		}
		if req["pageSize"] != "40" {
			t.Errorf("Expected pageSize \"40\", got %v", req["pageSize"])
		}
		if req["saleStatus"] != "all" {
			t.Errorf("Expected saleStatus \"all\", got %v", req["saleStatus"])
		}
		json.NewEncoder(w).Encode(makeItems(3, 100))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})

	items, err := client.FetchPage(context.Background(), "1", 2, 40)
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("Expected 3 items, got %d", len(items))
	}
	if items[0].TokenID != 100 {
		t.Errorf("Expected token 100, got %d", items[0].TokenID)
	}
}

func TestFetchPageProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})

	_, err := client.FetchPage(context.Background(), "1", 0, 40)
	if err == nil {
		t.Fatal("Expected error for 502 response")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected *ProviderError, got %T", err)
	}
	if pe.Status != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", pe.Status)
	}
}

func TestFetchPageMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})

	_, err := client.FetchPage(context.Background(), "1", 0, 40)
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected *ProviderError for malformed body, got %v", err)
	}
}

func TestFetchAllPagesTermination(t *testing.T) {
	// Pages of sizes 40, 40, 15: the short third page is the last-page
	// signal, so there must be exactly 3 calls and 95 items.
	pageSizes := []int{40, 40, 15}
	calls := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls >= len(pageSizes) {
			t.Errorf("Unexpected 4th page fetch")
			json.NewEncoder(w).Encode([]ItemSummary{})
			return
		}
		n := pageSizes[calls]
		calls++
		json.NewEncoder(w).Encode(makeItems(n, int64(calls*1000)))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, PageSize: 40})

	items, err := client.FetchAllPages(context.Background(), "1")
	if err != nil {
		t.Fatalf("FetchAllPages failed: %v", err)
	}
	if len(items) != 95 {
		t.Errorf("Expected 95 items, got %d", len(items))
	}
	if calls != 3 {
		t.Errorf("Expected exactly 3 page fetches, got %d", calls)
	}
}

func TestFetchAllPagesEmptyFirstPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]ItemSummary{})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})

	items, err := client.FetchAllPages(context.Background(), "1")
	if err != nil {
		t.Fatalf("FetchAllPages failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected 0 items, got %d", len(items))
	}
}

func TestFetchAllPagesMaxPages(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(makeItems(40, int64(calls*1000)))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, PageSize: 40, MaxPages: 2})

	items, err := client.FetchAllPages(context.Background(), "1")
	if err != nil {
		t.Fatalf("FetchAllPages failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("Expected 2 page fetches, got %d", calls)
	}
	if len(items) != 80 {
		t.Errorf("Expected 80 items, got %d", len(items))
	}
}

func TestFetchDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/dropItems/getByTokenId/555" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(detailResponse{
			DropItem: &ItemDetail{
				TokenID: 555,
				Metadata: Metadata{
					Name: "Charizard #4",
					Attributes: []Attribute{
						{TraitType: "serial", TraitValue: "12345678"},
					},
				},
				SellOrder: &SellOrder{AmountUSDC: "250.00"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})

	detail, err := client.FetchDetail(context.Background(), 555)
	if err != nil {
		t.Fatalf("FetchDetail failed: %v", err)
	}
	if detail.TokenID != 555 {
		t.Errorf("Expected token 555, got %d", detail.TokenID)
	}
	if detail.Metadata.Name != "Charizard #4" {
		t.Errorf("Unexpected name: %s", detail.Metadata.Name)
	}
}

func TestFetchDetailMissingDropItem(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})

	_, err := client.FetchDetail(context.Background(), 1)
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected *ProviderError, got %v", err)
	}
}

func TestFetchManyDetailsSkipsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/dropItems/getByTokenId/2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var id int64
		fmt.Sscanf(r.URL.Path, "/dropItems/getByTokenId/%d", &id)
		json.NewEncoder(w).Encode(detailResponse{DropItem: &ItemDetail{TokenID: id}})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})

	details := client.FetchManyDetails(context.Background(), []int64{1, 2, 3})
	if len(details) != 2 {
		t.Fatalf("Expected 2 details, got %d", len(details))
	}
	if details[0].TokenID != 1 || details[1].TokenID != 3 {
		t.Errorf("Failing token should be skipped, got %v", details)
	}
}
