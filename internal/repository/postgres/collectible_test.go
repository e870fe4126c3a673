package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/codebyjaini/beezify/internal/domain"
)

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return db, mock, func() { db.Close() }
}

func makeCollectibles(n int, startID int64) []domain.Collectible {
	items := make([]domain.Collectible, n)
	for i := range items {
		items[i] = domain.Collectible{
			TokenID:     startID + int64(i),
			Name:        domain.StrPtr("Card"),
			LastUpdated: time.Now().UTC(),
		}
	}
	return items
}

func TestUpsertCountsInsertsAndUpdates(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCollectibleRepo(db)

	rows := sqlmock.NewRows([]string{"inserted"}).AddRow(true).AddRow(false).AddRow(true)
	mock.ExpectQuery("INSERT INTO collectible_details").WillReturnRows(rows)

	stats := repo.Upsert(context.Background(), makeCollectibles(3, 100))

	if stats.Inserted != 2 {
		t.Errorf("Expected 2 inserted, got %d", stats.Inserted)
	}
	if stats.Updated != 1 {
		t.Errorf("Expected 1 updated, got %d", stats.Updated)
	}
	if stats.Failed != 0 {
		t.Errorf("Expected 0 failed, got %d", stats.Failed)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestUpsertSecondRunCountsUpdates(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCollectibleRepo(db)
	items := makeCollectibles(2, 100)

	mock.ExpectQuery("INSERT INTO collectible_details").
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true).AddRow(true))
	mock.ExpectQuery("INSERT INTO collectible_details").
		WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false).AddRow(false))

	first := repo.Upsert(context.Background(), items)
	second := repo.Upsert(context.Background(), items)

	if first.Inserted != 2 || first.Updated != 0 {
		t.Errorf("First run: expected 2 inserted / 0 updated, got %+v", first)
	}
	if second.Inserted != 0 || second.Updated != 2 {
		t.Errorf("Second run: expected 0 inserted / 2 updated, got %+v", second)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestUpsertChunking(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCollectibleRepo(db)

	// 120 records split into chunks of 50, 50, 20
	full := sqlmock.NewRows([]string{"inserted"})
	for i := 0; i < 50; i++ {
		full.AddRow(true)
	}
	full2 := sqlmock.NewRows([]string{"inserted"})
	for i := 0; i < 50; i++ {
		full2.AddRow(true)
	}
	tail := sqlmock.NewRows([]string{"inserted"})
	for i := 0; i < 20; i++ {
		tail.AddRow(true)
	}
	mock.ExpectQuery("INSERT INTO collectible_details").WithArgs(anyArgs(50 * upsertCols)...).WillReturnRows(full)
	mock.ExpectQuery("INSERT INTO collectible_details").WithArgs(anyArgs(50 * upsertCols)...).WillReturnRows(full2)
	mock.ExpectQuery("INSERT INTO collectible_details").WithArgs(anyArgs(20 * upsertCols)...).WillReturnRows(tail)

	stats := repo.Upsert(context.Background(), makeCollectibles(120, 1))

	if stats.Inserted != 120 {
		t.Errorf("Expected 120 inserted, got %d", stats.Inserted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestUpsertFailedChunkContinues(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCollectibleRepo(db)

	mock.ExpectQuery("INSERT INTO collectible_details").
		WillReturnError(errors.New("deadlock detected"))
	ok := sqlmock.NewRows([]string{"inserted"})
	for i := 0; i < 10; i++ {
		ok.AddRow(true)
	}
	mock.ExpectQuery("INSERT INTO collectible_details").WillReturnRows(ok)

	stats := repo.Upsert(context.Background(), makeCollectibles(60, 1))

	if stats.Failed != 50 {
		t.Errorf("Expected full first chunk (50) counted failed, got %d", stats.Failed)
	}
	if stats.Inserted != 10 {
		t.Errorf("Expected second chunk processed, got %d inserted", stats.Inserted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestUpsertMergeSQL(t *testing.T) {
	// Capture the SQL text through a pass-through matcher so the merge
	// clauses can be asserted directly.
	var captured string
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherFunc(
		func(expectedSQL, actualSQL string) error {
			captured = actualSQL
			return nil
		})))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	mock.ExpectQuery("").WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))

	repo := NewCollectibleRepo(db)
	repo.Upsert(context.Background(), makeCollectibles(1, 42))

	for _, want := range []string{
		"ON CONFLICT (beezie_token_id)",
		"beezie_price = EXCLUDED.beezie_price",
		"last_updated = EXCLUDED.last_updated",
		"name = COALESCE(EXCLUDED.name, collectible_details.name)",
		"alt_market_value = COALESCE(EXCLUDED.alt_market_value, collectible_details.alt_market_value)",
		"(xmax = 0)",
	} {
		if !strings.Contains(captured, want) {
			t.Errorf("Upsert SQL missing %q", want)
		}
	}

	// created_at must never be touched by the merge clause
	if strings.Contains(captured, "created_at = ") {
		t.Error("Upsert SQL must not overwrite created_at")
	}
}

func TestListFilters(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCollectibleRepo(db)

	rows := sqlmock.NewRows([]string{
		"beezie_token_id", "name", "image_url", "beezie_price",
		"serial_number", "year", "grader", "grade",
		"player_name", "set_name", "card_number", "category", "language",
		"alt_asset_id", "alt_market_value", "last_updated", "created_at",
	}).AddRow(
		int64(555), "Charizard #4", nil, 250.00,
		"12345678", "1999", "PSA", "10",
		"Charizard", "Base Set", "4", "Pokemon", "English",
		nil, nil, time.Now().UTC(), time.Now().UTC(),
	)

	mock.ExpectQuery("SELECT (.+) FROM collectible_details WHERE 1=1 AND category = (.+) AND grader = (.+) ORDER BY last_updated DESC").
		WithArgs("Pokemon", "PSA", 50).
		WillReturnRows(rows)

	items, err := repo.List(context.Background(), ListFilter{Limit: 50, Category: "Pokemon", Grader: "PSA"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].TokenID != 555 {
		t.Errorf("Expected token 555, got %d", items[0].TokenID)
	}
	if domain.StrVal(items[0].Grader) != "PSA" {
		t.Errorf("Unexpected grader: %v", items[0].Grader)
	}
	if items[0].ImageURL != nil {
		t.Errorf("Expected nil image_url, got %v", *items[0].ImageURL)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestListAllIsNoFilter(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCollectibleRepo(db)

	mock.ExpectQuery("SELECT (.+) FROM collectible_details WHERE 1=1 ORDER BY last_updated DESC").
		WithArgs(1000).
		WillReturnRows(sqlmock.NewRows([]string{"beezie_token_id"}))

	// "all" must behave like no filter at all; rows schema mismatch would
	// only matter if a row existed, and none do.
	_, err := repo.List(context.Background(), ListFilter{Category: "all", Grader: "all"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestListSearch(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCollectibleRepo(db)

	mock.ExpectQuery("LOWER\\(name\\) LIKE (.+) LOWER\\(player_name\\) LIKE").
		WithArgs("%charizard%", 1000).
		WillReturnRows(sqlmock.NewRows([]string{"beezie_token_id"}))

	_, err := repo.List(context.Background(), ListFilter{Search: "Charizard"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestStats(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCollectibleRepo(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\),").WillReturnRows(
		sqlmock.NewRows([]string{"count", "sum_beezie", "sum_alt", "avg_price", "categories", "graders"}).
			AddRow(100, 25000.50, 31000.00, 250.005, 4, 3))
	mock.ExpectQuery("SELECT category, COUNT\\(\\*\\)").WillReturnRows(
		sqlmock.NewRows([]string{"category", "count"}).
			AddRow("Pokemon", 80).
			AddRow("One Piece", 20))
	mock.ExpectQuery("SELECT grader, COUNT\\(\\*\\)").WillReturnRows(
		sqlmock.NewRows([]string{"grader", "count"}).
			AddRow("PSA", 60).
			AddRow("CGC", 40))

	stats, categories, graders, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalItems != 100 {
		t.Errorf("Expected 100 items, got %d", stats.TotalItems)
	}
	if stats.TotalBeezieValue == nil || *stats.TotalBeezieValue != 25000.50 {
		t.Errorf("Unexpected beezie total: %v", stats.TotalBeezieValue)
	}
	if len(categories) != 2 || categories[0].Category != "Pokemon" || categories[0].Count != 80 {
		t.Errorf("Unexpected categories: %+v", categories)
	}
	if len(graders) != 2 || graders[1].Grader != "CGC" {
		t.Errorf("Unexpected graders: %+v", graders)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestStatsEmptyStore(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCollectibleRepo(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\),").WillReturnRows(
		sqlmock.NewRows([]string{"count", "sum_beezie", "sum_alt", "avg_price", "categories", "graders"}).
			AddRow(0, nil, nil, nil, 0, 0))
	mock.ExpectQuery("SELECT category, COUNT\\(\\*\\)").WillReturnRows(sqlmock.NewRows([]string{"category", "count"}))
	mock.ExpectQuery("SELECT grader, COUNT\\(\\*\\)").WillReturnRows(sqlmock.NewRows([]string{"grader", "count"}))

	stats, _, _, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalItems != 0 {
		t.Errorf("Expected 0 items, got %d", stats.TotalItems)
	}
	if stats.TotalBeezieValue != nil {
		t.Errorf("Expected nil total on empty store, got %v", *stats.TotalBeezieValue)
	}
}

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}
