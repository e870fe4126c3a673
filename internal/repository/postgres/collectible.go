// Package postgres implements the collectible repository against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/codebyjaini/beezify/internal/domain"
	"github.com/codebyjaini/beezify/internal/pkg/logger"
)

// upsertChunkSize is how many rows go into one multi-row INSERT. A failing
// chunk is counted whole and skipped; there is no row-level isolation inside
// a chunk.
const upsertChunkSize = 50

const upsertCols = 17

// CollectibleRepo persists canonical collectible records.
type CollectibleRepo struct{ db *sql.DB }

// NewCollectibleRepo creates a Postgres-backed collectible repository.
func NewCollectibleRepo(db *sql.DB) *CollectibleRepo { return &CollectibleRepo{db: db} }

// ListFilter narrows the List query. Zero values mean "no filter"; the
// literal "all" is treated the same for category and grader.
type ListFilter struct {
	Limit    int
	Category string
	Grader   string
	Search   string
}

// Upsert writes the given records in chunks, inserting new rows and merging
// into existing ones keyed on beezie_token_id. The merge keeps the stored
// value for any column whose incoming value is NULL, except beezie_price and
// last_updated which always take the incoming value. created_at is written
// only on first insert. Each affected row reports whether it was a fresh
// insert via (xmax = 0); the tally of inserts, updates, and failed chunks is
// returned. A chunk-level error counts the whole chunk as failed and
// processing continues with the next chunk.
func (r *CollectibleRepo) Upsert(ctx context.Context, items []domain.Collectible) domain.RunStats {
	var stats domain.RunStats
	if len(items) == 0 {
		return stats
	}

	for start := 0; start < len(items); start += upsertChunkSize {
		end := start + upsertChunkSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		inserted, updated, err := r.upsertChunk(ctx, chunk)
		if err != nil {
			logger.Error("upsert chunk failed", "offset", start, "size", len(chunk), "error", err)
			stats.Failed += len(chunk)
			continue
		}
		stats.Inserted += inserted
		stats.Updated += updated
	}

	return stats
}

func (r *CollectibleRepo) upsertChunk(ctx context.Context, chunk []domain.Collectible) (inserted, updated int, err error) {
	placeholders := make([]string, 0, len(chunk))
	args := make([]interface{}, 0, len(chunk)*upsertCols)
	now := time.Now().UTC()

	for i, c := range chunk {
		row := make([]string, upsertCols)
		for j := 0; j < upsertCols; j++ {
			row[j] = fmt.Sprintf("$%d", i*upsertCols+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(row, ", ")+")")

		lastUpdated := c.LastUpdated
		if lastUpdated.IsZero() {
			lastUpdated = now
		}
		args = append(args,
			c.TokenID, c.Name, c.ImageURL, c.Price,
			c.SerialNumber, c.Year, c.Grader, c.Grade,
			c.SubjectName, c.SetName, c.CardNumber, c.Category, c.Language,
			c.AltAssetID, c.AltMarketValue,
			lastUpdated, now,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO collectible_details (
			beezie_token_id, name, image_url, beezie_price,
			serial_number, year, grader, grade,
			player_name, set_name, card_number, category, language,
			alt_asset_id, alt_market_value,
			last_updated, created_at
		) VALUES %s
		ON CONFLICT (beezie_token_id)
		DO UPDATE SET
			name = COALESCE(EXCLUDED.name, collectible_details.name),
			image_url = COALESCE(EXCLUDED.image_url, collectible_details.image_url),
			beezie_price = EXCLUDED.beezie_price,
			serial_number = COALESCE(EXCLUDED.serial_number, collectible_details.serial_number),
			year = COALESCE(EXCLUDED.year, collectible_details.year),
			grader = COALESCE(EXCLUDED.grader, collectible_details.grader),
			grade = COALESCE(EXCLUDED.grade, collectible_details.grade),
			player_name = COALESCE(EXCLUDED.player_name, collectible_details.player_name),
			set_name = COALESCE(EXCLUDED.set_name, collectible_details.set_name),
			card_number = COALESCE(EXCLUDED.card_number, collectible_details.card_number),
			category = COALESCE(EXCLUDED.category, collectible_details.category),
			language = COALESCE(EXCLUDED.language, collectible_details.language),
			alt_asset_id = COALESCE(EXCLUDED.alt_asset_id, collectible_details.alt_asset_id),
			alt_market_value = COALESCE(EXCLUDED.alt_market_value, collectible_details.alt_market_value),
			last_updated = EXCLUDED.last_updated
		RETURNING (xmax = 0) AS inserted
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, 0, fmt.Errorf("upsert collectibles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var wasInsert bool
		if err := rows.Scan(&wasInsert); err != nil {
			return 0, 0, fmt.Errorf("scan upsert result: %w", err)
		}
		if wasInsert {
			inserted++
		} else {
			updated++
		}
	}
	if err := rows.Err(); err != nil {
		return 0, 0, fmt.Errorf("upsert rows: %w", err)
	}
	return inserted, updated, nil
}

const selectCols = `beezie_token_id, name, image_url, beezie_price,
	       serial_number, year, grader, grade,
	       player_name, set_name, card_number, category, language,
	       alt_asset_id, alt_market_value, last_updated, created_at`

// List returns stored collectibles matching the filter, most recently
// synced first. Search matches a case-insensitive substring across name,
// subject, set, and serial number.
func (r *CollectibleRepo) List(ctx context.Context, f ListFilter) ([]domain.Collectible, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 1000
	}

	q := `SELECT ` + selectCols + ` FROM collectible_details WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if f.Category != "" && f.Category != "all" {
		q += fmt.Sprintf(" AND category = $%d", idx)
		args = append(args, f.Category)
		idx++
	}
	if f.Grader != "" && f.Grader != "all" {
		q += fmt.Sprintf(" AND grader = $%d", idx)
		args = append(args, f.Grader)
		idx++
	}
	if f.Search != "" {
		q += fmt.Sprintf(` AND (
			LOWER(name) LIKE $%d OR
			LOWER(player_name) LIKE $%d OR
			LOWER(set_name) LIKE $%d OR
			LOWER(serial_number) LIKE $%d
		)`, idx, idx, idx, idx)
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
		idx++
	}

	q += fmt.Sprintf(" ORDER BY last_updated DESC LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list collectibles: %w", err)
	}
	defer rows.Close()

	var out []domain.Collectible
	for rows.Next() {
		c, err := scanCollectible(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCollectible(rows *sql.Rows) (domain.Collectible, error) {
	var (
		c                                      domain.Collectible
		name, imageURL                         sql.NullString
		serial, year, grader, grade            sql.NullString
		subject, setName, cardNumber           sql.NullString
		category, language, altAssetID         sql.NullString
		price, altValue                        sql.NullFloat64
		createdAt                              sql.NullTime
	)
	if err := rows.Scan(
		&c.TokenID, &name, &imageURL, &price,
		&serial, &year, &grader, &grade,
		&subject, &setName, &cardNumber, &category, &language,
		&altAssetID, &altValue, &c.LastUpdated, &createdAt,
	); err != nil {
		return c, fmt.Errorf("scan collectible: %w", err)
	}
	c.Name = nullStr(name)
	c.ImageURL = nullStr(imageURL)
	c.Price = nullFloat(price)
	c.SerialNumber = nullStr(serial)
	c.Year = nullStr(year)
	c.Grader = nullStr(grader)
	c.Grade = nullStr(grade)
	c.SubjectName = nullStr(subject)
	c.SetName = nullStr(setName)
	c.CardNumber = nullStr(cardNumber)
	c.Category = nullStr(category)
	c.Language = nullStr(language)
	c.AltAssetID = nullStr(altAssetID)
	c.AltMarketValue = nullFloat(altValue)
	if createdAt.Valid {
		t := createdAt.Time
		c.CreatedAt = &t
	}
	return c, nil
}

// Stats aggregates the persisted store for the stats endpoint.
func (r *CollectibleRepo) Stats(ctx context.Context) (*domain.StoreStats, []domain.CategoryCount, []domain.GraderCount, error) {
	var (
		s                       domain.StoreStats
		beezieTotal, altTotal   sql.NullFloat64
		avgPrice                sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       SUM(beezie_price),
		       SUM(alt_market_value),
		       AVG(beezie_price),
		       COUNT(DISTINCT category),
		       COUNT(DISTINCT grader)
		FROM collectible_details
	`).Scan(&s.TotalItems, &beezieTotal, &altTotal, &avgPrice, &s.TotalCategories, &s.TotalGraders)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("store stats: %w", err)
	}
	s.TotalBeezieValue = nullFloat(beezieTotal)
	s.TotalAltValue = nullFloat(altTotal)
	s.AvgPrice = nullFloat(avgPrice)

	catRows, err := r.db.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM collectible_details
		WHERE category IS NOT NULL
		GROUP BY category
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("category stats: %w", err)
	}
	defer catRows.Close()
	var categories []domain.CategoryCount
	for catRows.Next() {
		var cc domain.CategoryCount
		if err := catRows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, nil, nil, fmt.Errorf("scan category stats: %w", err)
		}
		categories = append(categories, cc)
	}
	if err := catRows.Err(); err != nil {
		return nil, nil, nil, err
	}

	gradRows, err := r.db.QueryContext(ctx, `
		SELECT grader, COUNT(*) FROM collectible_details
		WHERE grader IS NOT NULL
		GROUP BY grader
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("grader stats: %w", err)
	}
	defer gradRows.Close()
	var graders []domain.GraderCount
	for gradRows.Next() {
		var gc domain.GraderCount
		if err := gradRows.Scan(&gc.Grader, &gc.Count); err != nil {
			return nil, nil, nil, fmt.Errorf("scan grader stats: %w", err)
		}
		graders = append(graders, gc)
	}
	if err := gradRows.Err(); err != nil {
		return nil, nil, nil, err
	}

	return &s, categories, graders, nil
}

// Count returns the number of stored collectibles.
func (r *CollectibleRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collectible_details`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count collectibles: %w", err)
	}
	return n, nil
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
