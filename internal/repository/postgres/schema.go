package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the collectible_details table and its indexes if they
// don't exist yet. Safe to run on every startup.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS collectible_details (
			beezie_token_id BIGINT PRIMARY KEY,
			name TEXT,
			image_url TEXT,
			beezie_price NUMERIC(12,2),
			serial_number VARCHAR(100),
			year VARCHAR(20),
			grader VARCHAR(50),
			grade VARCHAR(20),
			player_name TEXT,
			set_name TEXT,
			card_number VARCHAR(50),
			category VARCHAR(100),
			language VARCHAR(50),
			alt_asset_id VARCHAR(100),
			alt_market_value NUMERIC(12,2),
			last_updated TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_collectible_details_category ON collectible_details(category)`,
		`CREATE INDEX IF NOT EXISTS idx_collectible_details_grader ON collectible_details(grader)`,
		`CREATE INDEX IF NOT EXISTS idx_collectible_details_last_updated ON collectible_details(last_updated DESC)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
