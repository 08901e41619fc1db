package db

import (
	"database/sql"
	"fmt"
	"log/slog"
)

// migrations is an ordered list of idempotent schema statements.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		id            TEXT    PRIMARY KEY,
		address       TEXT    NOT NULL DEFAULT '',
		city          TEXT    NOT NULL DEFAULT '',
		state         TEXT    NOT NULL DEFAULT '',
		zip_code      TEXT    NOT NULL DEFAULT '',
		price         REAL,
		beds          REAL,
		baths         REAL,
		sqft          REAL,
		year_built    INTEGER,
		lot_size      REAL,
		hoa           REAL,
		property_type TEXT    NOT NULL DEFAULT '',
		source        TEXT    NOT NULL DEFAULT 'import',
		raw_json      TEXT    NOT NULL,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_city ON listings (city COLLATE NOCASE)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_zip ON listings (zip_code)`,
	`CREATE TABLE IF NOT EXISTS searches (
		id           TEXT    PRIMARY KEY,
		buy_box_id   TEXT    NOT NULL,
		buy_box_name TEXT    NOT NULL DEFAULT '',
		query        TEXT    NOT NULL DEFAULT '',
		total_found  INTEGER NOT NULL DEFAULT 0,
		result_json  TEXT    NOT NULL,
		created_at   DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_searches_buy_box ON searches (buy_box_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS search_listings (
		search_id  TEXT    NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
		rank       INTEGER NOT NULL,
		listing_id TEXT    NOT NULL,
		score      INTEGER NOT NULL,
		badge      TEXT    NOT NULL,
		PRIMARY KEY (search_id, rank)
	)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Columns added after the first release.
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"listings", "rent_estimate", "REAL"},
		{"searches", "excluded", "INTEGER NOT NULL DEFAULT 0"},
		{"search_listings", "price", "REAL"},
		{"search_listings", "address", "TEXT NOT NULL DEFAULT ''"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	exists, err := hasColumn(db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			slog.Warn("closing rows", "error", cerr)
		}
	}()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterating columns: %w", err)
	}
	return false, nil
}
