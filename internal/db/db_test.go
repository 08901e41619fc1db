package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "creates new database",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "bb.db")
			},
		},
		{
			name: "creates nested directories",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "a", "b", "bb.db")
			},
		},
		{
			name: "opens existing database",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "bb.db")
				d, err := Open(path)
				if err != nil {
					t.Fatalf("setup: %v", err)
				}
				if err := d.Close(); err != nil {
					t.Fatalf("setup close: %v", err)
				}
				return path
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			d, err := Open(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer func() {
				if err := d.Close(); err != nil {
					t.Errorf("close: %v", err)
				}
			}()

			if _, err := os.Stat(path); os.IsNotExist(err) {
				t.Error("database file was not created")
			}
		})
	}
}

func TestOpenUnwritableDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Open(filepath.Join(file, "bb.db")); err == nil {
		t.Fatal("expected error when the parent is a file")
	}
}

func TestPragmas(t *testing.T) {
	d := openTestDB(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"busy_timeout", "5000"},
	}

	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			var got string
			if err := d.QueryRow("PRAGMA " + tt.pragma).Scan(&got); err != nil {
				t.Fatalf("query %s: %v", tt.pragma, err)
			}
			if got != tt.want {
				t.Errorf("%s = %q, want %q", tt.pragma, got, tt.want)
			}
		})
	}
}

func TestMigrations(t *testing.T) {
	tests := []struct {
		name  string
		table string
		cols  []string
	}{
		{
			name:  "listings table exists",
			table: "listings",
			cols: []string{
				"id", "address", "city", "state", "zip_code", "price", "beds", "baths", "sqft",
				"year_built", "lot_size", "hoa", "property_type", "source", "raw_json",
				"created_at", "updated_at", "rent_estimate",
			},
		},
		{
			name:  "searches table exists",
			table: "searches",
			cols:  []string{"id", "buy_box_id", "buy_box_name", "query", "total_found", "result_json", "created_at", "excluded"},
		},
		{
			name:  "search_listings table exists",
			table: "search_listings",
			cols:  []string{"search_id", "rank", "listing_id", "score", "badge", "price", "address"},
		},
	}

	d := openTestDB(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := tableColumns(t, d, tt.table)
			if len(cols) != len(tt.cols) {
				t.Fatalf("got %d columns, want %d: %v", len(cols), len(tt.cols), cols)
			}
			for i, want := range tt.cols {
				if cols[i] != want {
					t.Errorf("column %d = %q, want %q", i, cols[i], want)
				}
			}
		})
	}
}

func TestCascadeDelete(t *testing.T) {
	d := openTestDB(t)

	_, err := d.Exec(
		`INSERT INTO searches (id, buy_box_id, result_json, created_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`,
		"s-1", "bb-1", "{}",
	)
	if err != nil {
		t.Fatalf("insert search: %v", err)
	}

	for i := 0; i < 3; i++ {
		_, err = d.Exec(
			`INSERT INTO search_listings (search_id, rank, listing_id, score, badge) VALUES (?, ?, ?, ?, ?)`,
			"s-1", i+1, fmt.Sprintf("l-%d", i), 90-i, "Great Deal",
		)
		if err != nil {
			t.Fatalf("insert search listing %d: %v", i, err)
		}
	}

	if _, err := d.Exec(`DELETE FROM searches WHERE id = ?`, "s-1"); err != nil {
		t.Fatalf("delete search: %v", err)
	}

	var count int
	if err := d.QueryRow(`SELECT COUNT(*) FROM search_listings WHERE search_id = ?`, "s-1").Scan(&count); err != nil {
		t.Fatalf("count after delete: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 ranked listings after cascade delete, got %d", count)
	}
}

func TestSearchListingsRequireSearch(t *testing.T) {
	d := openTestDB(t)

	_, err := d.Exec(
		`INSERT INTO search_listings (search_id, rank, listing_id, score, badge) VALUES (?, ?, ?, ?, ?)`,
		"missing", 1, "l-1", 50, "Fair",
	)
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bb.db")

	for i := 0; i < 2; i++ {
		d, err := Open(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := d.Close(); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	p, err := DefaultPath()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if filepath.Base(p) != "bb.db" {
		t.Errorf("expected filename bb.db, got %s", filepath.Base(p))
	}

	dir := filepath.Base(filepath.Dir(p))
	if dir != "bb" {
		t.Errorf("expected directory bb, got %s", dir)
	}
}

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "bb.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close test db: %v", err)
		}
	})
	return d
}

// tableColumns returns column names for a table using PRAGMA table_info.
func tableColumns(t *testing.T, d *sql.DB, table string) []string {
	t.Helper()
	rows, err := d.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		t.Fatalf("pragma table_info(%s): %v", table, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			t.Errorf("close rows: %v", err)
		}
	}()

	var cols []string
	for rows.Next() {
		var cid int
		var name, typ string
		var notnull int
		var dflt *string
		var pk int
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			t.Fatalf("scan: %v", err)
		}
		cols = append(cols, name)
	}
	return cols
}
