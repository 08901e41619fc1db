// Package catalog stores candidate listings in SQLite and serves them to
// searches.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/evcraddock/buybox/internal/scoring"
)

// Entry is a stored listing with its bookkeeping times.
type Entry struct {
	scoring.Listing
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository provides CRUD operations for catalog listings.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a catalog repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const upsertSQL = `INSERT INTO listings
	(id, address, city, state, zip_code, price, beds, baths, sqft, year_built, lot_size, hoa, property_type, source, rent_estimate, raw_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		address = excluded.address, city = excluded.city, state = excluded.state, zip_code = excluded.zip_code,
		price = excluded.price, beds = excluded.beds, baths = excluded.baths, sqft = excluded.sqft,
		year_built = excluded.year_built, lot_size = excluded.lot_size, hoa = excluded.hoa,
		property_type = excluded.property_type, source = excluded.source,
		rent_estimate = excluded.rent_estimate, raw_json = excluded.raw_json,
		updated_at = CURRENT_TIMESTAMP`

const selectColumns = `id, address, city, state, zip_code, price, beds, baths, sqft, year_built, lot_size, hoa, property_type, source, rent_estimate, raw_json, created_at, updated_at`

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// Upsert inserts a listing or replaces the stored copy with the same ID.
func (r *Repository) Upsert(l scoring.Listing) (*Entry, error) {
	if err := upsert(r.db, l); err != nil {
		return nil, err
	}
	return r.Get(l.ID)
}

// Import upserts listings in one transaction and returns how many were
// stored.
func (r *Repository) Import(listings []scoring.Listing) (n int, err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning import: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (also failed to roll back: %v)", err, rbErr)
			}
		}
	}()

	for _, l := range listings {
		if err := upsert(tx, l); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return len(listings), nil
}

func upsert(x execer, l scoring.Listing) error {
	if strings.TrimSpace(l.ID) == "" {
		return fmt.Errorf("listing id is required")
	}
	if l.Source == "" {
		l.Source = scoring.SourceCatalog
	}

	raw, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encoding listing %s: %w", l.ID, err)
	}

	_, err = x.Exec(upsertSQL,
		l.ID, l.Address, l.City, l.State, l.ZipCode,
		l.Price, l.Beds, l.Baths, l.Sqft, yearValue(l.YearBuilt), l.LotSize, l.HOA,
		l.PropertyType, string(l.Source), l.RentEstimate,
		string(raw),
	)
	if err != nil {
		return fmt.Errorf("storing listing %s: %w", l.ID, err)
	}
	return nil
}

func yearValue(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return int64(*v)
}

// Get returns a listing by its ID.
func (r *Repository) Get(id string) (*Entry, error) {
	query := fmt.Sprintf("SELECT %s FROM listings WHERE id = ?", selectColumns)
	e, err := scanEntry(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("listing %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying listing %s: %w", id, err)
	}
	return e, nil
}

// ListOptions controls filtering for List.
type ListOptions struct {
	// Locations keeps listings matching any entry (ZIP, city or
	// "City, ST"). Empty means all.
	Locations []string
	Limit     int
}

// List returns stored listings ordered by ID.
func (r *Repository) List(opts ListOptions) (entries []*Entry, err error) {
	query := fmt.Sprintf("SELECT %s FROM listings ORDER BY id", selectColumns)

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("listing catalog: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		if !matchesAny(opts.Locations, e.Listing) {
			continue
		}
		entries = append(entries, e)
		if opts.Limit > 0 && len(entries) == opts.Limit {
			break
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating listings: %w", err)
	}

	return entries, nil
}

// Remove deletes a listing by ID.
func (r *Repository) Remove(id string) error {
	result, err := r.db.Exec("DELETE FROM listings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting listing: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("listing %s not found", id)
	}

	return nil
}

// Count returns the number of stored listings.
func (r *Repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM listings").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting listings: %w", err)
	}
	return n, nil
}

// Candidates returns the stored listings in the buy box's target locations.
func (r *Repository) Candidates(ctx context.Context, box scoring.BuyBox) ([]scoring.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := r.List(ListOptions{Locations: box.Criteria.Locations})
	if err != nil {
		return nil, err
	}

	listings := make([]scoring.Listing, len(entries))
	for i, e := range entries {
		listings[i] = e.Listing
	}
	slog.Debug("catalog candidates", "buy_box", box.ID, "count", len(listings))
	return listings, nil
}

func matchesAny(locations []string, l scoring.Listing) bool {
	if len(locations) == 0 {
		return true
	}
	for _, loc := range locations {
		if scoring.MatchesLocation(loc, l) {
			return true
		}
	}
	return false
}

// scanEntry scans a listing row. raw_json carries the full listing; the
// indexed columns override it.
func scanEntry(row interface{ Scan(...interface{}) error }) (*Entry, error) {
	var e Entry
	var price, beds, baths, sqft, lotSize, hoa, rent sql.NullFloat64
	var yearBuilt sql.NullInt64
	var source, rawJSON string
	var l scoring.Listing

	err := row.Scan(
		&l.ID, &l.Address, &l.City, &l.State, &l.ZipCode,
		&price, &beds, &baths, &sqft, &yearBuilt, &lotSize, &hoa,
		&l.PropertyType, &source, &rent, &rawJSON, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var stored scoring.Listing
	if err := json.Unmarshal([]byte(rawJSON), &stored); err != nil {
		return nil, fmt.Errorf("decoding listing %s: %w", l.ID, err)
	}

	stored.ID, stored.Address, stored.City, stored.State, stored.ZipCode = l.ID, l.Address, l.City, l.State, l.ZipCode
	stored.PropertyType = l.PropertyType
	stored.Source = scoring.Source(source)
	stored.Price = nullFloat(price)
	stored.Beds = nullFloat(beds)
	stored.Baths = nullFloat(baths)
	stored.Sqft = nullFloat(sqft)
	stored.LotSize = nullFloat(lotSize)
	stored.HOA = nullFloat(hoa)
	stored.RentEstimate = nullFloat(rent)
	stored.YearBuilt = nil
	if yearBuilt.Valid {
		y := float64(yearBuilt.Int64)
		stored.YearBuilt = &y
	}

	e.Listing = stored
	return &e, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
