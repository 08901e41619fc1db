package search

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evcraddock/buybox/internal/scoring"
)

// Summary is one row of search history.
type Summary struct {
	ID         string    `json:"id"`
	BuyBoxID   string    `json:"buy_box_id"`
	BuyBoxName string    `json:"buy_box_name"`
	Query      string    `json:"query"`
	TotalFound int       `json:"total_found"`
	Excluded   int       `json:"excluded"`
	CreatedAt  time.Time `json:"created_at"`
}

// History stores search results in SQLite.
type History struct {
	db *sql.DB
}

// NewHistory creates a search history repository.
func NewHistory(db *sql.DB) *History {
	return &History{db: db}
}

// Record saves a result and its ranking. Results are immutable, so
// recording the same ID twice is an error.
func (h *History) Record(result *scoring.SearchResult) (err error) {
	if result.ID == "" {
		return fmt.Errorf("search result has no id")
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding search result: %w", err)
	}

	tx, err := h.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (also failed to roll back: %v)", err, rbErr)
			}
		}
	}()

	_, err = tx.Exec(
		`INSERT INTO searches (id, buy_box_id, buy_box_name, query, total_found, excluded, result_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID, result.BuyBoxID, result.BuyBoxName, result.Query,
		result.TotalFound, len(result.Excluded), string(raw), result.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting search: %w", err)
	}

	for i, l := range result.Listings {
		_, err = tx.Exec(
			`INSERT INTO search_listings (search_id, rank, listing_id, score, badge, price, address)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			result.ID, i+1, l.ID, l.Score, string(l.Badge), l.Price, shortAddress(l.Listing),
		)
		if err != nil {
			return fmt.Errorf("inserting ranked listing %s: %w", l.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing search: %w", err)
	}
	return nil
}

// Get returns a recorded search result by ID.
func (h *History) Get(id string) (*scoring.SearchResult, error) {
	var raw string
	err := h.db.QueryRow(`SELECT result_json FROM searches WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("search %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying search %s: %w", id, err)
	}

	var result scoring.SearchResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("decoding search %s: %w", id, err)
	}
	return &result, nil
}

// ListOptions controls filtering for List.
type ListOptions struct {
	BuyBoxID string // empty = all
	Limit    int
}

// List returns search summaries, newest first.
func (h *History) List(opts ListOptions) (summaries []Summary, err error) {
	query := `SELECT id, buy_box_id, buy_box_name, query, total_found, excluded, created_at FROM searches`
	var args []interface{}
	if opts.BuyBoxID != "" {
		query += ` WHERE buy_box_id = ?`
		args = append(args, opts.BuyBoxID)
	}
	query += ` ORDER BY created_at DESC, id`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing searches: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		var s Summary
		if err := rows.Scan(&s.ID, &s.BuyBoxID, &s.BuyBoxName, &s.Query, &s.TotalFound, &s.Excluded, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning search: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating searches: %w", err)
	}
	return summaries, nil
}

// Delete removes a recorded search and its ranking.
func (h *History) Delete(id string) error {
	result, err := h.db.Exec(`DELETE FROM searches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting search: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("search %s not found", id)
	}
	return nil
}

// shortAddress joins the street address and city.
func shortAddress(l scoring.Listing) string {
	var parts []string
	for _, p := range []string{l.Address, l.City} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
