package search

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/evcraddock/buybox/internal/scoring"
)

// defaultStatsLimit caps the top buy boxes and great finds when
// ListOptions.Limit is zero.
const defaultStatsLimit = 5

// Stats summarizes recorded searches.
type Stats struct {
	Searches      int           `json:"searches"`
	BuyBoxes      int           `json:"buy_boxes"`
	ListingsFound int           `json:"listings_found"`
	Ranked        int           `json:"ranked"`
	AverageScore  float64       `json:"average_score"`
	GreatDeals    int           `json:"great_deals"`
	TopBuyBoxes   []BuyBoxStats `json:"top_buy_boxes"`
	GreatFinds    []Find        `json:"great_finds"`
}

// BuyBoxStats is the search activity of one buy box.
type BuyBoxStats struct {
	BuyBoxID      string  `json:"buy_box_id"`
	BuyBoxName    string  `json:"buy_box_name"`
	Searches      int     `json:"searches"`
	ListingsFound int     `json:"listings_found"`
	AverageScore  float64 `json:"average_score"`
}

// Find is a Great Deal listing from a recorded search.
type Find struct {
	SearchID  string    `json:"search_id"`
	BuyBoxID  string    `json:"buy_box_id"`
	ListingID string    `json:"listing_id"`
	Address   string    `json:"address"`
	Price     *float64  `json:"price,omitempty"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats aggregates the search history, optionally for one buy box.
// Averages are over ranked listings, so searches that returned nothing
// count as searches but do not pull the average down.
func (h *History) Stats(opts ListOptions) (*Stats, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultStatsLimit
	}

	var (
		where string
		args  []interface{}
	)
	if opts.BuyBoxID != "" {
		where = ` WHERE s.buy_box_id = ?`
		args = append(args, opts.BuyBoxID)
	}

	var st Stats
	err := h.db.QueryRow(
		`SELECT COUNT(*), COUNT(DISTINCT s.buy_box_id), COALESCE(SUM(s.total_found), 0) FROM searches s`+where,
		args...,
	).Scan(&st.Searches, &st.BuyBoxes, &st.ListingsFound)
	if err != nil {
		return nil, fmt.Errorf("counting searches: %w", err)
	}

	err = h.db.QueryRow(
		`SELECT COUNT(*), COALESCE(AVG(sl.score), 0), COALESCE(SUM(CASE WHEN sl.badge = ? THEN 1 ELSE 0 END), 0)
		 FROM search_listings sl JOIN searches s ON s.id = sl.search_id`+where,
		queryArgs([]interface{}{string(scoring.BadgeGreatDeal)}, args)...,
	).Scan(&st.Ranked, &st.AverageScore, &st.GreatDeals)
	if err != nil {
		return nil, fmt.Errorf("averaging scores: %w", err)
	}

	if st.TopBuyBoxes, err = h.topBuyBoxes(where, args, limit); err != nil {
		return nil, err
	}
	if st.GreatFinds, err = h.greatFinds(where, args, limit); err != nil {
		return nil, err
	}
	return &st, nil
}

// topBuyBoxes ranks buy boxes by their average listing score.
func (h *History) topBuyBoxes(where string, args []interface{}, limit int) (top []BuyBoxStats, err error) {
	rows, err := h.db.Query(
		`SELECT s.buy_box_id, MAX(s.buy_box_name), COUNT(*), SUM(s.total_found),
		        COALESCE(SUM(r.score_sum) * 1.0 / NULLIF(SUM(r.ranked), 0), 0)
		 FROM searches s
		 LEFT JOIN (SELECT search_id, SUM(score) AS score_sum, COUNT(*) AS ranked
		            FROM search_listings GROUP BY search_id) r
		   ON r.search_id = s.id`+where+`
		 GROUP BY s.buy_box_id
		 ORDER BY 5 DESC, s.buy_box_id
		 LIMIT ?`,
		queryArgs(nil, args, limit)...,
	)
	if err != nil {
		return nil, fmt.Errorf("ranking buy boxes: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	top = []BuyBoxStats{}
	for rows.Next() {
		var b BuyBoxStats
		if err := rows.Scan(&b.BuyBoxID, &b.BuyBoxName, &b.Searches, &b.ListingsFound, &b.AverageScore); err != nil {
			return nil, fmt.Errorf("scanning buy box stats: %w", err)
		}
		top = append(top, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating buy box stats: %w", err)
	}
	return top, nil
}

// greatFinds returns the most recent Great Deal listings, best first
// within a search.
func (h *History) greatFinds(where string, args []interface{}, limit int) (finds []Find, err error) {
	cond := ` WHERE sl.badge = ?`
	if where != "" {
		cond += ` AND s.buy_box_id = ?`
	}
	rows, err := h.db.Query(
		`SELECT sl.search_id, s.buy_box_id, sl.listing_id, sl.address, sl.price, sl.score, s.created_at
		 FROM search_listings sl JOIN searches s ON s.id = sl.search_id`+cond+`
		 ORDER BY s.created_at DESC, sl.rank
		 LIMIT ?`,
		queryArgs([]interface{}{string(scoring.BadgeGreatDeal)}, args, limit)...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing great finds: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	finds = []Find{}
	for rows.Next() {
		var (
			f     Find
			price sql.NullFloat64
		)
		if err := rows.Scan(&f.SearchID, &f.BuyBoxID, &f.ListingID, &f.Address, &price, &f.Score, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning great find: %w", err)
		}
		if price.Valid {
			f.Price = &price.Float64
		}
		finds = append(finds, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating great finds: %w", err)
	}
	return finds, nil
}

// queryArgs concatenates placeholder arguments into a new slice.
func queryArgs(head, filter []interface{}, tail ...interface{}) []interface{} {
	out := make([]interface{}, 0, len(head)+len(filter)+len(tail))
	out = append(out, head...)
	out = append(out, filter...)
	return append(out, tail...)
}
