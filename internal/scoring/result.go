package scoring

import "time"

// Badge is the deal-quality tier shown for a listing.
type Badge string

const (
	BadgeGreatDeal  Badge = "Great Deal"
	BadgeGoodDeal   Badge = "Good Deal"
	BadgeFair       Badge = "Fair"
	BadgeOverPriced Badge = "Over-Priced"
)

// Color returns the UI color associated with the badge.
func (b Badge) Color() string {
	switch b {
	case BadgeGreatDeal:
		return "green"
	case BadgeGoodDeal:
		return "blue"
	case BadgeFair:
		return "gray"
	default:
		return "red"
	}
}

// Classify maps a score to a badge. A triggered kill switch always yields
// the lowest tier. Thresholds are inclusive lower bounds.
func Classify(score int, killSwitchTriggered bool) Badge {
	switch {
	case killSwitchTriggered:
		return BadgeOverPriced
	case score >= 85:
		return BadgeGreatDeal
	case score >= 65:
		return BadgeGoodDeal
	case score >= 40:
		return BadgeFair
	default:
		return BadgeOverPriced
	}
}

// MatchDetails breaks the final score into its sub-scores. Axes whose
// criteria were not set report 100 and are not listed in ActiveAxes.
type MatchDetails struct {
	PriceScore          int      `json:"price_score"`
	LocationScore       int      `json:"location_score"`
	PropertyScore       int      `json:"property_score"`
	FinancialScore      int      `json:"financial_score"`
	KillSwitchTriggered bool     `json:"kill_switch_triggered"`
	ActiveAxes          []string `json:"active_axes"`
}

// ScoredListing is a listing with its score and explanation.
type ScoredListing struct {
	Listing
	Score        int          `json:"score"`
	Badge        Badge        `json:"badge"`
	BadgeColor   string       `json:"badge_color"`
	MatchReasons []string     `json:"match_reasons"`
	DealBreakers []string     `json:"deal_breakers"`
	MatchDetails MatchDetails `json:"match_details"`
}

// Exclusion records why a candidate was left out of the ranked results.
type Exclusion struct {
	ListingID string `json:"listing_id"`
	Reason    string `json:"reason"`
}

// BuyBox is a named set of criteria.
type BuyBox struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Criteria Criteria `json:"criteria" yaml:"criteria"`
}

// SearchResult is the ranked outcome of scoring one buy box's candidates.
// ID and CreatedAt are assigned by the caller that records the search.
type SearchResult struct {
	ID            string          `json:"id,omitempty"`
	BuyBoxID      string          `json:"buy_box_id"`
	BuyBoxName    string          `json:"buy_box_name"`
	Query         string          `json:"query"`
	TotalFound    int             `json:"total_found"`
	Listings      []ScoredListing `json:"listings"`
	Excluded      []Exclusion     `json:"excluded,omitempty"`
	TooPermissive bool            `json:"too_permissive,omitempty"`
	SearchParams  Criteria        `json:"search_params"`
	CreatedAt     time.Time       `json:"created_at"`
}
