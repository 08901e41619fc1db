package scoring

import (
	"fmt"
	"math"
	"strings"
)

// Source records where a listing came from.
type Source string

const (
	SourceZillow  Source = "zillow"
	SourceMock    Source = "mock"
	SourceCatalog Source = "catalog"
	SourceImport  Source = "import"
)

// Financials holds investment estimates produced by a financial model.
// Percentages are expressed as whole numbers (8.5 means 8.5%).
type Financials struct {
	CapRate         *float64 `json:"cap_rate,omitempty"`
	CoCReturn       *float64 `json:"coc_return,omitempty"`
	MonthlyCashFlow *float64 `json:"monthly_cash_flow,omitempty"`
}

// Listing is a candidate property. Price, beds, baths and sqft are required
// for scoring; everything else is optional.
type Listing struct {
	ID           string   `json:"id"`
	Address      string   `json:"address"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	ZipCode      string   `json:"zip_code"`
	Price        *float64 `json:"price"`
	Beds         *float64 `json:"beds"`
	Baths        *float64 `json:"baths"`
	Sqft         *float64 `json:"sqft"`
	YearBuilt    *float64 `json:"year_built,omitempty"`
	LotSize      *float64 `json:"lot_size,omitempty"` // acres
	HOA          *float64 `json:"hoa,omitempty"`      // monthly dues
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	PropertyType string   `json:"property_type"`
	Photos       []string `json:"photos,omitempty"`
	Description  string   `json:"description,omitempty"`
	Condition    string   `json:"condition,omitempty"`

	IsForeclosure bool     `json:"is_foreclosure,omitempty"`
	DaysOnMarket  *int     `json:"days_on_market,omitempty"`
	MLSNumber     string   `json:"mls_number,omitempty"`
	SchoolRating  *float64 `json:"school_rating,omitempty"`
	Source        Source   `json:"source,omitempty"`
	RentEstimate  *float64 `json:"rent_estimate,omitempty"`

	// Explicit flags win over derived ones when set.
	FloodZone    *bool `json:"flood_zone,omitempty"`
	Manufactured *bool `json:"manufactured,omitempty"`
	FixerUpper   *bool `json:"fixer_upper,omitempty"`

	Financials *Financials `json:"financials,omitempty"`
}

// ListingError describes a candidate that could not be scored.
type ListingError struct {
	ListingID string
	Field     string
	Reason    string
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("listing %s: %s %s", e.ListingID, e.Field, e.Reason)
}

// Check reports the first missing essential field, or the first field
// holding a negative or non-finite value.
func (l Listing) Check() error {
	required := []struct {
		name  string
		value *float64
	}{
		{"price", l.Price},
		{"beds", l.Beds},
		{"baths", l.Baths},
		{"sqft", l.Sqft},
	}
	for _, r := range required {
		if r.value == nil {
			return &ListingError{ListingID: l.ID, Field: r.name, Reason: "is missing"}
		}
		if !validAmount(*r.value) {
			return &ListingError{ListingID: l.ID, Field: r.name, Reason: fmt.Sprintf("is invalid (%g)", *r.value)}
		}
	}

	optional := []struct {
		name  string
		value *float64
	}{
		{"year_built", l.YearBuilt},
		{"lot_size", l.LotSize},
		{"hoa", l.HOA},
		{"rent_estimate", l.RentEstimate},
	}
	for _, o := range optional {
		if o.value != nil && !validAmount(*o.value) {
			return &ListingError{ListingID: l.ID, Field: o.name, Reason: fmt.Sprintf("is invalid (%g)", *o.value)}
		}
	}
	return nil
}

// validAmount reports whether v is a finite, non-negative number.
func validAmount(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Flags are the listing attributes kill switches look at.
type Flags struct {
	FloodZone    bool `json:"flood_zone"`
	HasHOA       bool `json:"has_hoa"`
	Manufactured bool `json:"manufactured"`
	FixerUpper   bool `json:"fixer_upper"`
}

var manufacturedTypes = []string{"manufactured", "mobile", "mfd"}

// fixerUpperTerms are condition/description phrases that signal major repairs.
var fixerUpperTerms = []string{
	"fixer", "needs work", "tlc", "handyman special", "investor special",
	"as-is", "sold as is", "rehab", "teardown", "tear down", "needs repair",
	"distressed", "poor condition", "major repairs",
}

// DeriveFlags computes kill-switch flags, preferring explicit values and
// falling back to type, HOA and text heuristics.
func (l Listing) DeriveFlags() Flags {
	var f Flags

	if l.FloodZone != nil {
		f.FloodZone = *l.FloodZone
	}

	f.HasHOA = l.HOA != nil && *l.HOA > 0

	if l.Manufactured != nil {
		f.Manufactured = *l.Manufactured
	} else {
		f.Manufactured = containsAny(strings.ToLower(l.PropertyType), manufacturedTypes)
	}

	if l.FixerUpper != nil {
		f.FixerUpper = *l.FixerUpper
	} else {
		text := strings.ToLower(l.Condition + " " + l.Description)
		f.FixerUpper = containsAny(text, fixerUpperTerms)
	}

	return f
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// price returns the listing price. Only valid after Check.
func (l Listing) price() float64 {
	return *l.Price
}
