// Package listing parses candidate listings from raw JSON payloads.
package listing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/evcraddock/buybox/internal/scoring"
)

// sqftPerAcre converts lot sizes reported in square feet.
const sqftPerAcre = 43560.0

// ParseFile reads listings from a JSON file. See ParseAll for accepted shapes.
func ParseFile(path string, source scoring.Source) ([]scoring.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading listings: %w", err)
	}
	listings, err := ParseAll(data, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return listings, nil
}

// ParseAll accepts a JSON array of listings, an object with a "listings" or
// "results" array, or a single listing object.
func ParseAll(data []byte, source scoring.Source) ([]scoring.Listing, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	var items []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decoding listing array: %w", err)
		}
	case '{':
		var top map[string]json.RawMessage
		if err := json.Unmarshal(data, &top); err != nil {
			return nil, fmt.Errorf("decoding listing object: %w", err)
		}
		items = []json.RawMessage{data}
		for _, key := range []string{"listings", "results", "properties"} {
			if nested, ok := top[key]; ok {
				if err := json.Unmarshal(nested, &items); err != nil {
					return nil, fmt.Errorf("decoding %s: %w", key, err)
				}
				break
			}
		}
	default:
		return nil, fmt.Errorf("expected a JSON array or object")
	}

	listings := make([]scoring.Listing, 0, len(items))
	for i, raw := range items {
		l, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("listing %d: %w", i, err)
		}
		if l.Source == "" {
			l.Source = source
		}
		if l.ID == "" {
			l.ID = fmt.Sprintf("%s-%d", source, i+1)
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// Parse extracts a listing from one raw JSON object. It understands flat
// listings as well as realtor-style payloads that nest details under "data",
// "description" and "location". Missing fields stay nil so that scoring can
// report them.
func Parse(raw json.RawMessage) (scoring.Listing, error) {
	var l scoring.Listing

	var data map[string]json.RawMessage
	if err := json.Unmarshal(raw, &data); err != nil {
		return l, fmt.Errorf("decoding listing: %w", err)
	}

	if nested, ok := data["data"]; ok {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(nested, &m); err == nil {
			data = m
		}
	}

	desc := object(data, "description")
	addr := object(object(data, "location"), "address")
	if addr == nil {
		addr = object(data, "address")
	}
	coord := object(addr, "coordinate")
	// Details can live in description, the address object or at the top.
	scopes := []map[string]json.RawMessage{desc, addr, coord, data}

	l.ID = firstString(scopes, "id", "property_id", "listing_id", "mpr_id")
	l.MLSNumber = firstString(scopes, "mls_number", "mls_id")
	l.Address = firstString(scopes, "address", "line", "street", "street_address")
	l.City = firstString(scopes, "city")
	l.State = firstString(scopes, "state_code", "state")
	l.ZipCode = firstString(scopes, "zip_code", "postal_code", "zip", "zipcode")
	l.PropertyType = firstString(scopes, "property_type", "type", "prop_type")
	l.Condition = firstString(scopes, "condition")
	l.Source = scoring.Source(firstString(scopes, "source"))

	l.Price = firstFloat(scopes, "price", "list_price")
	l.Beds = firstFloat(scopes, "beds", "bedrooms")
	l.Baths = firstFloat(scopes, "baths", "bathrooms", "baths_consolidated")
	l.Sqft = firstFloat(scopes, "sqft", "building_size", "living_area")
	l.YearBuilt = firstFloat(scopes, "year_built")
	l.LotSize = firstFloat(scopes, "lot_size", "lot_sqft", "lot_acres")
	l.HOA = firstFloat(scopes, "hoa", "hoa_fee", "hoa_monthly")
	l.RentEstimate = firstFloat(scopes, "rent_estimate", "rent_zestimate", "estimated_rent")
	l.SchoolRating = firstFloat(scopes, "school_rating")

	if v := firstFloat(scopes, "latitude", "lat"); v != nil {
		l.Latitude = *v
	}
	if v := firstFloat(scopes, "longitude", "lon", "lng"); v != nil {
		l.Longitude = *v
	}
	if v := firstFloat(scopes, "days_on_market", "dom"); v != nil {
		d := int(*v)
		l.DaysOnMarket = &d
	}

	if v := firstBool(scopes, "is_foreclosure", "foreclosure"); v != nil {
		l.IsForeclosure = *v
	}
	l.FloodZone = firstBool(scopes, "flood_zone", "in_flood_zone")
	l.Manufactured = firstBool(scopes, "manufactured", "is_manufactured")
	l.FixerUpper = firstBool(scopes, "fixer_upper", "is_fixer_upper")

	// "description" is either free text or the details object.
	if desc == nil {
		l.Description = firstString([]map[string]json.RawMessage{data}, "description", "remarks")
	} else {
		l.Description = firstString([]map[string]json.RawMessage{desc, data}, "text", "remarks")
	}

	l.Photos = photos(data)
	l.Financials = financials(data)

	// Lot sizes above 100 are square feet, not acres.
	if l.LotSize != nil && *l.LotSize > 100 {
		acres := *l.LotSize / sqftPerAcre
		l.LotSize = &acres
	}

	if l.Address == "" {
		l.Address = composeAddress(l)
	}

	return l, nil
}

func composeAddress(l scoring.Listing) string {
	var parts []string
	for _, p := range []string{l.City, strings.TrimSpace(l.State + " " + l.ZipCode)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// object decodes data[key] as a JSON object, or returns nil.
func object(data map[string]json.RawMessage, key string) map[string]json.RawMessage {
	raw, ok := data[key]
	if !ok {
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func firstString(scopes []map[string]json.RawMessage, keys ...string) string {
	for _, s := range scopes {
		if v := jsonString(s, keys...); v != nil {
			return *v
		}
	}
	return ""
}

func firstFloat(scopes []map[string]json.RawMessage, keys ...string) *float64 {
	for _, s := range scopes {
		if v := jsonFloat64(s, keys...); v != nil {
			return v
		}
	}
	return nil
}

func firstBool(scopes []map[string]json.RawMessage, keys ...string) *bool {
	for _, s := range scopes {
		if v := jsonBool(s, keys...); v != nil {
			return v
		}
	}
	return nil
}

// photos collects photo URLs from a list of strings or of {"href": ...}
// objects. Exterior shots tagged house_view come first.
func photos(data map[string]json.RawMessage) []string {
	raw, ok := data["photos"]
	if !ok {
		return nil
	}

	var urls []string
	if err := json.Unmarshal(raw, &urls); err == nil {
		return urls
	}

	var objs []struct {
		Href string `json:"href"`
		Tags []struct {
			Label string `json:"label"`
		} `json:"tags"`
	}
	if err := json.Unmarshal(raw, &objs); err != nil {
		return nil
	}

	var front, rest []string
	for _, p := range objs {
		if p.Href == "" {
			continue
		}
		exterior := false
		for _, t := range p.Tags {
			if t.Label == "house_view" {
				exterior = true
				break
			}
		}
		if exterior {
			front = append(front, p.Href)
		} else {
			rest = append(rest, p.Href)
		}
	}
	return append(front, rest...)
}

func financials(data map[string]json.RawMessage) *scoring.Financials {
	m := object(data, "financials")
	if m == nil {
		return nil
	}
	f := scoring.Financials{
		CapRate:         jsonFloat64(m, "cap_rate"),
		CoCReturn:       jsonFloat64(m, "coc_return", "cash_on_cash"),
		MonthlyCashFlow: jsonFloat64(m, "monthly_cash_flow", "cash_flow"),
	}
	if f.CapRate == nil && f.CoCReturn == nil && f.MonthlyCashFlow == nil {
		return nil
	}
	return &f
}

// jsonFloat64 tries multiple keys and returns the first numeric value.
// Numeric strings such as "325000" are accepted.
func jsonFloat64(data map[string]json.RawMessage, keys ...string) *float64 {
	for _, key := range keys {
		raw, ok := data[key]
		if !ok {
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err == nil {
			return &v
		}
		var s json.Number
		if err := json.Unmarshal(raw, &s); err == nil {
			if f, err := s.Float64(); err == nil {
				return &f
			}
		}
	}
	return nil
}

// jsonString tries multiple keys and returns the first non-empty string.
// Numbers are formatted, so numeric IDs and ZIP codes survive.
func jsonString(data map[string]json.RawMessage, keys ...string) *string {
	for _, key := range keys {
		raw, ok := data[key]
		if !ok {
			continue
		}
		var v string
		if err := json.Unmarshal(raw, &v); err == nil {
			if v = strings.TrimSpace(v); v != "" {
				return &v
			}
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			v := n.String()
			return &v
		}
	}
	return nil
}

// jsonBool tries multiple keys and returns the first boolean value.
func jsonBool(data map[string]json.RawMessage, keys ...string) *bool {
	for _, key := range keys {
		raw, ok := data[key]
		if !ok {
			continue
		}
		var v bool
		if err := json.Unmarshal(raw, &v); err == nil {
			return &v
		}
	}
	return nil
}
