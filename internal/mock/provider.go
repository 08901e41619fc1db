// Package mock generates deterministic sample listings for a buy box.
package mock

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/evcraddock/buybox/internal/scoring"
)

// DefaultCount is the number of listings generated when Count is zero.
const DefaultCount = 20

type place struct {
	city, state, zip string
	lat, lon         float64
}

// places are used when a buy box has no locations, and to fill in the
// missing parts of a location entry.
var places = []place{
	{"Nashville", "TN", "37203", 36.15, -86.79},
	{"Memphis", "TN", "38103", 35.15, -90.05},
	{"Knoxville", "TN", "37902", 35.96, -83.92},
	{"Chattanooga", "TN", "37402", 35.05, -85.31},
	{"Franklin", "TN", "37064", 35.93, -86.87},
}

var streets = []string{"Oak", "Maple", "Cedar", "Elm", "Pine", "Walnut", "Hickory", "Magnolia", "Dogwood", "Willow"}

var suffixes = []string{"St", "Ave", "Dr", "Ln", "Ct", "Way"}

var descriptions = []string{
	"Move-in ready with updated kitchen and fenced yard.",
	"Quiet street, close to schools and shopping.",
	"Open floor plan with new roof in 2021.",
	"Corner lot with mature trees and a two-car garage.",
	"Recently renovated bathrooms and fresh paint throughout.",
}

var fixerDescriptions = []string{
	"Investor special, needs work throughout.",
	"Handyman special. Sold as-is.",
	"Needs TLC, great bones in a strong rental area.",
}

// Provider generates Count listings from Seed. The same seed and buy box
// always produce the same listings.
type Provider struct {
	Seed  uint64
	Count int
}

// Candidates implements the search candidate provider.
func (p Provider) Candidates(ctx context.Context, box scoring.BuyBox) ([]scoring.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Generate(box.Criteria), nil
}

// Generate builds listings spread over the criteria's locations with prices
// around its price range. Some carry HOA dues, flood zones, manufactured
// homes or fixer-upper descriptions so that every kill switch and badge
// can occur.
func (p Provider) Generate(c scoring.Criteria) []scoring.Listing {
	n := p.Count
	if n <= 0 {
		n = DefaultCount
	}
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))

	targets := targetPlaces(c.Locations)
	low, high := priceRange(c)

	listings := make([]scoring.Listing, 0, n)
	for i := 0; i < n; i++ {
		pl := targets[i%len(targets)]
		price := roundTo(low+rng.Float64()*(high-low), 1000)
		beds := float64(2 + rng.IntN(4))
		baths := 1 + float64(rng.IntN(6))/2
		sqft := roundTo(700+beds*350+rng.Float64()*600, 10)
		year := float64(1950 + rng.IntN(74))
		lot := math.Round((0.1+rng.Float64()*0.9)*100) / 100
		rent := roundTo(price*(0.006+rng.Float64()*0.004), 25)
		dom := 1 + rng.IntN(120)
		school := float64(1 + rng.IntN(10))

		l := scoring.Listing{
			ID:           fmt.Sprintf("mock-%d-%03d", p.Seed, i+1),
			Address:      fmt.Sprintf("%d %s %s", 100+rng.IntN(9800), streets[rng.IntN(len(streets))], suffixes[rng.IntN(len(suffixes))]),
			City:         pl.city,
			State:        pl.state,
			ZipCode:      pl.zip,
			Price:        &price,
			Beds:         &beds,
			Baths:        &baths,
			Sqft:         &sqft,
			YearBuilt:    &year,
			LotSize:      &lot,
			Latitude:     pl.lat + (rng.Float64()-0.5)/10,
			Longitude:    pl.lon + (rng.Float64()-0.5)/10,
			PropertyType: "single_family",
			Photos:       []string{fmt.Sprintf("https://picsum.photos/seed/%d-%d/640/480", p.Seed, i+1)},
			Description:  descriptions[rng.IntN(len(descriptions))],
			Condition:    "good",
			DaysOnMarket: &dom,
			MLSNumber:    fmt.Sprintf("MLS%07d", rng.IntN(10_000_000)),
			SchoolRating: &school,
			Source:       scoring.SourceMock,
			RentEstimate: &rent,
		}

		switch roll := rng.IntN(20); {
		case roll < 4:
			hoa := roundTo(50+rng.Float64()*300, 5)
			l.HOA = &hoa
			l.PropertyType = "townhouse"
		case roll < 6:
			flood := true
			l.FloodZone = &flood
		case roll == 6:
			l.PropertyType = "manufactured"
		case roll < 9:
			l.Description = fixerDescriptions[rng.IntN(len(fixerDescriptions))]
			l.Condition = "needs work"
			l.IsForeclosure = rng.IntN(2) == 0
		}

		listings = append(listings, l)
	}
	return listings
}

// targetPlaces turns location entries into places. ZIP codes and cities
// found in the place table borrow its details.
func targetPlaces(locations []string) []place {
	var out []place
	for _, loc := range locations {
		loc = strings.TrimSpace(loc)
		if loc == "" {
			continue
		}
		out = append(out, resolve(loc))
	}
	if len(out) == 0 {
		return places
	}
	return out
}

func resolve(loc string) place {
	if isZip(loc) {
		for _, p := range places {
			if p.zip == loc[:5] {
				p.zip = loc
				return p
			}
		}
		return place{city: "Springfield", zip: loc}
	}

	city, state := loc, ""
	if i := strings.LastIndex(loc, ","); i > 0 {
		city, state = strings.TrimSpace(loc[:i]), strings.TrimSpace(loc[i+1:])
	}
	for _, p := range places {
		if strings.EqualFold(p.city, city) && (state == "" || strings.EqualFold(p.state, state)) {
			return p
		}
	}
	return place{city: city, state: strings.ToUpper(state)}
}

func isZip(s string) bool {
	if len(s) < 5 {
		return false
	}
	for _, r := range s[:5] {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// priceRange spreads prices 15% beyond the buy box's price bounds so that
// tolerance bands and misses are exercised.
func priceRange(c scoring.Criteria) (float64, float64) {
	low, high := 100000.0, 600000.0
	switch {
	case c.PriceMin != nil && c.PriceMax != nil:
		low, high = *c.PriceMin, *c.PriceMax
	case c.PriceMin != nil:
		low, high = *c.PriceMin, *c.PriceMin*1.5
	case c.PriceMax != nil:
		low, high = *c.PriceMax*0.5, *c.PriceMax
	}
	if high < low {
		low, high = high, low
	}
	return low * 0.85, high * 1.15
}

func roundTo(v, step float64) float64 {
	return math.Round(v/step) * step
}
