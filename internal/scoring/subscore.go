package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// axis is one sub-score with its explanations. Inactive axes are left out
// of the aggregate.
type axis struct {
	name     string
	active   bool
	score    int
	reasons  []string
	breakers []string
}

// term is one bound check inside the property or financial axis.
type term struct {
	value    *float64
	min, max *float64
	// years switches the tolerance band from a percentage of the bound to
	// an absolute number of years.
	years  bool
	show   func(v float64) string // the listing's value, e.g. "4 beds"
	bound  func(v float64) string // a bound, e.g. "3"
	suffix string                 // appended after a min-only bound, e.g. "+"
}

func (t term) specified() bool {
	return t.min != nil || t.max != nil
}

func (t term) requirement() string {
	switch {
	case t.min != nil && t.max != nil:
		return t.bound(*t.min) + "-" + t.bound(*t.max)
	case t.min != nil:
		return t.bound(*t.min) + t.suffix
	default:
		return "up to " + t.bound(*t.max)
	}
}

func (t term) fit(toleranceBand int) Fit {
	if t.years {
		band := float64(toleranceBand)
		return scoreWithSpan(*t.value, t.min, t.max, band, band)
	}
	return scoreWithTolerance(*t.value, t.min, t.max, toleranceBand)
}

// scoreTerms averages every evaluable term. Terms with no bound or no
// listing value contribute nothing.
func scoreTerms(name string, terms []term, toleranceBand int) axis {
	a := axis{name: name}
	var sum float64
	var n int

	for _, t := range terms {
		if !t.specified() || t.value == nil {
			continue
		}
		f := t.fit(toleranceBand)
		sum += f.Score
		n++

		shown := t.show(*t.value)
		switch {
		case f.Placement == Inverted:
			a.breakers = append(a.breakers, fmt.Sprintf("%s range is inverted", t.requirement()))
		case f.Placement.Miss():
			a.breakers = append(a.breakers, fmt.Sprintf("%s is outside your %s requirement", shown, t.requirement()))
		case f.Placement == Within:
			a.reasons = append(a.reasons, fmt.Sprintf("%s matches your %s requirement", shown, t.requirement()))
		default:
			a.reasons = append(a.reasons, fmt.Sprintf("%s is within tolerance of your %s requirement", shown, t.requirement()))
		}
	}

	if n == 0 {
		return a
	}
	a.active = true
	a.score = clamp100(round(sum / float64(n)))
	return a
}

func priceAxis(c Criteria, l Listing) axis {
	a := axis{name: "price"}
	if !c.hasPriceBounds() {
		return a
	}

	p := l.price()
	f := scoreWithTolerance(p, c.PriceMin, c.PriceMax, c.ToleranceBand)
	a.active = true
	a.score = clamp100(round(f.Score))

	switch f.Placement {
	case Within:
		a.reasons = append(a.reasons, fmt.Sprintf("Price %s is within your %s budget", money(p), budget(c)))
	case Above:
		a.reasons = append(a.reasons, fmt.Sprintf("Price %s is %s over your %s max, within tolerance", money(p), pct(f.Off), money(*c.PriceMax)))
	case Below:
		a.reasons = append(a.reasons, fmt.Sprintf("Price %s is %s under your %s min, within tolerance", money(p), pct(f.Off), money(*c.PriceMin)))
	case TooHigh:
		a.breakers = append(a.breakers, fmt.Sprintf("Price %s exceeds budget by %s", money(p), pct(f.Off)))
	case TooLow:
		a.breakers = append(a.breakers, fmt.Sprintf("Price %s is %s below your %s minimum", money(p), pct(f.Off), money(*c.PriceMin)))
	case Inverted:
		a.breakers = append(a.breakers, "Price range is inverted")
	}

	return a
}

func budget(c Criteria) string {
	switch {
	case c.PriceMin != nil && c.PriceMax != nil:
		return money(*c.PriceMin) + "-" + money(*c.PriceMax)
	case c.PriceMin != nil:
		return money(*c.PriceMin) + "+"
	default:
		return "up to " + money(*c.PriceMax)
	}
}

func locationAxis(c Criteria, l Listing) axis {
	a := axis{name: "location"}
	if len(c.Locations) == 0 {
		return a
	}
	a.active = true

	for _, loc := range c.Locations {
		if MatchesLocation(loc, l) {
			a.score = 100
			a.reasons = append(a.reasons, "Located in "+loc)
			return a
		}
	}

	a.breakers = append(a.breakers, fmt.Sprintf("%s is not in your target locations", place(l)))
	return a
}

// MatchesLocation reports whether a buy box location entry (ZIP code, city
// or "City, ST") names the listing's location. Matching is case-insensitive.
func MatchesLocation(entry string, l Listing) bool {
	want := normalizePlace(entry)
	if want == "" {
		return false
	}

	zip := strings.TrimSpace(l.ZipCode)
	if zip != "" && (want == strings.ToLower(zip) || (len(zip) > 5 && want == zip[:5])) {
		return true
	}

	city := normalizePlace(l.City)
	if city == "" {
		return false
	}
	if want == city {
		return true
	}
	state := normalizePlace(l.State)
	return state != "" && (want == city+", "+state || want == city+" "+state)
}

func normalizePlace(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

func place(l Listing) string {
	switch {
	case l.City != "" && l.ZipCode != "":
		return l.City + " " + l.ZipCode
	case l.City != "":
		return l.City
	case l.ZipCode != "":
		return l.ZipCode
	default:
		return "Location"
	}
}

func propertyAxis(c Criteria, l Listing) axis {
	hoa := 0.0
	if l.HOA != nil {
		hoa = *l.HOA
	}

	terms := []term{
		{value: l.Beds, min: c.BedsMin, max: c.BedsMax, show: unit("beds"), bound: plain, suffix: "+"},
		{value: l.Baths, min: c.BathsMin, max: c.BathsMax, show: unit("baths"), bound: plain, suffix: "+"},
		{value: l.Sqft, min: c.SqftMin, max: c.SqftMax, show: unit("sqft"), bound: comma, suffix: "+"},
		{value: l.YearBuilt, min: c.YearBuiltMin, max: c.YearBuiltMax, years: true, show: built, bound: plain, suffix: " or newer"},
		{value: l.LotSize, min: c.LotSizeMin, max: c.LotSizeMax, show: acres, bound: acres, suffix: "+"},
		{value: &hoa, max: c.HOAMax, show: hoaDues, bound: perMonth},
	}

	return scoreTerms("property", terms, c.ToleranceBand)
}

func financialAxis(c Criteria, l Listing) axis {
	var f Financials
	if l.Financials != nil {
		f = *l.Financials
	}

	terms := []term{
		{value: f.CapRate, min: c.CapRateMin, show: percentOf("cap rate"), bound: percent, suffix: "+"},
		{value: f.CoCReturn, min: c.CoCReturnMin, show: percentOf("cash-on-cash return"), bound: percent, suffix: "+"},
		{value: f.MonthlyCashFlow, min: c.CashFlowMin, show: cashFlow, bound: perMonth, suffix: "+"},
	}

	return scoreTerms("financial", terms, c.ToleranceBand)
}

// Formatting helpers for reasons.

func money(v float64) string {
	if v < 0 {
		return "-$" + humanize.Comma(int64(math.Round(-v)))
	}
	return "$" + humanize.Comma(int64(math.Round(v)))
}

func pct(v float64) string {
	return fmt.Sprintf("%.0f%%", v)
}

func plain(v float64) string {
	return humanize.Ftoa(v)
}

func comma(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}

func unit(name string) func(float64) string {
	return func(v float64) string {
		if name == "sqft" {
			return comma(v) + " " + name
		}
		return plain(v) + " " + name
	}
}

func built(v float64) string {
	return "Built " + plain(v)
}

func acres(v float64) string {
	return humanize.FtoaWithDigits(v, 2) + " acres"
}

func perMonth(v float64) string {
	return money(v) + "/mo"
}

func hoaDues(v float64) string {
	if v == 0 {
		return "No HOA"
	}
	return "HOA " + perMonth(v)
}

func percent(v float64) string {
	return humanize.FtoaWithDigits(v, 2) + "%"
}

func percentOf(label string) func(float64) string {
	return func(v float64) string {
		return percent(v) + " " + label
	}
}

func cashFlow(v float64) string {
	return perMonth(v) + " cash flow"
}
