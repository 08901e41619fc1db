package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/evcraddock/buybox/internal/buybox"
	"github.com/evcraddock/buybox/internal/catalog"
	"github.com/evcraddock/buybox/internal/scoring"
	"github.com/evcraddock/buybox/internal/search"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table wraps a tabwriter and keeps the first write error.
type table struct {
	tw  *tabwriter.Writer
	err error
}

func newTable(w io.Writer, headers ...string) *table {
	t := &table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	t.row(headers...)
	seps := make([]string, len(headers))
	for i, h := range headers {
		seps[i] = strings.Repeat("-", len(h))
	}
	t.row(seps...)
	return t
}

func (t *table) row(cells ...string) {
	if t.err != nil {
		return
	}
	if _, err := fmt.Fprintln(t.tw, strings.Join(cells, "\t")); err != nil {
		t.err = fmt.Errorf("writing table row: %w", err)
	}
}

func (t *table) flush() error {
	if t.err != nil {
		return t.err
	}
	if err := t.tw.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}
	return nil
}

// printResult prints a ranked search result. With explain set, each
// listing is followed by its match reasons and deal breakers.
func printResult(w io.Writer, res *scoring.SearchResult, limit int, explain bool) error {
	listings := res.Listings
	if limit > 0 && len(listings) > limit {
		listings = listings[:limit]
	}

	fmt.Fprintf(w, "Search %s for %q", res.ID, res.BuyBoxName)
	if res.Query != "" {
		fmt.Fprintf(w, " in %s", res.Query)
	}
	fmt.Fprintln(w)
	if res.TooPermissive {
		fmt.Fprintln(w, "Note: this buy box has no active criteria, so every listing scores 50.")
	}
	fmt.Fprintln(w)

	if len(listings) == 0 {
		fmt.Fprintln(w, "No listings matched.")
	} else if explain {
		for i, l := range listings {
			fmt.Fprintf(w, "%d. %s  %d  %s  %s\n", i+1, l.ID, l.Score, l.Badge, formatAddress(l.Listing))
			fmt.Fprintf(w, "   Price %s  Beds %s  Baths %s  Sqft %s\n",
				formatMoney(l.Price), formatNumber(l.Beds), formatNumber(l.Baths), formatCount(l.Sqft))
			for _, r := range l.MatchReasons {
				fmt.Fprintf(w, "   + %s\n", r)
			}
			for _, d := range l.DealBreakers {
				fmt.Fprintf(w, "   - %s\n", d)
			}
			fmt.Fprintln(w)
		}
	} else {
		t := newTable(w, "RANK", "SCORE", "BADGE", "PRICE", "BED", "BATH", "SQFT", "ID", "ADDRESS")
		for i, l := range listings {
			t.row(
				fmt.Sprintf("%d", i+1),
				fmt.Sprintf("%d", l.Score),
				string(l.Badge),
				formatMoney(l.Price),
				formatNumber(l.Beds),
				formatNumber(l.Baths),
				formatCount(l.Sqft),
				l.ID,
				truncate(formatAddress(l.Listing), 40),
			)
		}
		if err := t.flush(); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\nTotal: %d listings", res.TotalFound)
	if len(listings) < res.TotalFound {
		fmt.Fprintf(w, " (showing %d)", len(listings))
	}
	if n := len(res.Excluded); n > 0 {
		fmt.Fprintf(w, ", %d excluded", n)
	}
	fmt.Fprintln(w)
	return nil
}

// printBuyBoxTable prints buy boxes as a formatted table.
func printBuyBoxTable(w io.Writer, boxes []*buybox.BuyBox) error {
	if len(boxes) == 0 {
		fmt.Fprintln(w, "No buy boxes found.")
		return nil
	}

	t := newTable(w, "ID", "NAME", "STRATEGY", "LOCATIONS", "PRICE", "ACTIVE")
	for _, b := range boxes {
		active := "no"
		if b.IsActive {
			active = "yes"
		}
		t.row(
			b.ID,
			truncate(b.Name, 30),
			string(b.Criteria.Normalize().Strategy),
			truncate(strings.Join(b.Criteria.Locations, "; "), 30),
			formatRange(b.Criteria.PriceMin, b.Criteria.PriceMax, formatMoney),
			active,
		)
	}
	if err := t.flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal: %d buy boxes\n", len(boxes))
	return nil
}

// printBuyBox prints a single buy box in text format.
func printBuyBox(w io.Writer, b *buybox.BuyBox) {
	c := b.Criteria.Normalize()
	fmt.Fprintf(w, "Buy box %s\n", b.ID)
	fmt.Fprintf(w, "  Name:       %s\n", b.Name)
	fmt.Fprintf(w, "  Active:     %t\n", b.IsActive)
	fmt.Fprintf(w, "  Strategy:   %s\n", c.Strategy)
	if len(c.Locations) > 0 {
		fmt.Fprintf(w, "  Locations:  %s\n", strings.Join(c.Locations, "; "))
	}

	ranges := []struct {
		label    string
		min, max *float64
		format   func(*float64) string
	}{
		{"Price", c.PriceMin, c.PriceMax, formatMoney},
		{"Beds", c.BedsMin, c.BedsMax, formatNumber},
		{"Baths", c.BathsMin, c.BathsMax, formatNumber},
		{"Sqft", c.SqftMin, c.SqftMax, formatCount},
		{"Year", c.YearBuiltMin, c.YearBuiltMax, formatNumber},
		{"Lot", c.LotSizeMin, c.LotSizeMax, formatNumber},
	}
	for _, r := range ranges {
		if r.min == nil && r.max == nil {
			continue
		}
		fmt.Fprintf(w, "  %-11s %s\n", r.label+":", formatRange(r.min, r.max, r.format))
	}
	if c.HOAMax != nil {
		fmt.Fprintf(w, "  HOA max:    %s/mo\n", formatMoney(c.HOAMax))
	}
	if c.CapRateMin != nil {
		fmt.Fprintf(w, "  Cap rate:   %s%%+\n", formatNumber(c.CapRateMin))
	}
	if c.CoCReturnMin != nil {
		fmt.Fprintf(w, "  CoC return: %s%%+\n", formatNumber(c.CoCReturnMin))
	}
	if c.CashFlowMin != nil {
		fmt.Fprintf(w, "  Cash flow:  %s/mo+\n", formatMoney(c.CashFlowMin))
	}

	var switches []string
	ks := c.KillSwitches
	for _, s := range []struct {
		on   bool
		name string
	}{
		{ks.HOA, "HOA"},
		{ks.FloodZone, "flood zone"},
		{ks.Manufactured, "manufactured"},
		{ks.FixerUpper, "fixer-upper"},
	} {
		if s.on {
			switches = append(switches, s.name)
		}
	}
	if len(switches) > 0 {
		fmt.Fprintf(w, "  Kill:       %s\n", strings.Join(switches, ", "))
	}
	fmt.Fprintf(w, "  Tolerance:  %d%%\n", c.ToleranceBand)
	if !b.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "  Updated:    %s\n", b.UpdatedAt.Format("2006-01-02 15:04"))
	}
}

// printListingTable prints catalog entries as a formatted table.
func printListingTable(w io.Writer, entries []*catalog.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No listings found.")
		return nil
	}

	t := newTable(w, "ID", "ADDRESS", "PRICE", "BED", "BATH", "SQFT", "SOURCE")
	for _, e := range entries {
		t.row(
			e.ID,
			truncate(formatAddress(e.Listing), 40),
			formatMoney(e.Price),
			formatNumber(e.Beds),
			formatNumber(e.Baths),
			formatCount(e.Sqft),
			string(e.Source),
		)
	}
	if err := t.flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal: %d listings\n", len(entries))
	return nil
}

// printHistoryTable prints recorded searches as a formatted table.
func printHistoryTable(w io.Writer, summaries []search.Summary) error {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No searches recorded.")
		return nil
	}

	t := newTable(w, "ID", "WHEN", "BUY BOX", "QUERY", "FOUND", "EXCLUDED")
	for _, s := range summaries {
		t.row(
			s.ID,
			humanize.Time(s.CreatedAt),
			s.BuyBoxID,
			truncate(s.Query, 30),
			fmt.Sprintf("%d", s.TotalFound),
			fmt.Sprintf("%d", s.Excluded),
		)
	}
	return t.flush()
}

// printStats prints a search history summary.
func printStats(w io.Writer, st *search.Stats) error {
	fmt.Fprintf(w, "Searches:       %d\n", st.Searches)
	fmt.Fprintf(w, "Buy boxes:      %d\n", st.BuyBoxes)
	fmt.Fprintf(w, "Listings found: %s\n", humanize.Comma(int64(st.ListingsFound)))
	fmt.Fprintf(w, "Average score:  %.1f over %d ranked listings\n", st.AverageScore, st.Ranked)
	fmt.Fprintf(w, "Great deals:    %d\n", st.GreatDeals)

	if len(st.TopBuyBoxes) > 0 {
		fmt.Fprintln(w, "\nTop buy boxes")
		t := newTable(w, "BUY BOX", "NAME", "SEARCHES", "FOUND", "AVG SCORE")
		for _, b := range st.TopBuyBoxes {
			t.row(
				b.BuyBoxID,
				truncate(b.BuyBoxName, 30),
				fmt.Sprintf("%d", b.Searches),
				fmt.Sprintf("%d", b.ListingsFound),
				fmt.Sprintf("%.1f", b.AverageScore),
			)
		}
		if err := t.flush(); err != nil {
			return err
		}
	}

	if len(st.GreatFinds) > 0 {
		fmt.Fprintln(w, "\nRecent great finds")
		t := newTable(w, "SCORE", "PRICE", "ID", "ADDRESS", "BUY BOX", "WHEN")
		for _, f := range st.GreatFinds {
			t.row(
				fmt.Sprintf("%d", f.Score),
				formatMoney(f.Price),
				f.ListingID,
				truncate(f.Address, 40),
				f.BuyBoxID,
				humanize.Time(f.CreatedAt),
			)
		}
		if err := t.flush(); err != nil {
			return err
		}
	}
	return nil
}

// formatPrice formats a dollar amount with thousands separators.
func formatPrice(dollars float64) string {
	return humanize.Comma(int64(math.Round(dollars)))
}

func formatMoney(v *float64) string {
	if v == nil {
		return "-"
	}
	if *v < 0 {
		return "-$" + formatPrice(-*v)
	}
	return "$" + formatPrice(*v)
}

func formatNumber(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

func formatCount(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatPrice(*v)
}

// formatRange renders a min/max pair with either side optional.
func formatRange(min, max *float64, format func(*float64) string) string {
	switch {
	case min != nil && max != nil:
		return format(min) + " - " + format(max)
	case min != nil:
		return format(min) + "+"
	case max != nil:
		return "up to " + format(max)
	default:
		return "-"
	}
}

// formatAddress joins the street address with city, state and ZIP.
func formatAddress(l scoring.Listing) string {
	var parts []string
	if l.Address != "" {
		parts = append(parts, l.Address)
	}
	if l.City != "" {
		parts = append(parts, l.City)
	}
	if tail := strings.TrimSpace(l.State + " " + l.ZipCode); tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
