package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/evcraddock/buybox/internal/buybox"
	"github.com/evcraddock/buybox/internal/catalog"
	"github.com/evcraddock/buybox/internal/scoring"
	"github.com/evcraddock/buybox/internal/search"
)

const nashvilleBox = `
id: nashville-rentals
name: Nashville rentals
criteria:
  strategy: Buy-&-Hold
  locations: [Nashville]
  price_min: 200000
  price_max: 300000
  beds_min: 3
  kill_switches:
    flood_zone: true
  tolerance_band: 10
`

const memphisBox = `
id: memphis-flips
name: Memphis flips
is_active: false
criteria:
  strategy: Flip
  locations: [Memphis]
  price_max: 150000
`

const catalogListings = `[
  {"id": "n1", "address": "1 Oak St", "city": "Nashville", "state": "TN", "zip_code": "37203",
   "price": 250000, "beds": 3, "baths": 2, "sqft": 1500},
  {"id": "n2", "address": "2 Elm St", "city": "Nashville", "state": "TN", "zip_code": "37203",
   "price": 320000, "beds": 4, "baths": 2, "sqft": 1900},
  {"id": "n3", "address": "3 Pine St", "city": "Nashville", "state": "TN", "zip_code": "37203",
   "price": 260000, "beds": 3, "baths": 2, "sqft": 1400, "flood_zone": true},
  {"id": "m1", "address": "9 Main St", "city": "Memphis", "state": "TN", "zip_code": "38103",
   "price": 140000, "beds": 3, "baths": 1, "sqft": 1100}
]`

func decodeJSON(t *testing.T, out string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
}

func TestBuyBoxLifecycle(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "nashville.yaml", nashvilleBox)

	out := mustRun(t, "buybox", "create", path)
	if !strings.Contains(out, "Buy box nashville-rentals saved.") || !strings.Contains(out, "$200,000 - $300,000") {
		t.Errorf("create output = %q", out)
	}

	if _, err := runCommand(t, "buybox", "create", path); err == nil {
		t.Error("expected error creating a duplicate buy box")
	}
	mustRun(t, "buybox", "create", path, "--force")

	var boxes []buybox.BuyBox
	decodeJSON(t, mustRun(t, "buybox", "list", "--format", "json"), &boxes)
	if len(boxes) != 1 || boxes[0].ID != "nashville-rentals" || !boxes[0].IsActive {
		t.Errorf("list = %+v", boxes)
	}

	out = mustRun(t, "buybox", "show", "nashville-rentals")
	for _, want := range []string{"Nashville rentals", "Buy-&-Hold", "Kill:       flood zone", "Tolerance:  10%"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	mustRun(t, "buybox", "remove", "nashville-rentals")
	if _, err := runCommand(t, "buybox", "show", "nashville-rentals"); err == nil {
		t.Error("expected error showing a removed buy box")
	}

	out = mustRun(t, "buybox", "list")
	if !strings.Contains(out, "No buy boxes found.") {
		t.Errorf("list after remove = %q", out)
	}
}

func TestBuyBoxListActive(t *testing.T) {
	home := isolate(t)
	mustRun(t, "buybox", "create", writeFile(t, home, "n.yaml", nashvilleBox))
	mustRun(t, "buybox", "create", writeFile(t, home, "m.yaml", memphisBox))

	var all, active []buybox.BuyBox
	decodeJSON(t, mustRun(t, "buybox", "list", "--format", "json"), &all)
	decodeJSON(t, mustRun(t, "buybox", "list", "--active", "--format", "json"), &active)

	if len(all) != 2 || all[0].Name != "Memphis flips" {
		t.Errorf("all = %+v, want two sorted by name", all)
	}
	if len(active) != 1 || active[0].ID != "nashville-rentals" {
		t.Errorf("active = %+v", active)
	}
}

func TestBuyBoxValidate(t *testing.T) {
	home := isolate(t)

	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"valid", nashvilleBox, ""},
		{"tolerance out of range", "name: x\ncriteria:\n  tolerance_band: 150\n", "tolerance_band"},
		{"inverted price", "name: x\ncriteria:\n  price_min: 5\n  price_max: 1\n", "price_min"},
		{"unknown key", "name: x\ncriteria:\n  bedrooms: 3\n", "bedrooms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, home, "doc.yaml", tt.doc)
			out, err := runCommand(t, "buybox", "validate", path)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !strings.Contains(out, "is valid") {
					t.Errorf("output = %q", out)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestCatalogCommands(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "listings.json", catalogListings)

	out := mustRun(t, "catalog", "import", path)
	if !strings.Contains(out, "Imported 4 listings") {
		t.Errorf("import output = %q", out)
	}

	var entries []catalog.Entry
	decodeJSON(t, mustRun(t, "catalog", "list", "--format", "json", "--location", "Memphis"), &entries)
	if len(entries) != 1 || entries[0].ID != "m1" || entries[0].Source != scoring.SourceImport {
		t.Errorf("memphis entries = %+v", entries)
	}

	out = mustRun(t, "catalog", "list")
	if !strings.Contains(out, "Total: 4 listings") || !strings.Contains(out, "$320,000") {
		t.Errorf("list output = %q", out)
	}

	out = mustRun(t, "catalog", "show", "n2")
	if !strings.Contains(out, "2 Elm St, Nashville, TN 37203") || !strings.Contains(out, "Sqft:     1,900") {
		t.Errorf("show output = %q", out)
	}

	mustRun(t, "catalog", "remove", "n2")
	if _, err := runCommand(t, "catalog", "show", "n2"); err == nil {
		t.Error("expected error showing a removed listing")
	}
}

func TestSearchCatalog(t *testing.T) {
	home := isolate(t)
	mustRun(t, "buybox", "create", writeFile(t, home, "n.yaml", nashvilleBox))
	mustRun(t, "catalog", "import", writeFile(t, home, "listings.json", catalogListings))

	var res scoring.SearchResult
	decodeJSON(t, mustRun(t, "search", "nashville-rentals", "--format", "json"), &res)

	if res.ID == "" || res.CreatedAt.IsZero() {
		t.Errorf("result not stamped: id=%q created=%v", res.ID, res.CreatedAt)
	}
	if res.TotalFound != 3 {
		t.Fatalf("total found = %d, want 3 Nashville listings", res.TotalFound)
	}
	var ids []string
	for _, l := range res.Listings {
		ids = append(ids, l.ID)
	}
	// n1 and n3 both score 100; the cheaper one ranks first.
	if got := strings.Join(ids, ","); got != "n1,n3,n2" {
		t.Errorf("ranking = %s, want n1,n3,n2", got)
	}
	flood := res.Listings[1]
	if flood.Badge != scoring.BadgeOverPriced || !flood.MatchDetails.KillSwitchTriggered {
		t.Errorf("n3 badge = %s, want flood-zone kill switch", flood.Badge)
	}
	if res.Listings[0].Financials == nil {
		t.Error("financial estimates not attached")
	}

	out := mustRun(t, "search", "nashville-rentals", "--explain", "--limit", "1", "--no-save")
	for _, want := range []string{"1. n1", "Total: 3 listings (showing 1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}

	var history []search.Summary
	decodeJSON(t, mustRun(t, "history", "list", "--format", "json"), &history)
	if len(history) != 1 || history[0].ID != res.ID || history[0].TotalFound != 3 {
		t.Errorf("history = %+v, want only the saved search", history)
	}

	var stored scoring.SearchResult
	decodeJSON(t, mustRun(t, "history", "show", res.ID, "--format", "json", "--limit", "2"), &stored)
	if stored.ID != res.ID || len(stored.Listings) != 2 || stored.TotalFound != 3 {
		t.Errorf("stored = %s with %d listings, total %d", stored.ID, len(stored.Listings), stored.TotalFound)
	}

	var stats search.Stats
	decodeJSON(t, mustRun(t, "history", "stats", "--buybox", "nashville-rentals", "--format", "json"), &stats)
	if stats.Searches != 1 || stats.ListingsFound != 3 || stats.Ranked != 3 {
		t.Errorf("stats = %+v, want 1 search with 3 ranked listings", stats)
	}
	out = mustRun(t, "history", "stats")
	for _, want := range []string{"Searches:       1", "Buy boxes:      1", "Top buy boxes", "nashville-rentals"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}

	mustRun(t, "history", "remove", res.ID)
	out = mustRun(t, "history", "list")
	if !strings.Contains(out, "No searches recorded.") {
		t.Errorf("history after remove = %q", out)
	}
}

func TestSearchMock(t *testing.T) {
	home := isolate(t)
	mustRun(t, "buybox", "create", writeFile(t, home, "n.yaml", nashvilleBox))

	run := func() scoring.SearchResult {
		var res scoring.SearchResult
		decodeJSON(t, mustRun(t, "search", "nashville-rentals", "--mock", "12", "--seed", "3", "--workers", "4", "--no-save", "--format", "json"), &res)
		return res
	}

	a, b := run(), run()
	if a.TotalFound != 12 || len(a.Excluded) != 0 {
		t.Errorf("total=%d excluded=%d, want 12 and 0", a.TotalFound, len(a.Excluded))
	}
	for i := range a.Listings {
		if a.Listings[i].ID != b.Listings[i].ID || a.Listings[i].Score != b.Listings[i].Score {
			t.Fatalf("rank %d differs between identical mock searches", i)
		}
		if i > 0 && a.Listings[i].Score > a.Listings[i-1].Score {
			t.Errorf("rank %d scores %d above rank %d", i, a.Listings[i].Score, i-1)
		}
	}
}

func TestSearchAll(t *testing.T) {
	home := isolate(t)
	mustRun(t, "buybox", "create", writeFile(t, home, "n.yaml", nashvilleBox))
	mustRun(t, "buybox", "create", writeFile(t, home, "m.yaml", memphisBox))

	var results []scoring.SearchResult
	decodeJSON(t, mustRun(t, "search", "--all", "--mock", "5", "--format", "json"), &results)
	if len(results) != 1 || results[0].BuyBoxID != "nashville-rentals" {
		t.Errorf("results = %d, want only the active buy box", len(results))
	}
}

func TestSearchUnknownBuyBox(t *testing.T) {
	isolate(t)

	_, err := runCommand(t, "search", "nope", "--mock", "3")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestScoreCommand(t *testing.T) {
	home := isolate(t)
	boxPath := writeFile(t, home, "n.yaml", nashvilleBox)
	listingsPath := writeFile(t, home, "listings.json", catalogListings)

	var res scoring.SearchResult
	decodeJSON(t, mustRun(t, "score", "--buybox", boxPath, "--listings", listingsPath, "--format", "json"), &res)
	if res.TotalFound != 3 || len(res.Excluded) != 1 || res.Excluded[0].ListingID != "m1" {
		t.Errorf("result = total %d, excluded %+v", res.TotalFound, res.Excluded)
	}

	var history []search.Summary
	decodeJSON(t, mustRun(t, "history", "list", "--format", "json"), &history)
	if len(history) != 0 {
		t.Errorf("score recorded %d searches, want none", len(history))
	}
}
