package catalog

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evcraddock/buybox/internal/db"
	"github.com/evcraddock/buybox/internal/scoring"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "bb.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return NewRepository(d)
}

func sampleListing(id, city, zip string, price float64) scoring.Listing {
	return scoring.Listing{
		ID:           id,
		Address:      "1 " + id + " St",
		City:         city,
		State:        "TN",
		ZipCode:      zip,
		Price:        scoring.Float(price),
		Beds:         scoring.Float(3),
		Baths:        scoring.Float(2),
		Sqft:         scoring.Float(1400),
		YearBuilt:    scoring.Float(1987),
		PropertyType: "single_family",
		Description:  "Fresh paint",
		Photos:       []string{"https://example.com/" + id + ".jpg"},
	}
}

func TestUpsertAndGet(t *testing.T) {
	repo := newTestRepo(t)

	in := sampleListing("n1", "Nashville", "37203", 250000)
	in.HOA = scoring.Float(40)
	in.RentEstimate = scoring.Float(1900)

	e, err := repo.Upsert(in)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if e.Source != scoring.SourceCatalog {
		t.Errorf("source = %q, want catalog", e.Source)
	}
	if e.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
	if *e.Price != 250000 || *e.HOA != 40 || *e.RentEstimate != 1900 || *e.YearBuilt != 1987 {
		t.Errorf("numbers = %v %v %v %v", *e.Price, *e.HOA, *e.RentEstimate, *e.YearBuilt)
	}
	if e.Description != "Fresh paint" || len(e.Photos) != 1 {
		t.Errorf("raw fields lost: %+v", e.Listing)
	}
	if e.LotSize != nil {
		t.Errorf("lot_size = %v, want nil", *e.LotSize)
	}

	in.Price = scoring.Float(240000)
	e, err = repo.Upsert(in)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if *e.Price != 240000 {
		t.Errorf("price after update = %v, want 240000", *e.Price)
	}

	n, err := repo.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestUpsertRequiresID(t *testing.T) {
	repo := newTestRepo(t)

	if _, err := repo.Upsert(sampleListing("", "Nashville", "37203", 1)); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestGetNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get("nope")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestImportIsAtomic(t *testing.T) {
	repo := newTestRepo(t)

	good := []scoring.Listing{
		sampleListing("a", "Nashville", "37203", 1),
		sampleListing("b", "Memphis", "38103", 2),
	}
	n, err := repo.Import(good)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d, want 2", n)
	}

	bad := []scoring.Listing{
		sampleListing("c", "Nashville", "37203", 3),
		sampleListing("", "Nashville", "37203", 4),
	}
	if _, err := repo.Import(bad); err == nil {
		t.Fatal("expected import error")
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 (failed import must roll back)", count)
	}
}

func TestListByLocation(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Import([]scoring.Listing{
		sampleListing("c", "Nashville", "37203", 1),
		sampleListing("a", "Memphis", "38103", 2),
		sampleListing("b", "Franklin", "37064-2210", 3),
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	tests := []struct {
		name    string
		opts    ListOptions
		wantIDs string
	}{
		{"all ordered by id", ListOptions{}, "a,b,c"},
		{"city", ListOptions{Locations: []string{"nashville"}}, "c"},
		{"zip prefix", ListOptions{Locations: []string{"37064"}}, "b"},
		{"city and state", ListOptions{Locations: []string{"Memphis, TN"}}, "a"},
		{"several", ListOptions{Locations: []string{"Memphis", "37203"}}, "a,c"},
		{"no match", ListOptions{Locations: []string{"Knoxville"}}, ""},
		{"limit", ListOptions{Limit: 2}, "a,b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := repo.List(tt.opts)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			var ids []string
			for _, e := range entries {
				ids = append(ids, e.ID)
			}
			if got := strings.Join(ids, ","); got != tt.wantIDs {
				t.Errorf("ids = %q, want %q", got, tt.wantIDs)
			}
		})
	}
}

func TestRemove(t *testing.T) {
	repo := newTestRepo(t)

	if _, err := repo.Upsert(sampleListing("x", "Nashville", "37203", 1)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.Remove("x"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := repo.Remove("x"); err == nil {
		t.Error("expected error removing a missing listing")
	}
}

func TestCandidates(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Import([]scoring.Listing{
		sampleListing("n1", "Nashville", "37203", 250000),
		sampleListing("m1", "Memphis", "38103", 150000),
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	box := scoring.BuyBox{ID: "bb", Criteria: scoring.Criteria{Locations: []string{"Nashville"}}}
	got, err := repo.Candidates(context.Background(), box)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	if len(got) != 1 || got[0].ID != "n1" {
		t.Errorf("candidates = %+v, want n1", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := repo.Candidates(ctx, box); err == nil {
		t.Error("expected error for canceled context")
	}
}
