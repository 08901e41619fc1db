package scoring

import (
	"math"
	"reflect"
	"testing"
)

func TestEvaluateKillSwitches(t *testing.T) {
	all := KillSwitches{FloodZone: true, HOA: true, Manufactured: true, FixerUpper: true}

	tests := []struct {
		name      string
		switches  KillSwitches
		flags     Flags
		wantFired bool
		want      []string
	}{
		{"nothing enabled", KillSwitches{}, Flags{FloodZone: true, HasHOA: true}, false, nil},
		{"enabled but absent", all, Flags{}, false, nil},
		{"flood zone", KillSwitches{FloodZone: true}, Flags{FloodZone: true}, true, []string{"In flood zone"}},
		{"hoa", KillSwitches{HOA: true}, Flags{HasHOA: true}, true, []string{"Has HOA"}},
		{"manufactured", KillSwitches{Manufactured: true}, Flags{Manufactured: true}, true, []string{"Manufactured home"}},
		{"fixer upper", KillSwitches{FixerUpper: true}, Flags{FixerUpper: true}, true, []string{"Needs significant repairs"}},
		{
			"all reported",
			all,
			Flags{FloodZone: true, HasHOA: true, Manufactured: true, FixerUpper: true},
			true,
			[]string{"In flood zone", "Has HOA", "Manufactured home", "Needs significant repairs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateKillSwitches(tt.switches, tt.flags)
			if got.Triggered != tt.wantFired {
				t.Errorf("triggered = %v, want %v", got.Triggered, tt.wantFired)
			}
			if !reflect.DeepEqual(got.Reasons, tt.want) {
				t.Errorf("reasons = %v, want %v", got.Reasons, tt.want)
			}
		})
	}
}

func TestDeriveFlags(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name    string
		listing Listing
		want    Flags
	}{
		{"plain listing", Listing{PropertyType: "single_family", Description: "Gutters replaced in 2020"}, Flags{}},
		{"explicit flood zone", Listing{FloodZone: &yes}, Flags{FloodZone: true}},
		{"hoa dues", Listing{HOA: Float(150)}, Flags{HasHOA: true}},
		{"zero hoa", Listing{HOA: Float(0)}, Flags{}},
		{"manufactured type", Listing{PropertyType: "Manufactured Home"}, Flags{Manufactured: true}},
		{"mobile type", Listing{PropertyType: "mobile"}, Flags{Manufactured: true}},
		{"explicit not manufactured", Listing{PropertyType: "mobile", Manufactured: &no}, Flags{}},
		{"fixer from description", Listing{Description: "Handyman special, bring your tools"}, Flags{FixerUpper: true}},
		{"fixer from condition", Listing{Condition: "Needs Work"}, Flags{FixerUpper: true}},
		{"explicit not fixer", Listing{Description: "Investor special", FixerUpper: &no}, Flags{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.listing.DeriveFlags(); got != tt.want {
				t.Errorf("DeriveFlags() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestListingCheck(t *testing.T) {
	valid := Listing{ID: "a", Price: Float(1), Beds: Float(0), Baths: Float(1), Sqft: Float(900)}

	tests := []struct {
		name      string
		mutate    func(l *Listing)
		wantField string
	}{
		{"valid", func(l *Listing) {}, ""},
		{"missing price", func(l *Listing) { l.Price = nil }, "price"},
		{"missing beds", func(l *Listing) { l.Beds = nil }, "beds"},
		{"missing baths", func(l *Listing) { l.Baths = nil }, "baths"},
		{"missing sqft", func(l *Listing) { l.Sqft = nil }, "sqft"},
		{"negative price", func(l *Listing) { l.Price = Float(-5) }, "price"},
		{"NaN sqft", func(l *Listing) { l.Sqft = Float(math.NaN()) }, "sqft"},
		{"negative HOA", func(l *Listing) { l.HOA = Float(-500) }, "hoa"},
		{"negative lot size", func(l *Listing) { l.LotSize = Float(-0.5) }, "lot_size"},
		{"negative year", func(l *Listing) { l.YearBuilt = Float(-1990) }, "year_built"},
		{"infinite rent", func(l *Listing) { l.RentEstimate = Float(math.Inf(1)) }, "rent_estimate"},
		{"zero HOA", func(l *Listing) { l.HOA = Float(0) }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := valid
			tt.mutate(&l)
			err := l.Check()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			le, ok := err.(*ListingError)
			if !ok {
				t.Fatalf("expected *ListingError, got %T (%v)", err, err)
			}
			if le.Field != tt.wantField {
				t.Errorf("field = %q, want %q", le.Field, tt.wantField)
			}
		})
	}
}
