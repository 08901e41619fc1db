package buybox

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evcraddock/buybox/internal/scoring"
)

const nashvilleYAML = `
id: nashville-rentals
name: Nashville rentals
criteria:
  strategy: Buy-&-Hold
  locations: [Nashville, "37203"]
  price_min: 200000
  price_max: 300000
  beds_min: 3
  cap_rate_min: 7.5
  kill_switches:
    flood_zone: true
  tolerance_band: 10
`

func TestDecodeYAML(t *testing.T) {
	b, err := Decode([]byte(nashvilleYAML))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if b.ID != "nashville-rentals" || b.Name != "Nashville rentals" {
		t.Errorf("identity = %q %q", b.ID, b.Name)
	}
	if !b.IsActive {
		t.Error("is_active should default to true")
	}
	c := b.Criteria
	if c.Strategy != scoring.StrategyBuyAndHold {
		t.Errorf("strategy = %q", c.Strategy)
	}
	if len(c.Locations) != 2 || c.Locations[1] != "37203" {
		t.Errorf("locations = %v", c.Locations)
	}
	if c.PriceMax == nil || *c.PriceMax != 300000 {
		t.Errorf("price_max = %v", c.PriceMax)
	}
	if c.CapRateMin == nil || *c.CapRateMin != 7.5 {
		t.Errorf("cap_rate_min = %v", c.CapRateMin)
	}
	if !c.KillSwitches.FloodZone || c.KillSwitches.HOA {
		t.Errorf("kill_switches = %+v", c.KillSwitches)
	}
	if c.ToleranceBand != 10 {
		t.Errorf("tolerance_band = %d", c.ToleranceBand)
	}
}

func TestDecodeJSON(t *testing.T) {
	doc := `{"name": "Flip box", "is_active": false, "criteria": {"strategy": "Flip", "price_max": 150000}}`

	b, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.IsActive {
		t.Error("is_active = true, want false")
	}
	if b.Criteria.Strategy != scoring.StrategyFlip {
		t.Errorf("strategy = %q", b.Criteria.Strategy)
	}
}

func TestDecodeFieldErrors(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantField string
	}{
		{"missing name", "criteria: {}", "name"},
		{"missing criteria", "name: x", "criteria"},
		{"unknown top-level key", "name: x\ncriteria: {}\ncolour: red", "colour"},
		{"unknown criteria key", "name: x\ncriteria:\n  price_maximum: 5", "price_maximum"},
		{"unknown kill switch", "name: x\ncriteria:\n  kill_switches:\n    pool: true", "kill_switches.pool"},
		{"bad strategy", "name: x\ncriteria:\n  strategy: Wholesale", "strategy"},
		{"string bound", "name: x\ncriteria:\n  price_max: lots", "price_max"},
		{"negative bound", "name: x\ncriteria:\n  beds_min: -1", "beds_min"},
		{"fractional tolerance", "name: x\ncriteria:\n  tolerance_band: 10.5", "tolerance_band"},
		{"tolerance over 100", "name: x\ncriteria:\n  tolerance_band: 150", "tolerance_band"},
		{"bad id", "id: ../etc\nname: x\ncriteria: {}", "id"},
		{"inverted range", "name: x\ncriteria:\n  price_min: 300000\n  price_max: 200000", "price_min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, scoring.ErrInvalidCriteria) {
				t.Errorf("error %v does not wrap ErrInvalidCriteria", err)
			}
			var fe *scoring.FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *scoring.FieldError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("error %q does not name %q", err, tt.wantField)
			}
		})
	}
}

func TestDecodeSyntaxErrors(t *testing.T) {
	for _, doc := range []string{"", "   ", "- a\n- b", "{\"name\": "} {
		if _, err := Decode([]byte(doc)); err == nil {
			t.Errorf("Decode(%q) expected error", doc)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	in, err := Decode([]byte(nashvilleYAML))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	data, err := Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("decode encoded: %v\n%s", err, data)
	}

	if out.ID != in.ID || *out.Criteria.PriceMin != *in.Criteria.PriceMin || out.Criteria.ToleranceBand != 10 {
		t.Errorf("round trip = %+v", out)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "box.yaml")
	if err := os.WriteFile(path, []byte(nashvilleYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	b, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if b.ID != "nashville-rentals" {
		t.Errorf("id = %q", b.ID)
	}

	box := b.Scoring()
	*box.Criteria.PriceMax = 1
	if *b.Criteria.PriceMax != 300000 {
		t.Error("Scoring() shares criteria with the document")
	}
}
