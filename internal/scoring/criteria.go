// Package scoring ranks property listings against a buy box's investment criteria.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Strategy is the investment strategy a buy box targets.
type Strategy string

const (
	StrategyBuyAndHold Strategy = "Buy-&-Hold"
	StrategyFlip       Strategy = "Flip"
	StrategyBRRRR      Strategy = "BRRRR"
	StrategySTR        Strategy = "STR"
	StrategyLand       Strategy = "Land"
	StrategyOther      Strategy = "Other"
)

// Strategies is the closed set of allowed strategies.
var Strategies = []Strategy{
	StrategyBuyAndHold, StrategyFlip, StrategyBRRRR, StrategySTR, StrategyLand, StrategyOther,
}

// IsValid reports whether s is a known strategy.
func (s Strategy) IsValid() bool {
	for _, v := range Strategies {
		if s == v {
			return true
		}
	}
	return false
}

// KillSwitches disqualify a listing outright when the matching attribute is present.
type KillSwitches struct {
	FloodZone    bool `json:"flood_zone" yaml:"flood_zone"`
	HOA          bool `json:"hoa" yaml:"hoa"`
	Manufactured bool `json:"manufactured" yaml:"manufactured"`
	FixerUpper   bool `json:"fixer_upper" yaml:"fixer_upper"`
}

// Criteria is a buy box's investment filter. Nil bounds are unbounded.
type Criteria struct {
	Strategy  Strategy `json:"strategy" yaml:"strategy"`
	Locations []string `json:"locations" yaml:"locations"`

	PriceMin     *float64 `json:"price_min,omitempty" yaml:"price_min,omitempty"`
	PriceMax     *float64 `json:"price_max,omitempty" yaml:"price_max,omitempty"`
	BedsMin      *float64 `json:"beds_min,omitempty" yaml:"beds_min,omitempty"`
	BedsMax      *float64 `json:"beds_max,omitempty" yaml:"beds_max,omitempty"`
	BathsMin     *float64 `json:"baths_min,omitempty" yaml:"baths_min,omitempty"`
	BathsMax     *float64 `json:"baths_max,omitempty" yaml:"baths_max,omitempty"`
	SqftMin      *float64 `json:"sqft_min,omitempty" yaml:"sqft_min,omitempty"`
	SqftMax      *float64 `json:"sqft_max,omitempty" yaml:"sqft_max,omitempty"`
	YearBuiltMin *float64 `json:"year_built_min,omitempty" yaml:"year_built_min,omitempty"`
	YearBuiltMax *float64 `json:"year_built_max,omitempty" yaml:"year_built_max,omitempty"`
	LotSizeMin   *float64 `json:"lot_size_min,omitempty" yaml:"lot_size_min,omitempty"`
	LotSizeMax   *float64 `json:"lot_size_max,omitempty" yaml:"lot_size_max,omitempty"`
	HOAMax       *float64 `json:"hoa_max,omitempty" yaml:"hoa_max,omitempty"`

	CapRateMin   *float64 `json:"cap_rate_min,omitempty" yaml:"cap_rate_min,omitempty"`
	CoCReturnMin *float64 `json:"coc_return_min,omitempty" yaml:"coc_return_min,omitempty"`
	CashFlowMin  *float64 `json:"cash_flow_min,omitempty" yaml:"cash_flow_min,omitempty"`

	KillSwitches  KillSwitches `json:"kill_switches" yaml:"kill_switches"`
	ToleranceBand int          `json:"tolerance_band" yaml:"tolerance_band"`
}

// ErrInvalidCriteria is wrapped by every criteria validation failure.
var ErrInvalidCriteria = errors.New("invalid criteria")

// FieldError identifies the criteria field that failed validation.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets callers match any FieldError with errors.Is(err, ErrInvalidCriteria).
func (e *FieldError) Unwrap() error {
	return ErrInvalidCriteria
}

// bound pairs a criteria field name with its value for validation.
type bound struct {
	name  string
	value *float64
}

// bounds lists every numeric bound in declaration order.
func (c Criteria) bounds() []bound {
	return []bound{
		{"price_min", c.PriceMin}, {"price_max", c.PriceMax},
		{"beds_min", c.BedsMin}, {"beds_max", c.BedsMax},
		{"baths_min", c.BathsMin}, {"baths_max", c.BathsMax},
		{"sqft_min", c.SqftMin}, {"sqft_max", c.SqftMax},
		{"year_built_min", c.YearBuiltMin}, {"year_built_max", c.YearBuiltMax},
		{"lot_size_min", c.LotSizeMin}, {"lot_size_max", c.LotSizeMax},
		{"hoa_max", c.HOAMax},
		{"cap_rate_min", c.CapRateMin}, {"coc_return_min", c.CoCReturnMin}, {"cash_flow_min", c.CashFlowMin},
	}
}

// ranges lists the min/max pairs that must not be inverted.
func (c Criteria) ranges() [][2]bound {
	return [][2]bound{
		{{"price_min", c.PriceMin}, {"price_max", c.PriceMax}},
		{{"beds_min", c.BedsMin}, {"beds_max", c.BedsMax}},
		{{"baths_min", c.BathsMin}, {"baths_max", c.BathsMax}},
		{{"sqft_min", c.SqftMin}, {"sqft_max", c.SqftMax}},
		{{"year_built_min", c.YearBuiltMin}, {"year_built_max", c.YearBuiltMax}},
		{{"lot_size_min", c.LotSizeMin}, {"lot_size_max", c.LotSizeMax}},
	}
}

// Validate checks the criteria domain. The first offending field is reported.
func (c Criteria) Validate() error {
	if c.Strategy != "" && !c.Strategy.IsValid() {
		return &FieldError{Field: "strategy", Reason: fmt.Sprintf("unknown strategy %q", c.Strategy)}
	}
	if c.ToleranceBand < 0 || c.ToleranceBand > 100 {
		return &FieldError{Field: "tolerance_band", Reason: fmt.Sprintf("must be 0-100, got %d", c.ToleranceBand)}
	}
	for _, b := range c.bounds() {
		if b.value == nil {
			continue
		}
		v := *b.value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &FieldError{Field: b.name, Reason: "must be a finite number"}
		}
		if v < 0 {
			return &FieldError{Field: b.name, Reason: fmt.Sprintf("must not be negative, got %g", v)}
		}
	}
	for _, r := range c.ranges() {
		lo, hi := r[0], r[1]
		if lo.value != nil && hi.value != nil && *lo.value > *hi.value {
			return &FieldError{
				Field:  lo.name,
				Reason: fmt.Sprintf("%g is greater than %s %g", *lo.value, hi.name, *hi.value),
			}
		}
	}
	return nil
}

// Normalize returns a deep copy with the strategy defaulted and locations
// trimmed and de-duplicated case-insensitively. Order is preserved.
func (c Criteria) Normalize() Criteria {
	out := c.Clone()
	if out.Strategy == "" {
		out.Strategy = StrategyOther
	}

	seen := make(map[string]bool, len(out.Locations))
	locs := make([]string, 0, len(out.Locations))
	for _, l := range out.Locations {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		key := strings.ToLower(l)
		if seen[key] {
			continue
		}
		seen[key] = true
		locs = append(locs, l)
	}
	out.Locations = locs
	return out
}

// Clone returns a deep copy that shares no pointers or slices with c.
func (c Criteria) Clone() Criteria {
	out := c
	if c.Locations != nil {
		out.Locations = append([]string(nil), c.Locations...)
	}
	out.PriceMin = cloneFloat(c.PriceMin)
	out.PriceMax = cloneFloat(c.PriceMax)
	out.BedsMin = cloneFloat(c.BedsMin)
	out.BedsMax = cloneFloat(c.BedsMax)
	out.BathsMin = cloneFloat(c.BathsMin)
	out.BathsMax = cloneFloat(c.BathsMax)
	out.SqftMin = cloneFloat(c.SqftMin)
	out.SqftMax = cloneFloat(c.SqftMax)
	out.YearBuiltMin = cloneFloat(c.YearBuiltMin)
	out.YearBuiltMax = cloneFloat(c.YearBuiltMax)
	out.LotSizeMin = cloneFloat(c.LotSizeMin)
	out.LotSizeMax = cloneFloat(c.LotSizeMax)
	out.HOAMax = cloneFloat(c.HOAMax)
	out.CapRateMin = cloneFloat(c.CapRateMin)
	out.CoCReturnMin = cloneFloat(c.CoCReturnMin)
	out.CashFlowMin = cloneFloat(c.CashFlowMin)
	return out
}

// hasPriceBounds reports whether the price axis is active.
func (c Criteria) hasPriceBounds() bool {
	return c.PriceMin != nil || c.PriceMax != nil
}

// hasPropertyBounds reports whether the property axis is active.
func (c Criteria) hasPropertyBounds() bool {
	for _, v := range []*float64{
		c.BedsMin, c.BedsMax, c.BathsMin, c.BathsMax, c.SqftMin, c.SqftMax,
		c.YearBuiltMin, c.YearBuiltMax, c.LotSizeMin, c.LotSizeMax, c.HOAMax,
	} {
		if v != nil {
			return true
		}
	}
	return false
}

// hasFinancialBounds reports whether the financial axis is active.
func (c Criteria) hasFinancialBounds() bool {
	return c.CapRateMin != nil || c.CoCReturnMin != nil || c.CashFlowMin != nil
}

// HasActiveCriteria reports whether any location or numeric bound is set.
// Kill switches alone do not count.
func (c Criteria) HasActiveCriteria() bool {
	return len(c.Locations) > 0 || c.hasPriceBounds() || c.hasPropertyBounds() || c.hasFinancialBounds()
}

// Float returns a pointer to v. Handy for building criteria literals.
func Float(v float64) *float64 {
	return &v
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
