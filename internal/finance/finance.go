// Package finance estimates rental investment returns for a listing.
package finance

import (
	"fmt"
	"math"

	"github.com/evcraddock/buybox/internal/scoring"
)

// Assumptions are the financing and operating inputs for an estimate.
// Percentages are whole numbers (20 means 20%).
type Assumptions struct {
	DownPaymentPct float64 `yaml:"down_payment_pct" json:"down_payment_pct"`
	InterestRate   float64 `yaml:"interest_rate" json:"interest_rate"`
	LoanTermYears  int     `yaml:"loan_term_years" json:"loan_term_years"`
	VacancyPct     float64 `yaml:"vacancy_pct" json:"vacancy_pct"`

	// Maintenance and management are shares of gross rent.
	MaintenancePct float64 `yaml:"maintenance_pct" json:"maintenance_pct"`
	ManagementPct  float64 `yaml:"management_pct" json:"management_pct"`

	// Tax and insurance are yearly shares of price.
	PropertyTaxPct float64 `yaml:"property_tax_pct" json:"property_tax_pct"`
	InsurancePct   float64 `yaml:"insurance_pct" json:"insurance_pct"`

	ClosingCostPct float64 `yaml:"closing_cost_pct" json:"closing_cost_pct"`
	// RentToPricePct estimates monthly rent as a share of price when a
	// listing has no rent estimate.
	RentToPricePct float64 `yaml:"rent_to_price_pct" json:"rent_to_price_pct"`
}

// DefaultAssumptions returns conservative single-family rental defaults.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		DownPaymentPct: 20,
		InterestRate:   7,
		LoanTermYears:  30,
		VacancyPct:     5,
		MaintenancePct: 5,
		ManagementPct:  8,
		PropertyTaxPct: 1.1,
		InsurancePct:   0.5,
		ClosingCostPct: 3,
		RentToPricePct: 0.8,
	}
}

// Validate checks that every assumption is in a usable range.
func (a Assumptions) Validate() error {
	pcts := []struct {
		name  string
		value float64
	}{
		{"down_payment_pct", a.DownPaymentPct},
		{"interest_rate", a.InterestRate},
		{"vacancy_pct", a.VacancyPct},
		{"maintenance_pct", a.MaintenancePct},
		{"management_pct", a.ManagementPct},
		{"property_tax_pct", a.PropertyTaxPct},
		{"insurance_pct", a.InsurancePct},
		{"closing_cost_pct", a.ClosingCostPct},
		{"rent_to_price_pct", a.RentToPricePct},
	}
	for _, p := range pcts {
		if math.IsNaN(p.value) || p.value < 0 || p.value > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %g", p.name, p.value)
		}
	}
	if a.LoanTermYears < 1 {
		return fmt.Errorf("loan_term_years must be at least 1, got %d", a.LoanTermYears)
	}
	return nil
}

// Estimate computes cap rate, cash-on-cash return and monthly cash flow.
// A zero price yields an empty estimate.
func Estimate(price, monthlyRent, monthlyHOA float64, a Assumptions) scoring.Financials {
	if price <= 0 {
		return scoring.Financials{}
	}

	grossRent := monthlyRent * 12
	expenses := price*a.PropertyTaxPct/100 +
		price*a.InsurancePct/100 +
		grossRent*(a.MaintenancePct+a.ManagementPct)/100 +
		monthlyHOA*12
	noi := grossRent*(1-a.VacancyPct/100) - expenses

	loan := price * (1 - a.DownPaymentPct/100)
	payment := MonthlyPayment(loan, a.InterestRate, a.LoanTermYears)
	cashFlow := noi/12 - payment

	capRate := noi / price * 100
	out := scoring.Financials{
		CapRate:         roundTo(capRate, 2),
		MonthlyCashFlow: roundTo(cashFlow, 0),
	}

	invested := price * (a.DownPaymentPct + a.ClosingCostPct) / 100
	if invested > 0 {
		out.CoCReturn = roundTo(cashFlow*12/invested*100, 2)
	}
	return out
}

// MonthlyPayment returns the principal and interest payment on a fully
// amortized loan.
func MonthlyPayment(principal, annualRatePct float64, years int) float64 {
	if principal <= 0 || years <= 0 {
		return 0
	}
	n := float64(years * 12)
	r := annualRatePct / 100 / 12
	if r == 0 {
		return principal / n
	}
	f := math.Pow(1+r, n)
	return principal * r * f / (f - 1)
}

// Attach fills in l.Financials from the listing's price, rent and HOA.
// Listings that already carry financials or have no price are left alone.
func Attach(l *scoring.Listing, a Assumptions) {
	if l.Financials != nil || l.Price == nil || *l.Price <= 0 {
		return
	}

	rent := *l.Price * a.RentToPricePct / 100
	if l.RentEstimate != nil && *l.RentEstimate > 0 {
		rent = *l.RentEstimate
	}
	var hoa float64
	if l.HOA != nil {
		hoa = *l.HOA
	}

	f := Estimate(*l.Price, rent, hoa, a)
	l.Financials = &f
}

func roundTo(v float64, digits int) *float64 {
	p := math.Pow(10, float64(digits))
	r := math.Round(v*p) / p
	return &r
}
