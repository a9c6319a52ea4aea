package targets

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Default SBTi ambition names.
const (
	Ambition15C        = "1.5c"
	AmbitionWellBelow2 = "well_below_2c"
	Ambition2C         = "2c"

	// AmbitionNone is reported when no tier is satisfied.
	AmbitionNone = "none"
)

// Ambition is one tier of the reduction-rate table. Rates are percent per year.
type Ambition struct {
	Name        string  `json:"name"`
	Label       string  `json:"label,omitempty"`
	Scope12Rate float64 `json:"scope_1_2_rate"`
	Scope3Rate  float64 `json:"scope_3_rate"`
}

// RateTable is an ordered set of ambitions, most ambitious first.
type RateTable struct {
	ambitions []Ambition
}

// NewRateTable validates and copies ambitions. Tiers are ordered by scope 1+2
// rate, highest first, which is the precedence ValidateTarget uses.
func NewRateTable(ambitions []Ambition) (RateTable, error) {
	if len(ambitions) == 0 {
		return RateTable{}, ErrEmptyRateTable
	}
	seen := make(map[string]bool, len(ambitions))
	out := make([]Ambition, 0, len(ambitions))
	for _, a := range ambitions {
		a.Name = strings.ToLower(strings.TrimSpace(a.Name))
		if seen[a.Name] {
			return RateTable{}, fmt.Errorf("%w: %q", ErrDuplicateAmbition, a.Name)
		}
		seen[a.Name] = true
		if !validRate(a.Scope12Rate) || !validRate(a.Scope3Rate) {
			return RateTable{}, fmt.Errorf("%w: ambition %q", ErrInvalidRate, a.Name)
		}
		out = append(out, a)
	}
	slices.SortStableFunc(out, func(a, b Ambition) int { return cmp.Compare(b.Scope12Rate, a.Scope12Rate) })
	return RateTable{ambitions: out}, nil
}

// DefaultRateTable returns the SBTi cross-sector rates.
func DefaultRateTable() RateTable {
	return RateTable{ambitions: []Ambition{
		{Name: Ambition15C, Label: "1.5°C", Scope12Rate: 4.2, Scope3Rate: 2.5},
		{Name: AmbitionWellBelow2, Label: "Well-below 2°C", Scope12Rate: 2.5, Scope3Rate: 1.23},
		{Name: Ambition2C, Label: "2°C", Scope12Rate: 1.23, Scope3Rate: 1.23},
	}}
}

// Lookup returns the ambition called name (case-insensitive).
func (t RateTable) Lookup(name string) (Ambition, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, a := range t.ambitions {
		if a.Name == key {
			return a, nil
		}
	}
	return Ambition{}, fmt.Errorf("%w: %q", ErrUnknownAmbition, name)
}

// Ambitions returns a copy of the tiers, most ambitious first.
func (t RateTable) Ambitions() []Ambition {
	return append([]Ambition(nil), t.ambitions...)
}

// Remaining returns the fraction of base emissions left after compounding
// rate percent per year over years: (1 - rate/100)^years.
func Remaining(ratePercent float64, years int) float64 {
	return math.Pow(1-ratePercent/percent, float64(years))
}

// TotalReductionPercent is the cumulative reduction over years, in percent.
func TotalReductionPercent(ratePercent float64, years int) float64 {
	return (1 - Remaining(ratePercent, years)) * percent
}

func validRate(r float64) bool {
	return r > 0 && r < percent && !math.IsNaN(r)
}
