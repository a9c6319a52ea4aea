// Package scope converts a quantity and an emission factor into a GHG
// breakdown. Calculators are pure: no I/O, no shared state.
package scope

import (
	"fmt"
	"strings"

	"github.com/rshade/carbonfocus/internal/emission"
)

// Context keys understood by the calculators. Values are advisory and only
// shape the notes attached to a breakdown.
const (
	KeyMethodology    = "methodology"
	KeyScope3Category = "scope_3_category"
	KeyFuelType       = "fuel_type"
)

// Scope 2 accounting methodologies.
const (
	MethodologyLocationBased = "location_based"
	MethodologyMarketBased   = "market_based"
)

// Context carries advisory metadata into a calculation.
type Context map[string]string

// Calculator computes emissions for one scope.
type Calculator interface {
	Scope() emission.Scope
	Calculate(quantity float64, factor emission.Factor, ctx Context) emission.Breakdown
}

// Registry maps scopes to calculators.
type Registry map[emission.Scope]Calculator

// DefaultRegistry returns calculators for scopes 1, 2 and 3.
func DefaultRegistry() Registry {
	return Registry{
		emission.Scope1: Scope1{},
		emission.Scope2: Scope2{},
		emission.Scope3: Scope3{},
	}
}

// Lookup returns the calculator for s.
func (r Registry) Lookup(s emission.Scope) (Calculator, bool) {
	c, ok := r[s]
	return c, ok
}

// linear applies the factor to quantity. Recognized physical and currency
// units are already expressed per unit of quantity; unknown units are assumed
// compatible and noted.
func linear(quantity float64, f emission.Factor) (emission.Breakdown, []string) {
	b := emission.Breakdown{
		CO2eKg: quantity * f.FactorKgCO2e,
		CO2Kg:  scale(quantity, f.FactorKgCO2),
		CH4Kg:  scale(quantity, f.FactorKgCH4),
		N2OKg:  scale(quantity, f.FactorKgN2O),
	}
	var notes []string
	if !emission.IsPhysicalUnit(f.Unit) && !emission.IsCurrency(f.Unit) {
		notes = append(notes, fmt.Sprintf("unit %q not recognized, factor applied directly", f.Unit))
	}
	return b, notes
}

func scale(quantity float64, sub *float64) *float64 {
	if sub == nil {
		return nil
	}
	return emission.Float(quantity * *sub)
}

func joinNotes(notes []string) string {
	return strings.Join(notes, "; ")
}
