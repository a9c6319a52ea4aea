package scope

import (
	"strings"

	"github.com/rshade/carbonfocus/internal/emission"
)

// Scope2 handles purchased electricity, heat and steam.
type Scope2 struct{}

// Scope implements Calculator.
func (Scope2) Scope() emission.Scope { return emission.Scope2 }

// Calculate implements Calculator. The methodology comes from the context, or
// from the factor source when the factor is supplier specific.
func (Scope2) Calculate(quantity float64, f emission.Factor, ctx Context) emission.Breakdown {
	b, notes := linear(quantity, f)
	notes = append([]string{"methodology: " + Methodology(f, ctx)}, notes...)
	b.Notes = joinNotes(notes)
	return b
}

// Methodology reports whether a scope 2 figure is location or market based.
func Methodology(f emission.Factor, ctx Context) string {
	if m := ctx[KeyMethodology]; m == MethodologyLocationBased || m == MethodologyMarketBased {
		return m
	}
	source := strings.ToLower(f.Source)
	if source == "supplier_specific" || strings.Contains(source, "market") || strings.Contains(source, "residual_mix") {
		return MethodologyMarketBased
	}
	return MethodologyLocationBased
}
