package scope

import (
	"github.com/rshade/carbonfocus/internal/emission"
)

// Scope3 handles value-chain emissions. Spend-based factors multiply like
// physical ones but the result is flagged as an estimate.
type Scope3 struct{}

// Scope implements Calculator.
func (Scope3) Scope() emission.Scope { return emission.Scope3 }

// Calculate implements Calculator.
func (Scope3) Calculate(quantity float64, f emission.Factor, ctx Context) emission.Breakdown {
	b, notes := linear(quantity, f)
	var lead []string
	if cat := ctx[KeyScope3Category]; cat != "" && cat != "0" {
		lead = append(lead, "scope 3 category "+cat)
	}
	if emission.IsCurrency(f.Unit) {
		b.IsEstimated = true
		lead = append(lead, "spend-based estimate")
	}
	b.Notes = joinNotes(append(lead, notes...))
	return b
}
