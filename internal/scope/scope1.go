package scope

import (
	"strings"

	"github.com/rshade/carbonfocus/internal/emission"
)

// Fuel types reported for direct combustion.
const (
	FuelDiesel     = "diesel"
	FuelGasoline   = "gasoline"
	FuelNaturalGas = "natural_gas"
	FuelLPG        = "lpg"
	FuelFuelOil    = "fuel_oil"
)

// legacyFuelNames maps factor-name fragments to fuel types for factors
// imported before fuel_type was tagged. Checked in order.
//
//nolint:gochecknoglobals // Read-only lookup table.
var legacyFuelNames = []struct {
	fragment string
	fuel     string
}{
	{"gazole", FuelDiesel},
	{"diesel", FuelDiesel},
	{"gaz naturel", FuelNaturalGas},
	{"natural gas", FuelNaturalGas},
	{"gpl", FuelLPG},
	{"lpg", FuelLPG},
	{"fioul", FuelFuelOil},
	{"fuel oil", FuelFuelOil},
	{"essence", FuelGasoline},
	{"gasoline", FuelGasoline},
	{"petrol", FuelGasoline},
}

// FuelType returns the factor's fuel tag, falling back to a name match for
// untagged legacy factors. Empty when neither applies.
func FuelType(f emission.Factor) string {
	if f.FuelType != "" {
		return f.FuelType
	}
	name := strings.ToLower(f.Name)
	for _, entry := range legacyFuelNames {
		if strings.Contains(name, entry.fragment) {
			return entry.fuel
		}
	}
	return ""
}

// Scope1 handles direct emissions from owned combustion and fugitive sources.
type Scope1 struct{}

// Scope implements Calculator.
func (Scope1) Scope() emission.Scope { return emission.Scope1 }

// Calculate implements Calculator. Notes name the fuel burnt when known.
func (Scope1) Calculate(quantity float64, f emission.Factor, ctx Context) emission.Breakdown {
	b, notes := linear(quantity, f)
	fuel := ctx[KeyFuelType]
	if fuel == "" {
		fuel = FuelType(f)
	}
	if fuel != "" {
		notes = append([]string{"fuel: " + fuel}, notes...)
	}
	b.Notes = joinNotes(notes)
	return b
}
