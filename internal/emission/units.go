package emission

import (
	"strings"

	"golang.org/x/text/currency"
)

// Canonical physical units. Factors for these units are expressed per unit of
// quantity, so no conversion table is involved.
const (
	UnitKWh   = "kWh"
	UnitMWh   = "MWh"
	UnitM3    = "m3"
	UnitKm    = "km"
	UnitLiter = "L"
	UnitKg    = "kg"
	UnitTonne = "t"
)

// unitAliases maps lower-cased spellings to their canonical unit.
//
//nolint:gochecknoglobals // Read-only lookup table.
var unitAliases = map[string]string{
	"kwh":    UnitKWh,
	"mwh":    UnitMWh,
	"m3":     UnitM3,
	"m³":     UnitM3,
	"km":     UnitKm,
	"l":      UnitLiter,
	"liter":  UnitLiter,
	"liters": UnitLiter,
	"litre":  UnitLiter,
	"litres": UnitLiter,
	"kg":     UnitKg,
	"t":      UnitTonne,
	"tonne":  UnitTonne,
	"tonnes": UnitTonne,
}

// CanonicalUnit normalizes a unit string. Physical units map to their
// canonical spelling, currency codes are upper-cased, and anything else is
// returned trimmed and unchanged.
func CanonicalUnit(unit string) string {
	trimmed := strings.TrimSpace(unit)
	if canonical, ok := unitAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	if IsCurrency(trimmed) {
		return strings.ToUpper(trimmed)
	}
	return trimmed
}

// IsPhysicalUnit reports whether unit is a recognized physical unit.
func IsPhysicalUnit(unit string) bool {
	_, ok := unitAliases[strings.ToLower(strings.TrimSpace(unit))]
	return ok
}

// IsCurrency reports whether unit is a recognized ISO 4217 currency code.
func IsCurrency(unit string) bool {
	code := strings.TrimSpace(unit)
	if len(code) != 3 {
		return false
	}
	_, err := currency.ParseISO(strings.ToUpper(code))
	return err == nil
}

// SameUnit compares two units after canonicalization.
func SameUnit(a, b string) bool {
	return strings.EqualFold(CanonicalUnit(a), CanonicalUnit(b))
}

// NormalizeCountry upper-cases a country code; empty stays empty.
func NormalizeCountry(country string) string {
	return strings.ToUpper(strings.TrimSpace(country))
}
