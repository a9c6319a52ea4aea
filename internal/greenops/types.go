// Package greenops turns kg CO2e totals into display values: unit
// normalization, locale-aware number formatting and real-world
// equivalencies (distance driven, smartphone charges, tree seedlings).
package greenops

import "fmt"

// EquivalencyType is a category of carbon equivalency.
type EquivalencyType int

const (
	// EquivalencyKmDriven converts CO2e to kilometres driven in an average car.
	EquivalencyKmDriven EquivalencyType = iota

	// EquivalencySmartphonesCharged converts CO2e to full smartphone charges.
	EquivalencySmartphonesCharged

	// EquivalencyTreeSeedlings converts CO2e to tree seedlings grown for 10 years.
	EquivalencyTreeSeedlings
)

// String returns a human-readable representation of the EquivalencyType.
func (e EquivalencyType) String() string {
	switch e {
	case EquivalencyKmDriven:
		return "KmDriven"
	case EquivalencySmartphonesCharged:
		return "SmartphonesCharged"
	case EquivalencyTreeSeedlings:
		return "TreeSeedlings"
	default:
		return fmt.Sprintf("EquivalencyType(%d)", e)
	}
}

// EquivalencyResult is a single calculated equivalency.
type EquivalencyResult struct {
	Type           EquivalencyType `json:"type"`
	Value          float64         `json:"value"`
	FormattedValue string          `json:"formatted_value"`
	Label          string          `json:"label"`
}

// EquivalencyOutput holds every equivalency for one carbon total.
type EquivalencyOutput struct {
	InputKg float64             `json:"input_kg"`
	Results []EquivalencyResult `json:"results,omitempty"`
	// DisplayText is the prose form, e.g.
	// "Equivalent to driving ~4,070 km or charging ~18,248 smartphones".
	DisplayText string `json:"display_text,omitempty"`
	IsEmpty     bool   `json:"is_empty"`
}
