package greenops

import (
	"fmt"
	"math"
)

// Calculate computes equivalencies for a carbon mass in unit. Totals below
// MinEquivalencyThresholdKg yield an empty output and no error.
func Calculate(value float64, unit string) (EquivalencyOutput, error) {
	kg, err := NormalizeToKg(value, unit)
	if err != nil {
		return EquivalencyOutput{IsEmpty: true}, err
	}
	if kg < MinEquivalencyThresholdKg {
		return EquivalencyOutput{InputKg: kg, IsEmpty: true}, nil
	}

	km := kg / CarKmFactor
	phones := kg / SmartphoneChargeFactor
	trees := kg / TreeSeedlingFactor
	for _, v := range []float64{km, phones, trees} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return EquivalencyOutput{IsEmpty: true}, ErrCalculationOverflow
		}
	}

	results := []EquivalencyResult{
		{Type: EquivalencyKmDriven, Value: km, FormattedValue: formatEquivalencyValue(km), Label: "km driven"},
		{
			Type: EquivalencySmartphonesCharged, Value: phones,
			FormattedValue: formatEquivalencyValue(phones), Label: "smartphones charged",
		},
		{
			Type: EquivalencyTreeSeedlings, Value: trees,
			FormattedValue: formatEquivalencyValue(trees), Label: "tree seedlings grown for 10 years",
		},
	}
	return EquivalencyOutput{
		InputKg: kg,
		Results: results,
		DisplayText: fmt.Sprintf("Equivalent to driving ~%s km or charging ~%s smartphones",
			results[0].FormattedValue, results[1].FormattedValue),
	}, nil
}

// FromKg is Calculate for a kg total, returning an empty output on error.
func FromKg(kg float64) EquivalencyOutput {
	out, err := Calculate(kg, "kg")
	if err != nil {
		return EquivalencyOutput{IsEmpty: true}
	}
	return out
}

func formatEquivalencyValue(v float64) string {
	if v >= LargeNumberThreshold {
		return FormatLarge(v)
	}
	return FormatNumber(int64(math.Round(v)))
}
