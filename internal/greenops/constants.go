package greenops

// Equivalency divisors in kg CO2e per unit of activity:
// equivalency = kg_CO2e / factor.
const (
	// CarKmFactor is kg CO2e per km for an average passenger car (EPA 2024,
	// 0.393 kg per mile).
	CarKmFactor = 0.2442

	// SmartphoneChargeFactor is kg CO2e per full smartphone charge.
	SmartphoneChargeFactor = 0.00822

	// TreeSeedlingFactor is kg CO2e absorbed by one seedling over 10 years.
	TreeSeedlingFactor = 60.0
)

// Mass conversions to kilograms.
const (
	GramsToKg  = 0.001
	KgToKg     = 1.0
	TonnesToKg = 1000.0
	PoundsToKg = 0.453592
)

// Display thresholds.
const (
	// MinEquivalencyThresholdKg is the smallest total worth an equivalency.
	MinEquivalencyThresholdKg = 1.0

	// LargeNumberThreshold switches to "~X.X million" notation.
	LargeNumberThreshold = 1_000_000

	// BillionThreshold switches to "~X.X billion" notation.
	BillionThreshold = 1_000_000_000
)
