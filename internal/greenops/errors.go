package greenops

type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors for normalization and equivalency calculations.
var (
	// ErrInvalidUnit is returned by NormalizeToKg for an unknown mass unit.
	ErrInvalidUnit = constError("invalid carbon unit")

	// ErrNegativeValue rejects negative carbon masses.
	ErrNegativeValue = constError("negative carbon value")

	// ErrCalculationOverflow is returned for infinite or NaN results.
	ErrCalculationOverflow = constError("calculation overflow")
)
