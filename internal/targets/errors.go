package targets

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors for target calculations.
var (
	// ErrUnknownAmbition indicates an ambition name missing from the rate table.
	ErrUnknownAmbition = constError("unknown ambition")

	// ErrInvalidYearRange indicates a target year before the base year.
	ErrInvalidYearRange = constError("target year must not precede base year")

	// ErrNegativeEmissions indicates a negative emissions input.
	ErrNegativeEmissions = constError("emissions must not be negative")

	// ErrInvalidRate indicates a reduction rate outside (0, 100).
	ErrInvalidRate = constError("annual reduction rate must be in (0, 100)")

	// ErrEmptyRateTable indicates a rate table with no ambition.
	ErrEmptyRateTable = constError("rate table must define at least one ambition")

	// ErrDuplicateAmbition indicates two ambitions sharing a name.
	ErrDuplicateAmbition = constError("duplicate ambition")
)
