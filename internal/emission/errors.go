package emission

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors shared by the engine and its collaborators.
// These can be compared with errors.Is().
var (
	// ErrNotFound is returned by stores when a lookup has no result.
	ErrNotFound = constError("not found")

	// ErrUnknownScope indicates a category whose scope has no calculator.
	ErrUnknownScope = constError("no calculator for scope")

	// ErrInvalidRecord indicates a record missing its upsert identity.
	ErrInvalidRecord = constError("record requires organization_id, source_type and source_id")

	// ErrInvalidFactor indicates a factor missing its id, category or unit.
	ErrInvalidFactor = constError("factor requires id, category_id and unit")

	// ErrMissingID indicates an entity written without an id.
	ErrMissingID = constError("id is required")
)
