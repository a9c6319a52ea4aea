package ingest

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors for dataset loading.
var (
	ErrUnknownFormat        = constError("unknown dataset format")
	ErrMissingSchemaVersion = constError("dataset schema_version is required")
	ErrInvalidSchemaVersion = constError("invalid dataset schema_version")
	ErrUnsupportedSchema    = constError("unsupported dataset schema_version")
	ErrInvalidDate          = constError("invalid date")
	ErrInvalidLocation      = constError("invalid dataset location")
)
