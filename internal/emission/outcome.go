package emission

import "fmt"

// OutcomeKind classifies the result of a single emission calculation.
type OutcomeKind int

const (
	// OutcomeOK means a record was computed and stored.
	OutcomeOK OutcomeKind = iota

	// OutcomeNotFound is an expected absence: excluded category, missing
	// category or missing factor. Callers treat it as a normal result of
	// incomplete reference data.
	OutcomeNotFound

	// OutcomeConfigError is a configuration fault such as a scope with no
	// calculator. It is logged at error severity but never panics the caller.
	OutcomeConfigError

	// OutcomeFailed is an infrastructure failure (store I/O).
	OutcomeFailed
)

// String returns a human-readable representation of the OutcomeKind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeConfigError:
		return "config_error"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Reason explains why no record was produced.
type Reason string

// Absence and fault reasons.
const (
	ReasonExcludedCategory    Reason = "excluded_category"
	ReasonExcludedTransaction Reason = "excluded_transaction"
	ReasonMissingCategory     Reason = "missing_category"
	ReasonMissingFactor       Reason = "missing_factor"
	ReasonUnknownScope        Reason = "unknown_scope"
	ReasonStoreFailure        Reason = "store_failure"
)

// Outcome is the tagged result of a calculation:
// Ok(record) | NotFound(reason) | ConfigError(reason) | Failed(err).
type Outcome struct {
	Kind   OutcomeKind
	Record *Record
	Reason Reason
	Err    error
	// Created is set on OK outcomes when the upsert inserted a new record.
	Created bool
}

// Ok wraps a stored record.
func Ok(record Record) Outcome {
	return Outcome{Kind: OutcomeOK, Record: &record}
}

// Inserted wraps a stored record that did not exist before.
func Inserted(record Record) Outcome {
	return Outcome{Kind: OutcomeOK, Record: &record, Created: true}
}

// NotFound reports an expected absence.
func NotFound(reason Reason) Outcome {
	return Outcome{Kind: OutcomeNotFound, Reason: reason}
}

// ConfigError reports a configuration fault.
func ConfigError(reason Reason, err error) Outcome {
	return Outcome{Kind: OutcomeConfigError, Reason: reason, Err: err}
}

// Failed reports an infrastructure failure.
func Failed(err error) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: ReasonStoreFailure, Err: err}
}

// IsOK reports whether a record was produced.
func (o Outcome) IsOK() bool { return o.Kind == OutcomeOK && o.Record != nil }

// IsNotFound reports an expected absence.
func (o Outcome) IsNotFound() bool { return o.Kind == OutcomeNotFound }

// IsConfigError reports a configuration fault.
func (o Outcome) IsConfigError() bool { return o.Kind == OutcomeConfigError }

// IsFailed reports an infrastructure failure.
func (o Outcome) IsFailed() bool { return o.Kind == OutcomeFailed }

// Error returns the underlying error for ConfigError and Failed outcomes, nil otherwise.
func (o Outcome) Error() error {
	switch o.Kind {
	case OutcomeConfigError, OutcomeFailed:
		if o.Err != nil {
			return o.Err
		}
		return fmt.Errorf("%s: %s", o.Kind, o.Reason)
	default:
		return nil
	}
}
