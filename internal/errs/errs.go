// Package errs defines the typed error kinds the engine returns across its
// public boundary (spec.md §7).
package errs

import "fmt"

// Kind classifies an engine-level failure.
type Kind string

const (
	KindStoreUnavailable Kind = "StoreUnavailable"
	KindStoreBusy        Kind = "StoreBusy"
	KindCorrupt          Kind = "Corrupt"
	KindQuotaExceeded    Kind = "QuotaExceeded"
	KindConfigInvalid    Kind = "ConfigInvalid"
	KindInternal         Kind = "Internal"
)

// StoreError wraps a failure from the Store with a recovery-relevant kind.
type StoreError struct {
	Kind  Kind
	Cause error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return string(e.Kind)
}

func (e *StoreError) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, errs.New(errs.KindStoreBusy, nil))-style matching:
// any *StoreError target with the same Kind matches, whatever its Cause.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs a StoreError of the given kind.
func New(kind Kind, cause error) *StoreError {
	return &StoreError{Kind: kind, Cause: cause}
}

// ConfigError represents one invalid configuration field.
type ConfigError struct {
	Field   string
	Message string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigErrors collects every violated field so the engine refuses to start
// with one report instead of failing one field at a time.
type ConfigErrors []ConfigError

func (e ConfigErrors) Error() string {
	if len(e) == 0 {
		return "no configuration errors"
	}
	msg := "invalid configuration:\n"
	for _, ce := range e {
		msg += "  - " + ce.Error() + "\n"
	}
	return msg
}
