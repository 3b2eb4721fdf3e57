package stat

import (
	"errors"
	"fmt"
)

// Kind classifies why an analysis could not be performed
type Kind string

const (
	// InvalidInput is an empty sample, a non-finite value or otherwise malformed input
	InvalidInput = Kind("invalid_input")
	// InsufficientData means the sample is below the minimum size for the statistic
	InsufficientData = Kind("insufficient_data")
	// InsufficientGroups means fewer than two groups were supplied to ANOVA
	InsufficientGroups = Kind("insufficient_groups")
	// ConfigurationError is an unsupported or out of range configuration value
	ConfigurationError = Kind("configuration_error")
)

// Sentinel errors for use with errors.Is.  They match any *Error of the same kind regardless
// of the operation that produced it.
var (
	ErrInvalidInput       error = &Error{Kind: InvalidInput}
	ErrInsufficientData   error = &Error{Kind: InsufficientData}
	ErrInsufficientGroups error = &Error{Kind: InsufficientGroups}
	ErrConfiguration      error = &Error{Kind: ConfigurationError}
)

// Error is returned by every analyzer when its preconditions are not met.  Analyzers fail fast with an
// Error instead of returning NaN or infinite values.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Msg == "":
		return string(e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
	}
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Errorf returns a new *Error of kind for the operation op
func Errorf(kind Kind, op string, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in the chain of err, or the empty string if there is none
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
