package variable

import (
	"errors"
	"fmt"
)

// ConfigErrorCode categorizes model configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeShadowCycle indicates shadow variables that depend on each other.
	ErrCodeShadowCycle ConfigErrorCode = "SHADOW_CYCLE"

	// ErrCodeNoSources indicates a shadow variable without source variables.
	ErrCodeNoSources ConfigErrorCode = "NO_SOURCES"

	// ErrCodeNoListener indicates a shadow variable without a listener factory.
	ErrCodeNoListener ConfigErrorCode = "NO_LISTENER"

	// ErrCodeUnknownSource indicates a source variable whose entity is not part
	// of the solution.
	ErrCodeUnknownSource ConfigErrorCode = "UNKNOWN_SOURCE"

	// ErrCodeMixedSources indicates a shadow variable sourced on both list and
	// non-list variables.
	ErrCodeMixedSources ConfigErrorCode = "MIXED_SOURCES"

	// ErrCodeDuplicateVariable indicates two variables with the same name on
	// one entity.
	ErrCodeDuplicateVariable ConfigErrorCode = "DUPLICATE_VARIABLE"

	// ErrCodeListenerKind indicates a listener that does not implement the
	// interface its sources require.
	ErrCodeListenerKind ConfigErrorCode = "LISTENER_KIND"
)

// ConfigError is a model configuration error detected before solving starts.
//
// Configuration errors are fatal: the model cannot be used until the
// declaration is fixed.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Variable is the offending variable as "Entity.variable", if any.
	Variable string

	// Message is a human-readable description.
	Message string

	// Path lists the variables forming a cycle (ErrCodeShadowCycle only).
	Path []string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("%s: %s (variable=%s)", e.Code, e.Message, e.Variable)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsCycleError returns true if err is a shadow cycle configuration error.
func IsCycleError(err error) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeShadowCycle
	}
	return false
}

// IsConfigError returns true if err is a ConfigError with the given code.
func IsConfigError(err error, code ConfigErrorCode) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

func newConfigError(code ConfigErrorCode, v *Descriptor, format string, args ...any) *ConfigError {
	e := &ConfigError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
	if v != nil {
		e.Variable = v.String()
	}
	return e
}
