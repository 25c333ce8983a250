package bb84

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput classifies errors caused by input the protocol cannot
	// carry, e.g. characters wider than one byte.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConfiguration classifies errors caused by nonsensical run
	// parameters. They are reported before any simulation work begins.
	ErrConfiguration = errors.New("invalid configuration")
)

// An EncodingError reports a character that cannot be encoded in 8 bits.
type EncodingError struct {
	// Index is the position of the offending character in the message,
	// counted in characters rather than bytes.
	Index     int
	CodePoint rune
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoding character %d: code point %U does not fit in one byte", e.Index, e.CodePoint)
}

// Is reports whether target is ErrInvalidInput.
func (e *EncodingError) Is(target error) bool {
	return target == ErrInvalidInput
}

// A ConfigurationError reports a rejected run parameter.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErr(field, format string, args ...interface{}) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
