package promptcatalog

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for catalog, contract and invocation operations.
// All use prefix "promptcatalog:" for identification. Callers should use errors.Is/errors.As.
var (
	ErrNotFound          = errors.New("promptcatalog: prompt not found in catalog")
	ErrMissingVariable   = errors.New("promptcatalog: required variable not provided")
	ErrInvalidDefinition = errors.New("promptcatalog: prompt definition is malformed")
	ErrSourceUnavailable = errors.New("promptcatalog: prompt source unavailable")
	ErrInvalidName       = errors.New("promptcatalog: invalid prompt name")
	ErrInvalidArgs       = errors.New("promptcatalog: invalid argument struct")
)

// MissingVariablesError lists every required variable absent from one invocation.
// Use errors.Is(err, ErrMissingVariable) and errors.As(err, &missingErr) to inspect.
type MissingVariablesError struct {
	Prompt    string
	Variables []string
}

// Error implements error.
func (e *MissingVariablesError) Error() string {
	return fmt.Sprintf("promptcatalog: prompt %q: missing required variables [%s]",
		e.Prompt, strings.Join(e.Variables, ", "))
}

// Unwrap returns ErrMissingVariable for errors.Is.
func (e *MissingVariablesError) Unwrap() error { return ErrMissingVariable }

// DecodeError reports one source entry that could not be turned into a Definition.
// Catalogs log and skip these; they never fail a whole load.
type DecodeError struct {
	Name   string
	Origin string
	Err    error
}

// Error implements error.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("promptcatalog: decode %q from %s: %v", e.Name, e.Origin, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/errors.As.
func (e *DecodeError) Unwrap() error { return e.Err }

// Compile-time checks that the typed errors implement error.
var (
	_ error = (*MissingVariablesError)(nil)
	_ error = (*DecodeError)(nil)
)
