package benchmark

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateID indicates two items share an identifier.
	ErrDuplicateID = errors.New("duplicate item id")

	// ErrUnknownProfile indicates a profile lookup or extends reference failed.
	ErrUnknownProfile = errors.New("unknown profile")

	// ErrProfileCycle indicates profiles extend each other in a loop.
	ErrProfileCycle = errors.New("profile extends cycle")
)

// StructureError collects problems found while building a benchmark.
type StructureError struct {
	BenchmarkID string
	Errors      []string
}

// Error returns the error message.
func (e *StructureError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("benchmark %s: %s", e.BenchmarkID, e.Errors[0])
	}
	return fmt.Sprintf("benchmark %s: %d errors: %s", e.BenchmarkID, len(e.Errors), strings.Join(e.Errors, "; "))
}

// LoadError wraps a failure to read or decode a benchmark document.
type LoadError struct {
	Path  string
	Cause error
}

// Error returns the error message.
func (e *LoadError) Error() string {
	return fmt.Sprintf("load benchmark %q: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Cause
}
