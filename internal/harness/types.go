package harness

import (
	"slices"

	"github.com/LDVSOFT/TestCompat/internal/meta"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if the run ended as expected and every assertion held.
	Pass bool

	// Errors contains assertion and expectation failures.
	Errors []string

	// Classes is the inspected metadata of every emitted class by name.
	Classes map[string]*meta.ClassMetadata

	// Warnings are the ingestion warnings of all versions.
	Warnings []string

	// Failure is the kind of error the run ended with, if any
	// (ErrorInvariantViolation or ErrorEmission).
	Failure string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Errors:   []string{},
		Classes:  make(map[string]*meta.ClassMetadata),
		Warnings: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// ClassNames returns the emitted class names in order.
func (r *Result) ClassNames() []string {
	names := make([]string, 0, len(r.Classes))
	for n := range r.Classes {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
