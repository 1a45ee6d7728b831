package merge

import (
	"errors"
	"fmt"

	"github.com/LDVSOFT/TestCompat/internal/ir"
)

// ErrorCode categorizes merge errors.
type ErrorCode string

// ErrCodeInvariantViolation marks input that would break the IR's
// invariants, such as one version declaring the same member key twice.
const ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"

// InvariantViolationError is returned by AppendClass for a declaration that
// cannot be merged. The IR is left untouched.
type InvariantViolationError struct {
	Code    ErrorCode
	Class   string
	Version ir.Version
	Err     error
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("%s: class %s (version %s): %v", e.Code, e.Class, e.Version, e.Err)
}

func (e *InvariantViolationError) Unwrap() error {
	return e.Err
}

// IsInvariantViolation reports whether err is or wraps an
// InvariantViolationError.
func IsInvariantViolation(err error) bool {
	var iv *InvariantViolationError
	return errors.As(err, &iv)
}

func violation(decl *ir.ClassDecl, err error) *InvariantViolationError {
	return &InvariantViolationError{
		Code:    ErrCodeInvariantViolation,
		Class:   decl.Name,
		Version: decl.Version,
		Err:     err,
	}
}
