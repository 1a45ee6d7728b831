package emit

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes emission errors.
type ErrorCode string

// ErrCodeEmission marks a class that cannot be represented as a class file.
const ErrCodeEmission ErrorCode = "EMISSION_ERROR"

// EmissionError reports a class or member that cannot be written: constant
// pool overflow, an unsupported constant value, an invalid descriptor or
// too many parameter slots.
type EmissionError struct {
	Code ErrorCode
	// Class is the internal name of the class being written.
	Class string
	// Member is "name+desc" of the offending member, empty for class-level
	// problems.
	Member  string
	Message string
	Err     error
}

func (e *EmissionError) Error() string {
	where := e.Class
	if e.Member != "" {
		where += "." + e.Member
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, where, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, where, e.Message)
}

func (e *EmissionError) Unwrap() error {
	return e.Err
}

// IsEmissionError reports whether err is or wraps an EmissionError.
func IsEmissionError(err error) bool {
	var ee *EmissionError
	return errors.As(err, &ee)
}

func newError(class, member, message string, err error) *EmissionError {
	return &EmissionError{Code: ErrCodeEmission, Class: class, Member: member, Message: message, Err: err}
}
