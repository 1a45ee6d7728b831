package config

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// ConfigurationError reports a job that cannot be run: bad arguments, an
// unreadable or invalid job file, a missing output. The CLI maps it to exit
// code 2.
type ConfigurationError struct {
	Field   string
	Message string
	// Pos is set for errors found while evaluating a CUE job file.
	Pos token.Pos
	Err error
}

func (e *ConfigurationError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Pos.IsValid() {
		msg = fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func invalid(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}
