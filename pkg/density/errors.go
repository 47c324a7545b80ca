package density

import (
	"errors"
	"fmt"
)

// ErrEmptyField is the sentinel wrapped by every EmptyFieldError.
var ErrEmptyField = errors.New("empty density field")

// InvalidParameterError reports a configuration fault: a non-positive
// cutoff, resolution or radius, or an out-of-range isolevel fraction.
type InvalidParameterError struct {
	Param  string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid parameter %s = %g", e.Param, e.Value)
	}
	return fmt.Sprintf("invalid parameter %s = %g: %s", e.Param, e.Value, e.Reason)
}

// EmptyFieldError is returned when no isolevel can be derived from a field,
// either because no atoms contributed or because every value is zero.
type EmptyFieldError struct {
	Reason string
}

func (e *EmptyFieldError) Error() string {
	if e.Reason == "" {
		return ErrEmptyField.Error()
	}
	return ErrEmptyField.Error() + ": " + e.Reason
}

func (e *EmptyFieldError) Unwrap() error { return ErrEmptyField }

func invalid(param string, value float64, reason string) error {
	return &InvalidParameterError{Param: param, Value: value, Reason: reason}
}
