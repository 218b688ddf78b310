package errors

import (
	"errors"
	"fmt"
)

// InvalidInputError aborts the analysis of a single malformed function.
// Other functions of the same batch are unaffected.
type InvalidInputError struct {
	Code     string
	Contract string
	Function string
	Message  string
}

func NewInvalidInput(code, contract, function, message string) *InvalidInputError {
	return &InvalidInputError{Code: code, Contract: contract, Function: function, Message: message}
}

func (e *InvalidInputError) Error() string {
	name := e.Function
	if e.Contract != "" {
		name = e.Contract + "." + e.Function
	}
	if name == "" {
		return fmt.Sprintf("[%s] invalid input: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] invalid input in %s: %s", e.Code, name, e.Message)
}

// IsInvalidInput reports whether err wraps an InvalidInputError
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}

// IsCode reports whether err wraps an InvalidInputError with the given code
func IsCode(err error, code string) bool {
	var ie *InvalidInputError
	if errors.As(err, &ie) {
		return ie.Code == code
	}
	return false
}
