package engine

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrMalformedInput indicates an input document could not be parsed
type ErrMalformedInput struct {
	What  string
	Cause error
}

func (e *ErrMalformedInput) Error() string {
	return fmt.Sprintf("malformed %s: %v", e.What, e.Cause)
}

func (e *ErrMalformedInput) Unwrap() error {
	return e.Cause
}

// ErrInvalidOptions indicates a request option is out of range
type ErrInvalidOptions struct {
	Field   string
	Message string
}

func (e *ErrInvalidOptions) Error() string {
	return fmt.Sprintf("invalid option %s: %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var malformed *ErrMalformedInput
	var invalid *ErrInvalidOptions
	switch {
	case errors.As(err, &malformed), errors.As(err, &invalid):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// invalidOptions converts validator failures into ErrInvalidOptions,
// reporting the first failing field
func invalidOptions(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		ve := verrs[0]
		msg := ve.Tag()
		if ve.Param() != "" {
			msg += "=" + ve.Param()
		}
		return &ErrInvalidOptions{Field: ve.Field(), Message: msg}
	}
	return &ErrInvalidOptions{Field: "request", Message: err.Error()}
}
