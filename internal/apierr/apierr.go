package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced in the response envelope.
const (
	CodeAuthRequired         = "AUTH_REQUIRED"
	CodeNotFound             = "NOT_FOUND"
	CodeBadRequest           = "BAD_REQUEST"
	CodeValidationFailed     = "VALIDATION_FAILED"
	CodePreconditionRequired = "PRECONDITION_REQUIRED"
	CodeVersionConflict      = "VERSION_CONFLICT"
	CodeStateConflict        = "STATE_CONFLICT"
	CodeProviderFailure      = "PROVIDER_FAILURE"
	CodePersistenceFailure   = "PERSISTENCE_FAILURE"
)

type Error struct {
	Status  int
	Code    string
	Err     error
	Details map[string]interface{}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf("%s not found", what))
}

func Validation(err error) *Error {
	return New(http.StatusUnprocessableEntity, CodeValidationFailed, err)
}

func StateConflict(err error) *Error {
	return New(http.StatusConflict, CodeStateConflict, err)
}

func VersionConflict(expected, got interface{}) *Error {
	e := New(http.StatusConflict, CodeVersionConflict, fmt.Errorf("version mismatch"))
	return e.WithDetails(map[string]interface{}{"expected": expected, "got": got})
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, CodePersistenceFailure, err)
}

// As pulls an *Error out of an error chain, wrapping unknown errors as 500s.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}
