// Package apierr carries request rejections raised before a use case runs.
package apierr

import (
	"errors"
	"net/http"
	"strings"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return strings.ReplaceAll(e.Code, "_", " ")
	}
	return http.StatusText(e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func BadRequest(code string, err error) *Error {
	return &Error{Status: http.StatusBadRequest, Code: code, Err: err}
}

// Invalid rejects a malformed parameter; the code is "invalid_<param>".
func Invalid(param string, err error) *Error {
	return BadRequest("invalid_"+param, err)
}

// Unauthorized never echoes why a credential was rejected.
func Unauthorized() *Error {
	return &Error{
		Status: http.StatusUnauthorized,
		Code:   "unauthorized",
		Err:    errors.New("missing or invalid token"),
	}
}
