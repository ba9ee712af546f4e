package apierr

import (
	"errors"
	"fmt"
	"net/http"

	types "github.com/yungbote/enrichment-backend/internal/domain"
)

type Error struct {
	Status int
	Code   string
	Causes []string
	Err    error
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

// StatusOf maps a coded domain error onto an HTTP status.
func StatusOf(code types.ErrorCode) int {
	switch code {
	case types.CodeValidation:
		return http.StatusBadRequest
	case types.CodeNotFound:
		return http.StatusNotFound
	case types.CodeUnauthorized:
		return http.StatusUnauthorized
	case types.CodeForbidden, types.CodeOwnershipMismatch:
		return http.StatusForbidden
	case types.CodeConflict:
		return http.StatusConflict
	case types.CodeRetryable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// From converts any error into an API error. Uncoded errors become 500s
// whose message is not leaked to the caller.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	code := types.CodeOf(err)
	if code == "" || code == types.CodeInternal {
		return &Error{Status: http.StatusInternalServerError, Code: string(types.CodeInternal), Err: errors.New("internal error")}
	}
	return &Error{
		Status: StatusOf(code),
		Code:   string(code),
		Causes: types.CausesOf(err),
		Err:    err,
	}
}
