package errs

import (
	"fmt"
	"net/http"
	"strings"

	"liveshop/internal/pkg/logx"
)

// CustomError is the error returned to clients: a business code, a message
// safe to display, and the HTTP status to respond with.
type CustomError struct {
	Code    int
	Message string
	Status  int

	// cause is the internal error, logged but never sent to the client.
	cause error
}

func (e *CustomError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("error code %d (HTTP %d): %s: %v", e.Code, e.Status, e.Message, e.cause)
	}
	return fmt.Sprintf("error code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Unwrap returns the internal cause, if any.
func (e *CustomError) Unwrap() error {
	return e.cause
}

// NewError builds the CustomError for code. details fill the printf verbs of
// the message template. Unknown codes fall back to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	tmpl, ok := errorMap[code]
	if !ok {
		logx.Error(fmt.Errorf("unknown error code %d", code), "Unknown error code requested")
		tmpl = errorMap[ErrUnknown]
	}

	customErr := tmpl
	if customErr.Status == 0 {
		customErr.Status = http.StatusBadRequest
	}

	switch {
	case strings.Contains(customErr.Message, "%"):
		if len(details) == 0 {
			customErr.Message = strings.TrimSuffix(strings.SplitN(customErr.Message, "%", 2)[0], ": ")
		} else {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		}
	case len(details) > 0:
		logx.Warn("Details provided for error, but message template has no formatting placeholders", "code", code)
	}

	return &customErr
}

// Wrap builds the CustomError for code and attaches cause for logging.
func Wrap(code int, cause error) *CustomError {
	customErr := NewError(code)
	customErr.cause = cause
	return customErr
}
