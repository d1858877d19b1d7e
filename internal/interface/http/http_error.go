package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HTTPError pairs a status and a stable machine code with the underlying cause.
// Message is what clients see; Err is only logged.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error { return e.Err }

// NewHTTPError builds an HTTPError.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

func (e *HTTPError) publicMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Status)
}

func asHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return NewHTTPError(http.StatusInternalServerError, "internal_error", "something went wrong", err)
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
