package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/digestbot/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// asHTTPError classifies anything pushed onto c.Errors. Domain errors keep
// their code; everything else is reported as an opaque internal error.
func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	if code := apperrors.CodeOf(err); code != "" {
		return NewHTTPError(statusFor(code), code, err.Error(), err)
	}
	return NewHTTPError(http.StatusInternalServerError, "internal_error", "something went wrong", err)
}

// statusFor maps domain error codes onto HTTP statuses.
func statusFor(code string) int {
	switch code {
	case apperrors.CodeInvalidInput, apperrors.CodeInvalidAttachment:
		return http.StatusBadRequest
	case apperrors.CodeTranscriptionFailure, apperrors.CodeSummarizationFailure:
		return http.StatusBadGateway
	case apperrors.CodeInvalidToken:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
