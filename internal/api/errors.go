package api

import (
	"errors"
	"net/http"
)

// AppError carries a stable machine-readable code alongside the HTTP status.
// Clients match on Code; Status is transport detail.
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrAuthenticationRequired = &AppError{Status: http.StatusUnauthorized, Code: "authentication_required", Message: "no identity could be resolved for this request"}
	ErrInvalidRequest         = &AppError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "missing or malformed input"}
	ErrInsufficientTokens     = &AppError{Status: http.StatusPaymentRequired, Code: "insufficient_tokens", Message: "not enough tokens remaining"}
	ErrRateLimitExceeded      = &AppError{Status: http.StatusTooManyRequests, Code: "rate_limit_exceeded", Message: "too many requests"}
	ErrUnsupportedLanguage    = &AppError{Status: http.StatusBadRequest, Code: "unsupported_language", Message: "language is not supported"}
	ErrUpstreamFailure        = &AppError{Status: http.StatusServiceUnavailable, Code: "upstream_failure", Message: "backing store unavailable"}
	ErrNotFound               = &AppError{Status: http.StatusNotFound, Code: "not_found", Message: "not found"}
	ErrInternalServer         = &AppError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "internal server error"}
)

// NewInvalidRequestError returns an invalid_request error with a specific message.
func NewInvalidRequestError(msg string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: "invalid_request", Message: msg}
}

// HandleError writes an AppError as JSON, or a generic 500 for anything else.
func HandleError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		JSONError(w, appErr)
		return
	}
	JSONError(w, ErrInternalServer)
}
