package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/stitts-dev/fantasy-feed/internal/models"
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Details string `json:"details,omitempty"`
}

func NewAppError(code string, message string, details ...string) *AppError {
	err := &AppError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Common error codes
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeRateLimited         = "RATE_LIMIT_EXCEEDED"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamAuth        = "UPSTREAM_AUTH_FAILED"
)

// FromError classifies err into an HTTP status and a client facing error
func FromError(err error) (int, *AppError) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest, NewAppError(ErrCodeValidation, validationErr.Message, validationErr.Field)
	}

	var notFoundErr *models.NotFoundError
	if errors.As(err, &notFoundErr) {
		return http.StatusNotFound, NewAppError(ErrCodeNotFound, notFoundErr.Error())
	}

	var upstreamErr *models.UpstreamError
	if errors.As(err, &upstreamErr) {
		switch {
		case upstreamErr.StatusCode == http.StatusTooManyRequests:
			return http.StatusTooManyRequests, NewAppError(ErrCodeRateLimited, "Upstream rate limit exceeded", upstreamErr.Message)
		case upstreamErr.StatusCode == http.StatusUnauthorized || upstreamErr.StatusCode == http.StatusForbidden:
			return http.StatusBadGateway, NewAppError(ErrCodeUpstreamAuth, "Upstream authentication failed", upstreamErr.Message)
		case upstreamErr.StatusCode >= http.StatusInternalServerError || upstreamErr.StatusCode == http.StatusRequestTimeout:
			return http.StatusServiceUnavailable, NewAppError(ErrCodeUpstreamUnavailable, "Upstream service unavailable", upstreamErr.Message)
		case upstreamErr.StatusCode == http.StatusNotFound:
			return http.StatusNotFound, NewAppError(ErrCodeNotFound, "Resource not found upstream", upstreamErr.Message)
		}
		return http.StatusInternalServerError, NewAppError(ErrCodeInternal, "Unexpected upstream response", upstreamErr.Message)
	}

	var transportErr *models.TransportError
	if errors.As(err, &transportErr) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, NewAppError(ErrCodeUpstreamUnavailable, "Upstream service unavailable", err.Error())
	}

	return http.StatusInternalServerError, NewAppError(ErrCodeInternal, "Internal server error")
}
