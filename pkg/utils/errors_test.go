package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/fantasy-feed/internal/models"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", models.NewValidationError("q", "query is required"), http.StatusBadRequest, ErrCodeValidation},
		{"not found", &models.NotFoundError{Source: "mock", Kind: "match", ID: "x"}, http.StatusNotFound, ErrCodeNotFound},
		{"transport", &models.TransportError{Endpoint: "/search", Err: errors.New("dial tcp")}, http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable},
		{"wrapped transport", fmt.Errorf("search: %w", &models.TransportError{Endpoint: "/search", Err: errors.New("eof")}), http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable},
		{"upstream 500", &models.UpstreamError{StatusCode: 500}, http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable},
		{"upstream 408", &models.UpstreamError{StatusCode: 408}, http.StatusServiceUnavailable, ErrCodeUpstreamUnavailable},
		{"upstream 429", &models.UpstreamError{StatusCode: 429}, http.StatusTooManyRequests, ErrCodeRateLimited},
		{"upstream 401", &models.UpstreamError{StatusCode: 401}, http.StatusBadGateway, ErrCodeUpstreamAuth},
		{"upstream 403", &models.UpstreamError{StatusCode: 403}, http.StatusBadGateway, ErrCodeUpstreamAuth},
		{"upstream 418", &models.UpstreamError{StatusCode: 418}, http.StatusInternalServerError, ErrCodeInternal},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, appErr := FromError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, appErr.Code)
			assert.NotEmpty(t, appErr.Message)
		})
	}
}

func TestErrorBodyShape(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	AbortWithError(c, models.NewValidationError("page", "must be a non-negative integer"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, ErrCodeValidation, body["code"])
	assert.Equal(t, "must be a non-negative integer", body["error"])
	assert.Equal(t, "page", body["details"])
}
