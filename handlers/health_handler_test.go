package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type fakeChecker struct {
	err error
}

func (f *fakeChecker) HealthCheck(ctx context.Context) error {
	return f.err
}

func TestHandleHealthz(t *testing.T) {
	h := NewHealthHandler(&fakeChecker{}, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.HandleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHandleReadyzHealthy(t *testing.T) {
	h := NewHealthHandler(&fakeChecker{}, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.HandleReadyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"healthy"`)
}

func TestHandleReadyzDatabaseDown(t *testing.T) {
	h := NewHealthHandler(&fakeChecker{err: errors.New("connection refused")}, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.HandleReadyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"unhealthy"`)
}

func TestHandleReadyzNoDatabase(t *testing.T) {
	h := NewHealthHandler(nil, zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.HandleReadyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"not_initialized"`)
}
