package utils

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOK(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteOK(rec, map[string]string{"hello": "world"}))

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body SuccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]interface{}{"hello": "world"}, body.Data)
}

func TestWriteJSONNilBody(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, 204, nil))

	assert.Equal(t, 204, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		status    int
		errorType string
	}{
		{400, "bad_request"},
		{404, "not_found"},
		{429, "rate_limit_exceeded"},
		{502, "upstream_error"},
		{503, "service_unavailable"},
		{500, "internal_error"},
		{418, "internal_error"},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		require.NoError(t, WriteError(rec, tt.status, "boom", nil))

		assert.Equal(t, tt.status, rec.Code)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tt.errorType, body.Error)
		assert.Equal(t, "boom", body.Message)
	}
}

func TestWriteBadRequestDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteBadRequest(rec, "invalid", map[string]interface{}{"field": "Question"}))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "bad_request", body.Error)
	assert.Equal(t, "Question", body.Details["field"])
}
