package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{name: "invalid request", err: InvalidRequestWithError(errors.New("bad json")), wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{name: "validation", err: ErrValidation("name", "required"), wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_FAILED"},
		{name: "not found", err: NotFoundError("source"), wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{name: "conflict", err: ConflictError("source weekly already exists"), wantStatus: http.StatusConflict, wantCode: "CONFLICT"},
		{name: "fetch failed", err: FetchFailedError("weekly", errors.New("timeout")), wantStatus: http.StatusBadGateway, wantCode: "FETCH_FAILED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestProblemDetailsMarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusConflict, TypeConflict, "Conflict", "exists", "/api/sources").
		WithExtension("trace_id", "abc").
		WithExtension("type", "ignored")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, TypeConflict, body["type"], "extensions never override standard members")
	assert.Equal(t, "abc", body["trace_id"])
	assert.EqualValues(t, http.StatusConflict, body["status"])
}

func TestAppError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError("fetch sheet", cause).WithContext("source", "weekly")

	assert.Equal(t, "[NETWORK] fetch sheet: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "weekly", err.Context["source"])

	var appErr *AppError
	require.ErrorAs(t, error(NewStorageError("write", nil)), &appErr)
	assert.Equal(t, ErrTypeStorage, appErr.Type)
}
