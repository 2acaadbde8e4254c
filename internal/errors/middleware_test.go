package errors

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetpulse/internal/shared/testutil"
)

func TestErrorMiddleware_Handler(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		body      string
		wantCode  int
		wantLevel slog.Level
	}{
		{
			name:      "successful request",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) },
			wantCode:  http.StatusOK,
			wantLevel: slog.LevelInfo,
		},
		{
			name:      "client error",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadRequest) },
			body:      `{"name":"weekly","api_key":"secret-value"}`,
			wantCode:  http.StatusBadRequest,
			wantLevel: slog.LevelWarn,
		},
		{
			name:      "panic",
			handler:   func(w http.ResponseWriter, r *http.Request) { panic("boom") },
			wantCode:  http.StatusInternalServerError,
			wantLevel: slog.LevelError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			mw := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

			req := httptest.NewRequest(http.MethodPost, "/api/sources", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			mw.Handler(tt.handler).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.name == "panic" {
				assert.True(t, logs.ContainsMessage("panic recovered"))
				return
			}
			records := logs.GetRecordsByLevel(tt.wantLevel)
			require.NotEmpty(t, records)
			if tt.body != "" {
				logged, _ := records[0].Attrs["request_body"].(string)
				assert.NotContains(t, logged, "secret-value")
				assert.Contains(t, logged, "[REDACTED]")
			}
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := RecoveryMiddleware(NewErrorHandler(logger, false))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ContentTypeProblem, w.Header().Get("Content-Type"))
}
