package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/useneurox-company/ERP--sub000/internal/http/middleware"
)

func TestLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := middleware.Logging(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	t.Run("request context on every line", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-42")
		req.Header.Set(middleware.ActorHeader, "alice")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "req-42", rec.Header().Get(middleware.RequestIDHeader))

		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
		assert.Equal(t, "req-42", fields["request_id"])
		assert.Equal(t, http.MethodGet, fields["method"])
		assert.Equal(t, "/api/v1/projects", fields["path"])
		assert.Equal(t, "alice", fields["actor_id"])
		assert.EqualValues(t, http.StatusOK, fields["status_code"])
		assert.EqualValues(t, 2, fields["response_size"])
	})

	t.Run("generated request id and server errors", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/boom", nil))

		id := rec.Header().Get(middleware.RequestIDHeader)
		assert.NotEmpty(t, id)

		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
		assert.Equal(t, id, fields["request_id"])
		assert.NotContains(t, fields, "actor_id")
	})
}
