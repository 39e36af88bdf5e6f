package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/useneurox-company/ERP--sub000/internal/config"
	"github.com/useneurox-company/ERP--sub000/internal/http/middleware"
)

func corsHandler(cfg *config.CORSConfig, env string) http.Handler {
	return middleware.CORS(cfg, env, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func preflight(h http.Handler, origin string, headers string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/projects", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", "POST")
	if headers != "" {
		req.Header.Set("Access-Control-Request-Headers", headers)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCORS_DevelopmentAllowsAllOrigins(t *testing.T) {
	h := corsHandler(&config.CORSConfig{AllowedMethods: []string{"GET", "POST"}}, "development")

	w := preflight(h, "http://localhost:3000", "")
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ExplicitOrigins(t *testing.T) {
	h := corsHandler(&config.CORSConfig{
		AllowedOrigins: []string{"https://erp.example.com"},
		AllowedMethods: []string{"GET", "POST"},
	}, "production")

	w := preflight(h, "https://erp.example.com", "")
	assert.Equal(t, "https://erp.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = preflight(h, "https://malicious.com", "")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ProductionWithoutOriginsDeniesAll(t *testing.T) {
	h := corsHandler(&config.CORSConfig{AllowedMethods: []string{"GET"}}, "production")

	w := preflight(h, "https://erp.example.com", "")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_WildcardOrigin(t *testing.T) {
	h := corsHandler(&config.CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}, "staging")

	w := preflight(h, "http://any-origin.com", "")
	assert.Equal(t, "http://any-origin.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ActorHeaderAlwaysAllowed(t *testing.T) {
	h := corsHandler(&config.CORSConfig{
		AllowedOrigins: []string{"https://erp.example.com"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}, "production")

	w := preflight(h, "https://erp.example.com", "X-Actor-ID")
	assert.Equal(t, "https://erp.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Actor-Id")
}
