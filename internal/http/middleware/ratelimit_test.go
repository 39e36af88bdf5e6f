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

func limitCfg(perMinute int) *config.RateLimitConfig {
	return &config.RateLimitConfig{
		Enabled:                true,
		RequestsPerMinute:      perMinute,
		RequestsPerMinuteActor: perMinute,
		UploadsPerMinute:       perMinute,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(h http.Handler, path, remote, actor string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remote
	if actor != "" {
		req.Header.Set(middleware.ActorHeader, actor)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Disabled(t *testing.T) {
	cfg := limitCfg(2)
	cfg.Enabled = false
	h := middleware.NewRateLimiter(cfg, zap.NewNop()).LimitByIP(okHandler())

	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, doRequest(h, "/test", "192.168.1.1:1234", "").Code)
	}
}

func TestRateLimiter_LimitByIP(t *testing.T) {
	h := middleware.NewRateLimiter(limitCfg(2), zap.NewNop()).LimitByIP(okHandler())

	assert.Equal(t, http.StatusOK, doRequest(h, "/test", "192.168.1.1:1234", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(h, "/test", "192.168.1.1:1234", "").Code)

	w := doRequest(h, "/test", "192.168.1.1:1234", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"type":"rate_limited"`)

	// another client has its own budget
	assert.Equal(t, http.StatusOK, doRequest(h, "/test", "10.0.0.9:1234", "").Code)
}

func TestRateLimiter_Whitelists(t *testing.T) {
	cfg := limitCfg(1)
	cfg.WhitelistIPs = []string{"127.0.0.1"}
	cfg.WhitelistPaths = []string{"/health", "/swagger/*"}
	h := middleware.NewRateLimiter(cfg, zap.NewNop()).LimitByIP(okHandler())

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, doRequest(h, "/test", "127.0.0.1:1234", "").Code)
		assert.Equal(t, http.StatusOK, doRequest(h, "/health", "192.168.1.2:1234", "").Code)
		assert.Equal(t, http.StatusOK, doRequest(h, "/swagger/index.html", "192.168.1.2:1234", "").Code)
	}
}

func TestRateLimiter_LimitByActor(t *testing.T) {
	rl := middleware.NewRateLimiter(limitCfg(1), zap.NewNop())
	h := middleware.Actor(rl.LimitByActor(okHandler()))

	assert.Equal(t, http.StatusOK, doRequest(h, "/test", "192.168.1.1:1234", "alice").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(h, "/test", "192.168.1.1:1234", "alice").Code)

	// same IP, different actor
	assert.Equal(t, http.StatusOK, doRequest(h, "/test", "192.168.1.1:1234", "bob").Code)
}

func TestRateLimiter_ForwardedFor(t *testing.T) {
	h := middleware.NewRateLimiter(limitCfg(1), zap.NewNop()).LimitByIP(okHandler())

	req := func() int {
		r := httptest.NewRequest(http.MethodGet, "/test", nil)
		r.RemoteAddr = "10.0.0.1:1234"
		r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, req())
	assert.Equal(t, http.StatusTooManyRequests, req())
	assert.Equal(t, http.StatusOK, doRequest(h, "/test", "10.0.0.1:1234", "").Code)
}
