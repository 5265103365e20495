package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scrypster/recall/internal/config"
	"github.com/scrypster/recall/web/handlers"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func authConfig(mode string) *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			Mode:     mode,
			APIToken: "secret-token",
		},
	}
}

func TestRequireAuth_SkipInDevelopmentMode(t *testing.T) {
	handler := handlers.RequireAuth(authConfig(config.ModeDevelopment))(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/users/u/memories", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuth_Production(t *testing.T) {
	handler := handlers.RequireAuth(authConfig(config.ModeProduction))(okHandler)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret-token", http.StatusUnauthorized},
		{"valid token", "Bearer secret-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users/u/memories", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), handlers.CodeUnauthorized)
			}
		})
	}
}

func TestRateLimiter_AllowsNormalRate(t *testing.T) {
	limiter := handlers.NewRateLimiter(10, 20)
	handler := limiter.Middleware(okHandler)

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/users/u/memories", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimiter_BlocksExcessiveRate(t *testing.T) {
	limiter := handlers.NewRateLimiter(1, 2)
	handler := limiter.Middleware(okHandler)

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/users/u/memories", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", w.Header().Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes[:2])
	assert.Contains(t, codes[2:], http.StatusTooManyRequests)
}

func TestRateLimiter_BucketsArePerClient(t *testing.T) {
	limiter := handlers.NewRateLimiter(1, 1)
	handler := limiter.Middleware(okHandler)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/users/u/memories", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:5678"), "same host, different port")
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1234"))
}
