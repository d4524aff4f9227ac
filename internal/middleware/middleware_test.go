package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symptom-risk-server/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func get(r http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	w := get(newRouter(SecurityHeaders()), "/ping", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "HSTS only in release mode")
}

func TestCorrelationID(t *testing.T) {
	r := newRouter(CorrelationID())

	t.Run("Generated", func(t *testing.T) {
		w := get(r, "/ping", nil)
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})

	t.Run("Propagated", func(t *testing.T) {
		w := get(r, "/ping", map[string]string{RequestIDHeader: "req-42"})
		assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	})
}

func TestAccessLog(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := newRouter(CorrelationID(), AccessLog(logger))

	get(r, "/ping?fever=yes", map[string]string{RequestIDHeader: "req-1"})
	get(r, "/missing", nil)

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, logrus.InfoLevel, entries[0].Level)
	assert.Equal(t, "req-1", entries[0].Data["request_id"])
	assert.Equal(t, "/ping", entries[0].Data["path"])
	assert.Equal(t, http.StatusOK, entries[0].Data["status"])
	assert.Equal(t, logrus.WarnLevel, entries[1].Level)
}

func TestRecovery(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := newRouter(CorrelationID(), Recovery(logger))

	w := get(r, "/panic", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), domain.CodeInternalServer)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "boom", hook.LastEntry().Data["panic"])
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2})
	r := newRouter(CorrelationID(), limiter.Middleware())

	assert.Equal(t, http.StatusOK, get(r, "/ping", nil).Code)
	assert.Equal(t, http.StatusOK, get(r, "/ping", nil).Code)

	w := get(r, "/ping", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), domain.CodeRateLimit)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimiter_PerClient(t *testing.T) {
	limiter := NewRateLimiter(domain.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1})

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"), "Each client has its own bucket")
}
