package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"todo_api/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func ok(c *gin.Context) { c.Status(http.StatusOK) }

func TestAPIKey(t *testing.T) {
	r := gin.New()
	r.POST("/guarded", APIKey("s3cret"), ok)
	r.POST("/open", APIKey(""), ok)

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/guarded", nil).Code)
	rec := serve(r, http.MethodPost, "/guarded", map[string]string{APIKeyHeader: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Invalid or missing API key"}`, rec.Body.String())
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/guarded", map[string]string{APIKeyHeader: "s3cret"}).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/open", nil).Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/todos/:id", ok)

	serve(r, http.MethodGet, "/todos/1", nil)
	serve(r, http.MethodGet, "/todos/2", nil)
	serve(r, http.MethodGet, "/nowhere", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/todos/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", UnmatchedPath, "404")))
}

func TestRequestLoggerSetsID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/", ok)

	rec := serve(r, http.MethodGet, "/", nil)
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	rec = serve(r, http.MethodGet, "/", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestMemoryLimiterWindow(t *testing.T) {
	l := NewMemoryLimiter(2, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i, want := range []bool{true, true, false, false} {
		got, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, want, got, "request %d", i+1)
	}
	got, _ := l.Allow(ctx, "5.6.7.8")
	assert.True(t, got, "other clients have their own budget")

	now = now.Add(time.Minute)
	got, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, got, "new window")
}

func TestMemoryLimiterConcurrent(t *testing.T) {
	l := NewMemoryLimiter(50, time.Hour)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow(context.Background(), "k"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestRateLimitMiddleware(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.GET("/limited", RateLimit(NewMemoryLimiter(1, time.Hour), m), ok)
	r.GET("/broken", RateLimit(brokenLimiter{}, m), ok)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/limited", nil).Code)
	rec := serve(r, http.MethodGet, "/limited", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"detail":"rate limit exceeded"}`, rec.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RLRequests.WithLabelValues("/limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RLBlocked.WithLabelValues("/limited")))

	rec = serve(r, http.MethodGet, "/broken", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "limiter errors fail open")
	assert.Equal(t, "limiter-error", rec.Header().Get("X-RateLimit-Error"))
}
