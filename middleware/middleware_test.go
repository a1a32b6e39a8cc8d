package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/analytics/config"
	"portfolio/analytics/models"
	"portfolio/analytics/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	r.GET("/x", ok)
	r.POST("/x", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.String(http.StatusOK, "ok")
	})
	return r
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSPreflight(t *testing.T) {
	r := newEngine(CORSMiddleware("https://portfolio.example"))

	w := serve(r, httptest.NewRequest(http.MethodOptions, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://portfolio.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSWildcardHasNoCredentials(t *testing.T) {
	r := newEngine(CORSMiddleware(""))
	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestBodyLimit(t *testing.T) {
	r := newEngine(BodyLimit(16))

	w := serve(r, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(strings.Repeat("a", 17))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Payload too large"}`, w.Body.String())

	// unknown length: the cap is enforced while reading
	req := httptest.NewRequest(http.MethodPost, "/x", io.NopCloser(strings.NewReader(strings.Repeat("a", 64))))
	req.ContentLength = -1
	w = serve(r, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestIngestRateLimiter(t *testing.T) {
	rl := NewIngestRateLimiter(0.001, 2)
	r := newEngine(rl.Middleware())

	for i := 0; i < 2; i++ {
		w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIngestLimiterFor(t *testing.T) {
	assert.Nil(t, IngestLimiterFor(config.Ingest{RateLimit: 0, RateBurst: 40}))

	rl := IngestLimiterFor(config.Ingest{RateLimit: 5, RateBurst: 10})
	require.NotNil(t, rl)
	assert.Equal(t, 10, rl.burst)
}

func TestIngestRateLimiterPrune(t *testing.T) {
	rl := NewIngestRateLimiter(10, 10)
	clock := time.Now()
	rl.now = func() time.Time { return clock }

	rl.limiterFor("10.0.0.1")
	clock = clock.Add(2 * time.Minute)
	rl.limiterFor("10.0.0.2")
	clock = clock.Add(2 * time.Minute)

	assert.Equal(t, 1, rl.Prune())
}

func TestDashboardAuthDisabled(t *testing.T) {
	r := newEngine(DashboardAuth(config.Auth{}))
	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDashboardAuth(t *testing.T) {
	cfg := config.Auth{JWTSecret: "secret", APIKey: "key-123"}
	r := newEngine(DashboardAuth(cfg))

	w := serve(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-API-KEY", "key-123")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-API-KEY", "wrong")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	token, err := utils.GenerateJWT([]byte("secret"), &models.Operator{ID: 1, Email: "ops@example.com"}, time.Hour)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: token})
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}

func TestDashboardAuthAPIKeyOnly(t *testing.T) {
	r := newEngine(DashboardAuth(config.Auth{APIKey: "key-123"}))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}
