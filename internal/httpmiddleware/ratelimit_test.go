package httpmiddleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket(t *testing.T) {
	l := NewSimpleTokenBucket(2, 60)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "a")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "b")
	assert.True(t, ok, "keys are independent")

	clock = clock.Add(time.Second)
	ok, _ = l.Allow(ctx, "a")
	assert.True(t, ok, "one token refills per second at 60/min")
}

type recorder struct {
	route, status string
}

func (r *recorder) ObserveRequest(route, method, status string, d time.Duration) {
	r.route, r.status = route, status
}

func TestMiddlewareChain(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var logs bytes.Buffer
	rec := &recorder{}

	r := gin.New()
	r.Use(RequestLogger(zerolog.New(&logs)), Metrics(rec), RateLimit(NewSimpleTokenBucket(1, 1), zerolog.Nop()))
	r.GET("/things/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/things/:id", rec.route)
	assert.Contains(t, logs.String(), `"status":200`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/things/2", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "429", rec.status)
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}
