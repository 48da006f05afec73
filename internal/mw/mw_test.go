package mw

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(rate.Limit(0.001), 2))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", "10.0.0.1:1000").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", "10.0.0.1:1001").Code)

	w := serve(r, http.MethodGet, "/ping", "10.0.0.1:1002")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"too many requests","code":"RATE_LIMITED"}`, w.Body.String())

	// Limits are per client address.
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", "10.0.0.2:1000").Code)
}

func TestIPRateLimiter_ReusesLimiter(t *testing.T) {
	l := NewIPRateLimiter(1, 1)
	assert.Same(t, l.GetLimiter("a"), l.GetLimiter("a"))
	assert.NotSame(t, l.GetLimiter("a"), l.GetLimiter("b"))
}

func TestCache(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(Cache(cache.New(time.Minute, time.Minute), time.Minute))
	r.GET("/export/:id", func(c *gin.Context) {
		calls++
		if c.Param("id") == "missing" {
			c.JSON(http.StatusNotFound, gin.H{"success": false})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="x.csv"`)
		c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte("short_id\n1\n"))
	})
	r.POST("/export/:id", func(c *gin.Context) {
		calls++
		c.Status(http.StatusNoContent)
	})

	testCases := []struct {
		name      string
		method    string
		path      string
		status    int
		cacheHdr  string
		wantCalls int
	}{
		{"first get misses", http.MethodGet, "/export/1", http.StatusOK, "MISS", 1},
		{"second get hits", http.MethodGet, "/export/1", http.StatusOK, "HIT", 1},
		{"query string is part of the key", http.MethodGet, "/export/1?v=2", http.StatusOK, "MISS", 2},
		{"errors are not stored", http.MethodGet, "/export/missing", http.StatusNotFound, "MISS", 3},
		{"errors stay uncached", http.MethodGet, "/export/missing", http.StatusNotFound, "MISS", 4},
		{"post bypasses cache", http.MethodPost, "/export/1", http.StatusNoContent, "", 5},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(r, tc.method, tc.path, "")
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.cacheHdr, w.Header().Get(CacheStatusHeader))
			assert.Equal(t, tc.wantCalls, calls)
		})
	}

	w := serve(r, http.MethodGet, "/export/1", "")
	assert.Equal(t, "short_id\n1\n", w.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="x.csv"`, w.Header().Get("Content-Disposition"))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(zerolog.New(&buf)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusConflict) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	testCases := []struct {
		path  string
		level string
	}{
		{"/ok", "info"},
		{"/bad", "warn"},
		{"/boom", "error"},
	}
	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			buf.Reset()
			serve(r, http.MethodGet, tc.path, "")

			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, tc.level, line["level"])
			assert.Equal(t, tc.path, line["path"])
			assert.Equal(t, "GET", line["method"])
			assert.Equal(t, "request", line["message"])
		})
	}
}
