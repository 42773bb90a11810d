package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/prohmpiriya/community-portal/pkg/logger"
)

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &logger.Logger{Logger: zap.New(core)}, logs
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("assigns and propagates request id", func(t *testing.T) {
		log, logs := observedLogger()
		router := gin.New()
		router.Use(RequestLogger(RequestLogConfig{Logger: log}))
		var fromCtx interface{}
		router.GET("/events", func(c *gin.Context) {
			fromCtx = c.Request.Context().Value(logger.RequestIDKey)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))

		id := w.Header().Get(HeaderRequestID)
		assert.NotEmpty(t, id)
		assert.Equal(t, id, fromCtx)
		assert.Equal(t, 1, logs.Len())
		assert.Equal(t, id, logs.All()[0].ContextMap()["request_id"])
	})

	t.Run("keeps caller request id", func(t *testing.T) {
		log, _ := observedLogger()
		router := gin.New()
		router.Use(RequestLogger(RequestLogConfig{Logger: log}))
		router.GET("/events", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/events", nil)
		req.Header.Set(HeaderRequestID, "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
	})

	t.Run("skips configured paths", func(t *testing.T) {
		log, logs := observedLogger()
		router := gin.New()
		router.Use(RequestLogger(RequestLogConfig{Logger: log, SkipPaths: []string{"/health*"}}))
		router.GET("/health/live", func(c *gin.Context) { c.Status(http.StatusOK) })

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
		assert.Equal(t, 0, logs.Len())
	})

	t.Run("server errors log at error level", func(t *testing.T) {
		log, logs := observedLogger()
		router := gin.New()
		router.Use(RequestLogger(RequestLogConfig{Logger: log}))
		router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
		assert.Equal(t, 1, logs.FilterLevelExact(zap.ErrorLevel).Len())
	})
}

func TestMatchPath(t *testing.T) {
	assert.True(t, matchPath("/health", "/health"))
	assert.False(t, matchPath("/healthz", "/health"))
	assert.True(t, matchPath("/health/live", "/health*"))
}

func TestClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	assert.Equal(t, "10.0.0.1", clientIP(c))
}
