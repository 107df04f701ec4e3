package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"lanepricing/internal/http/middleware"
	"lanepricing/internal/modules/pricerequest"
	"lanepricing/internal/types"
)

type stubChecker struct {
	codes map[types.ID]string
	err   error
}

func (s stubChecker) CheckAccess(_ context.Context, id types.ID, code string) error {
	if s.err != nil {
		return s.err
	}
	want, ok := s.codes[id]
	if !ok {
		return pricerequest.ErrNotFound
	}
	if want != code {
		return pricerequest.ErrAccessDenied
	}
	return nil
}

func newAccessRouter(checker middleware.AccessChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/requests/:id", middleware.AccessCode(checker), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	return r
}

func TestAccessCode(t *testing.T) {
	r := newAccessRouter(stubChecker{codes: map[types.ID]string{"pr1": "abc"}})

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing code", "/requests/pr1", "", http.StatusUnauthorized},
		{"wrong code", "/requests/pr1", "nope", http.StatusUnauthorized},
		{"header code", "/requests/pr1", "abc", http.StatusOK},
		{"query code", "/requests/pr1?code=abc", "", http.StatusOK},
		{"unknown request", "/requests/pr9", "abc", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(middleware.AccessCodeHeader, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAccessCode_StoreFailure(t *testing.T) {
	r := newAccessRouter(stubChecker{err: errors.New("db down")})
	req := httptest.NewRequest(http.MethodGet, "/requests/pr1?code=abc", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestRecoveryAndLogging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	r := gin.New()
	r.Use(middleware.Logging(log), middleware.Recovery(log))
	r.GET("/boom", func(*gin.Context) { panic("boom") })
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	requests := logs.FilterMessage("request").All()
	if assert.Len(t, requests, 2) {
		assert.Equal(t, int64(500), requests[0].ContextMap()["status"])
		assert.Equal(t, "/ok", requests[1].ContextMap()["path"])
	}
}

func TestMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	m := middleware.NewMetrics(reg)

	r := gin.New()
	r.Use(m.Handler())
	r.GET("/boards/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/boards/a", "/boards/b", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	w := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	assert.Contains(t, body, `lanepricing_http_requests_total{method="GET",route="/boards/:id",status="200"} 2`)
	assert.Contains(t, body, `lanepricing_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.True(t, strings.Contains(body, "lanepricing_http_request_duration_seconds_bucket"))
}
