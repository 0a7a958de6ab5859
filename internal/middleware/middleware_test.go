package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/TorbenSp09/TruckPlatoonPub/internal/middleware"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("generates request ID if not present", func(t *testing.T) {
		var fromCtx string
		handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fromCtx = middleware.RequestIDFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/v1/ring/front", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, fromCtx)
		assert.Equal(t, fromCtx, w.Header().Get(middleware.HeaderRequestID))
	})

	t.Run("preserves existing request ID", func(t *testing.T) {
		handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "election-123", middleware.RequestIDFromContext(r.Context()))
		}))

		req := httptest.NewRequest(http.MethodPut, "/v1/election/continue", nil)
		req.Header.Set(middleware.HeaderRequestID, "election-123")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "election-123", w.Header().Get(middleware.HeaderRequestID))
	})
}

func TestRequestIDFromContext_Empty(t *testing.T) {
	assert.Empty(t, middleware.RequestIDFromContext(context.Background()))
}

func TestLoggingMiddleware_QuietPaths(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	handler := middleware.Logging(logger, "/v1/health-check")(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/v1/health-check", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/v1/ring/front", nil))

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		assert.Equal(t, zap.DebugLevel, entries[0].Level)
		assert.Equal(t, zap.InfoLevel, entries[1].Level)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := middleware.Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/status", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestCORSMiddleware(t *testing.T) {
	handler := middleware.CORS([]string{"*"})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/v1/trucks", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://dashboard.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestRateLimiter(t *testing.T) {
	rl := middleware.NewRateLimiter(1, 1, zap.NewNop(), "/v1/health-check")
	handler := rl.Limit(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPut, "/v1/speed/up", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPut, "/v1/speed/up", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// probes are never limited
	probe := httptest.NewRecorder()
	handler.ServeHTTP(probe, httptest.NewRequest(http.MethodPut, "/v1/health-check", nil))
	assert.Equal(t, http.StatusOK, probe.Code)
}

func TestChain(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	middleware.Chain(mw("a"), mw("b"))(okHandler()).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b"}, order)
}
