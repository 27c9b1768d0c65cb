// internal/ratelimit/headers_test.go
package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byToken(r *http.Request) string { return r.Header.Get("Authorization") }

func rejectWith(status int) RejectFunc {
	return func(w http.ResponseWriter, r *http.Request, info Info) {
		w.WriteHeader(status)
	}
}

func TestRateLimitHeaders(t *testing.T) {
	t.Run("adds standard rate limit headers", func(t *testing.T) {
		// Arrange
		limiter := NewKeyedLimiter(20, time.Minute)
		handler := limiter.Middleware(byToken, rejectWith(http.StatusTooManyRequests))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		// Act
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		// Assert
		assert.Equal(t, "20", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "19", w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	})

	t.Run("rejects after the limit is used up", func(t *testing.T) {
		// Arrange
		limiter := NewKeyedLimiter(100, time.Minute)
		limiter.SetLimit("Bearer low", 5)
		handler := limiter.Middleware(byToken, rejectWith(http.StatusTooManyRequests))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		for i := 0; i < 5; i++ {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", "Bearer low")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		}

		// Act
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Authorization", "Bearer low")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		// Assert
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		limiter := NewKeyedLimiter(1, time.Minute)

		allowedA, _ := limiter.Take("a")
		allowedB, _ := limiter.Take("b")
		againA, info := limiter.Take("a")

		assert.True(t, allowedA)
		assert.True(t, allowedB)
		assert.False(t, againA)
		assert.Equal(t, 0, info.Remaining)
		assert.Positive(t, info.Reset)
	})

	t.Run("supports draft IETF headers", func(t *testing.T) {
		// Arrange
		limiter := NewKeyedLimiter(20, time.Minute)
		limiter.UseIETFDraft(true)

		handler := limiter.Middleware(byToken, rejectWith(http.StatusTooManyRequests))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		// Assert IETF draft headers
		assert.NotEmpty(t, w.Header().Get("RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("RateLimit-Reset"))
	})
}

func TestParseHeaders(t *testing.T) {
	t.Run("reads x- headers", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-RateLimit-Limit", "90")
		h.Set("X-RateLimit-Remaining", "89")
		h.Set("X-RateLimit-Reset", "1")

		info, ok, err := ParseHeaders(h)

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, Info{Limit: 90, Remaining: 89, Reset: 1}, info)
	})

	t.Run("reads ietf headers", func(t *testing.T) {
		w := httptest.NewRecorder()
		SetHeaders(w, Info{Limit: 5, Remaining: 0, Reset: 60}, true)

		info, ok, err := ParseHeaders(w.Header())

		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, Info{Limit: 5, Remaining: 0, Reset: 60}, info)
	})

	t.Run("absent headers", func(t *testing.T) {
		_, ok, err := ParseHeaders(http.Header{})

		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalid value", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-RateLimit-Limit", "many")

		_, ok, err := ParseHeaders(h)

		assert.True(t, ok)
		assert.Error(t, err)
	})
}
