// internal/ratelimit/headers.go
package ratelimit

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Header names
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"

	ietfLimit     = "RateLimit-Limit"
	ietfRemaining = "RateLimit-Remaining"
	ietfReset     = "RateLimit-Reset"
)

// Info is the rate limit state reported for one request. Reset is the number
// of seconds until the bucket is full again.
type Info struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
	Reset     int `json:"reset"`
}

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(r *http.Request) string

// RejectFunc writes the response for a request over its limit. Rate limit
// headers are already set when it runs.
type RejectFunc func(w http.ResponseWriter, r *http.Request, info Info)

// KeyedLimiter keeps one token bucket per key. Each bucket holds limit tokens
// and refills completely over window.
type KeyedLimiter struct {
	mu           sync.Mutex
	window       time.Duration
	defaultLimit int
	limits       map[string]int
	buckets      map[string]*rate.Limiter
	useIETF      bool
	now          func() time.Time
}

// NewKeyedLimiter creates a limiter granting defaultLimit requests per window
// to keys without an explicit limit.
func NewKeyedLimiter(defaultLimit int, window time.Duration) *KeyedLimiter {
	return &KeyedLimiter{
		window:       window,
		defaultLimit: defaultLimit,
		limits:       make(map[string]int),
		buckets:      make(map[string]*rate.Limiter),
		now:          time.Now,
	}
}

// SetLimit overrides the limit for one key
func (kl *KeyedLimiter) SetLimit(key string, limit int) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	kl.limits[key] = limit
	delete(kl.buckets, key)
}

// UseIETFDraft enables IETF draft headers
func (kl *KeyedLimiter) UseIETFDraft(use bool) {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	kl.useIETF = use
}

func (kl *KeyedLimiter) bucket(key string) (*rate.Limiter, int) {
	limit, ok := kl.limits[key]
	if !ok {
		limit = kl.defaultLimit
	}
	limit = max(limit, 1)
	b, ok := kl.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Every(kl.window/time.Duration(limit)), limit)
		kl.buckets[key] = b
	}
	return b, limit
}

// Take charges one request to key.
func (kl *KeyedLimiter) Take(key string) (bool, Info) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	b, limit := kl.bucket(key)
	now := kl.now()
	allowed := b.AllowN(now, 1)

	tokens := b.TokensAt(now)
	remaining := int(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}
	missing := float64(limit) - tokens
	reset := int(math.Ceil(missing * kl.window.Seconds() / float64(limit)))

	return allowed, Info{Limit: limit, Remaining: remaining, Reset: reset}
}

// Middleware charges each request to key(r), sets the rate limit headers and
// hands requests over their limit to reject.
func (kl *KeyedLimiter) Middleware(key KeyFunc, reject RejectFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, info := kl.Take(key(r))

			kl.mu.Lock()
			ietf := kl.useIETF
			kl.mu.Unlock()
			SetHeaders(w, info, ietf)

			if !allowed {
				w.Header().Set(HeaderRetryAfter, strconv.Itoa(max(info.Reset, 1)))
				reject(w, r, info)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetHeaders adds rate limit headers to a response
func SetHeaders(w http.ResponseWriter, info Info, useIETF bool) {
	limit, remaining, reset := HeaderLimit, HeaderRemaining, HeaderReset
	if useIETF {
		limit, remaining, reset = ietfLimit, ietfRemaining, ietfReset
	}
	w.Header().Set(limit, strconv.Itoa(info.Limit))
	w.Header().Set(remaining, strconv.Itoa(info.Remaining))
	w.Header().Set(reset, strconv.Itoa(info.Reset))
}

// ParseHeaders reads rate limit headers from a response. ok is false when the
// response carries none.
func ParseHeaders(h http.Header) (info Info, ok bool, err error) {
	limit, remaining, reset := HeaderLimit, HeaderRemaining, HeaderReset
	if h.Get(limit) == "" && h.Get(ietfLimit) != "" {
		limit, remaining, reset = ietfLimit, ietfRemaining, ietfReset
	}
	if h.Get(limit) == "" {
		return Info{}, false, nil
	}

	values := []struct {
		name string
		dst  *int
	}{
		{limit, &info.Limit},
		{remaining, &info.Remaining},
		{reset, &info.Reset},
	}
	for _, v := range values {
		raw := strings.TrimSpace(h.Get(v.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Info{}, true, fmt.Errorf("ratelimit: invalid %s header %q: %w", v.name, raw, err)
		}
		*v.dst = n
	}
	return info, true, nil
}
