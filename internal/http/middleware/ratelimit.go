package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"internportal/internal/common"
	"internportal/internal/http/response"
)

type Limiter interface {
	Allow(key string, limit int, window time.Duration) bool
}

// RateLimiter is a fixed-window counter per key, local to the process.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*rateBucket
	now       func() time.Time
	lastSweep time.Time
}

type rateBucket struct {
	hits    int
	resetAt time.Time
}

// take records a hit in the current window and reports whether it fits.
func (b *rateBucket) take(now time.Time, limit int, window time.Duration) bool {
	if !now.Before(b.resetAt) {
		b.hits, b.resetAt = 0, now.Add(window)
	}
	if b.hits >= limit {
		return false
	}
	b.hits++
	return true
}

const sweepEvery = time.Minute

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*rateBucket), now: time.Now}
}

func (r *RateLimiter) Allow(key string, limit int, window time.Duration) bool {
	if key == "" || limit <= 0 || window <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sweep(now)
	bucket := r.buckets[key]
	if bucket == nil {
		bucket = &rateBucket{}
		r.buckets[key] = bucket
	}
	return bucket.take(now, limit, window)
}

// sweep drops expired windows so idle keys do not accumulate.
func (r *RateLimiter) sweep(now time.Time) {
	if now.Sub(r.lastSweep) < sweepEvery {
		return
	}
	r.lastSweep = now
	for key, bucket := range r.buckets {
		if !now.Before(bucket.resetAt) {
			delete(r.buckets, key)
		}
	}
}

// RateLimit rejects a request once the bucket named by keyFn is full.
func RateLimit(limiter Limiter, keyFn func(*http.Request) string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil && !limiter.Allow(keyFn(r), limit, window) {
				response.Error(w, common.NewError(common.CodeRateLimited, "too many requests", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP is the address of the connected peer. Forwarding headers only
// count once ProxyHeaders has rewritten RemoteAddr.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ProxyHeaders takes the client address from the first X-Forwarded-For hop.
// Enable it only when every request arrives through a proxy that overwrites
// the header; otherwise callers could pick their own address.
func ProxyHeaders(trusted bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !trusted {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				r.RemoteAddr = net.JoinHostPort(ip.String(), "0")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ByClient keys on the client address plus the named JSON body fields.
func ByClient(prefix string, fields ...string) func(*http.Request) string {
	return func(r *http.Request) string {
		return rateKey(prefix, "ip:"+ClientIP(r), bodyStrings(r, fields))
	}
}

// ByUser keys on the authenticated account plus the named JSON body fields.
// Anonymous requests fall back to the client address.
func ByUser(prefix string, fields ...string) func(*http.Request) string {
	return func(r *http.Request) string {
		if id, ok := UserIDFromContext(r.Context()); ok && id != "" {
			return rateKey(prefix, id.String(), bodyStrings(r, fields))
		}
		return rateKey(prefix, "ip:"+ClientIP(r), bodyStrings(r, fields))
	}
}

func rateKey(prefix, who string, values []string) string {
	return strings.Join(append([]string{prefix, who}, values...), ":")
}

// bodyStrings reads string fields from a JSON body and puts the body back for
// the handler. Missing or non-string fields come back empty.
func bodyStrings(r *http.Request, fields []string) []string {
	if len(fields) == 0 || r.Body == nil {
		return nil
	}
	data, err := io.ReadAll(r.Body)
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(data), r.Body), r.Body}
	values := make([]string, len(fields))
	if err != nil {
		return values
	}
	var doc map[string]json.RawMessage
	if json.Unmarshal(data, &doc) != nil {
		return values
	}
	for i, field := range fields {
		var value string
		if json.Unmarshal(doc[field], &value) == nil {
			values[i] = strings.ToLower(strings.TrimSpace(value))
		}
	}
	return values
}
