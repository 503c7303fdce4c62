package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"internportal/internal/access"
	"internportal/internal/common"
	"internportal/internal/domain/account"
	"internportal/internal/observability"
)

type fakeValidator struct {
	subjects map[string]access.Subject
}

func (f fakeValidator) ValidateToken(token string) (access.Subject, error) {
	subject, ok := f.subjects[token]
	if !ok {
		return access.Subject{}, common.NewError(common.CodeInvalidToken, "invalid or expired token", nil)
	}
	return subject, nil
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body.Error.Kind
}

func TestAuthenticate(t *testing.T) {
	student := access.Subject{AccountID: "stu-1", Role: account.RoleStudent}
	mw := NewAuthMiddleware(fakeValidator{subjects: map[string]access.Subject{"good": student}})
	var seen access.Subject
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		header string
		status int
		kind   string
	}{
		{"", http.StatusUnauthorized, "unauthorized"},
		{"Basic abc", http.StatusUnauthorized, "unauthorized"},
		{"Bearer bad", http.StatusUnauthorized, "invalid_token"},
		{"bearer good", http.StatusNoContent, ""},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%q: expected %d, got %d", tc.header, tc.status, rec.Code)
		}
		if tc.kind != "" && errorKind(t, rec) != tc.kind {
			t.Fatalf("%q: expected kind %s", tc.header, tc.kind)
		}
	}
	if seen != student {
		t.Fatalf("subject not propagated: %+v", seen)
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(account.RoleAdmin, account.RoleSuperAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for role, want := range map[account.Role]int{
		account.RoleStudent:    http.StatusForbidden,
		account.RoleAdmin:      http.StatusOK,
		account.RoleSuperAdmin: http.StatusOK,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithSubject(req.Context(), access.Subject{AccountID: "x", Role: role}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", role, want, rec.Code)
		}
	}
}

func TestRateLimiterWindow(t *testing.T) {
	limiter := NewRateLimiter()
	now := time.Unix(1000, 0)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !limiter.Allow("k", 3, time.Minute) {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if limiter.Allow("k", 3, time.Minute) {
		t.Fatal("fourth request should be limited")
	}
	if !limiter.Allow("other", 3, time.Minute) {
		t.Fatal("keys are independent")
	}
	now = now.Add(2 * time.Minute)
	if !limiter.Allow("k", 3, time.Minute) {
		t.Fatal("new window should pass")
	}
	if _, ok := limiter.buckets["other"]; ok {
		t.Fatal("expired bucket should be swept")
	}
}

func TestRateLimitMiddlewareRespondsTooManyRequests(t *testing.T) {
	handler := RateLimit(NewRateLimiter(), func(*http.Request) string { return "same" }, 1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/", nil))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/", nil))
	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 200 then 429, got %d then %d", first.Code, second.Code)
	}
	if errorKind(t, second) != string(common.CodeRateLimited) {
		t.Fatal("expected rate_limited kind")
	}
}

func TestRedisLimiterFallsBackWhenUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()
	limiter := NewRedisLimiter(client, "test")
	if !limiter.Allow("login:1.2.3.4", 1, time.Minute) {
		t.Fatal("first request should pass through the fallback")
	}
	if limiter.Allow("login:1.2.3.4", 1, time.Minute) {
		t.Fatal("fallback limiter should still enforce the limit")
	}
}

func TestClientIPIgnoresForwardedForUnlessTrusted(t *testing.T) {
	var seen string
	record := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = ClientIP(r) })
	newRequest := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		return req
	}

	ProxyHeaders(false)(record).ServeHTTP(httptest.NewRecorder(), newRequest())
	if seen != "10.0.0.1" {
		t.Fatalf("untrusted header must be ignored, got %q", seen)
	}
	ProxyHeaders(true)(record).ServeHTTP(httptest.NewRecorder(), newRequest())
	if seen != "203.0.113.9" {
		t.Fatalf("expected first forwarded hop behind a trusted proxy, got %q", seen)
	}

	spoofed := newRequest()
	spoofed.Header.Set("X-Forwarded-For", "not-an-ip")
	ProxyHeaders(true)(record).ServeHTTP(httptest.NewRecorder(), spoofed)
	if seen != "10.0.0.1" {
		t.Fatalf("malformed hop should keep the peer address, got %q", seen)
	}
}

func TestLoginLimitIgnoresRotatedForwardedFor(t *testing.T) {
	handler := RateLimit(NewRateLimiter(), ByClient("login", "email"), 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "alice@x.edu") {
			t.Errorf("handler should still see the body, got %q", body)
		}
		w.WriteHeader(http.StatusOK)
	}))
	codes := make([]int, 0, 3)
	for i, hop := range []string{"198.51.100.1", "198.51.100.2", "198.51.100.3"} {
		req := httptest.NewRequest(http.MethodPost, "/accounts/student/login", strings.NewReader(`{"email":" Alice@X.edu ","password":"x"}`))
		req.RemoteAddr = "10.0.0.1:" + strconv.Itoa(4000+i)
		req.Header.Set("X-Forwarded-For", hop)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("expected 200 200 429, got %v", codes)
	}
}

func TestByUserKeysOnAccountAndBodyField(t *testing.T) {
	keyFn := ByUser("apply", "internship_id")
	req := httptest.NewRequest(http.MethodPost, "/applications", strings.NewReader(`{"internship_id":"ABC"}`))
	req = req.WithContext(WithSubject(req.Context(), access.Subject{AccountID: "11111111-1111-1111-1111-111111111111", Role: account.RoleStudent}))
	if got := keyFn(req); got != "apply:11111111-1111-1111-1111-111111111111:abc" {
		t.Fatalf("unexpected key %q", got)
	}
	body, _ := io.ReadAll(req.Body)
	if string(body) != `{"internship_id":"ABC"}` {
		t.Fatalf("body should be restored, got %q", body)
	}

	anonymous := httptest.NewRequest(http.MethodPost, "/applications", strings.NewReader(`not json`))
	anonymous.RemoteAddr = "10.0.0.7:1"
	if got := keyFn(anonymous); got != "apply:ip:10.0.0.7:" {
		t.Fatalf("unexpected anonymous key %q", got)
	}
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"http://app.test"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	preflight := httptest.NewRequest(http.MethodOptions, "/internships", nil)
	preflight.Header.Set("Origin", "http://app.test")
	preflight.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, preflight)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://app.test" {
		t.Fatalf("unexpected preflight response: %d %v", rec.Code, rec.Header())
	}

	foreign := httptest.NewRequest(http.MethodGet, "/internships", nil)
	foreign.Header.Set("Origin", "http://evil.test")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, foreign)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("foreign origin must not be allowed")
	}

	listed := httptest.NewRequest(http.MethodGet, "/internships", nil)
	listed.Header.Set("Origin", "http://app.test")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, listed)
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("listed origin should be allowed credentials")
	}
}

func TestCORSWildcardWithholdsCredentials(t *testing.T) {
	handler := CORS([]string{"*", "http://app.test"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/internships", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://evil.test" {
		t.Fatalf("wildcard should allow any origin, got %v", rec.Header())
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("wildcard origin must not get credentials, got %q", got)
	}

	req.Header.Set("Origin", "http://app.test")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("explicitly listed origin keeps credentials")
	}
}

func TestChainRecoverAndRequestID(t *testing.T) {
	logger := observability.NewDiscardLogger()
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), RequestID, mark("a"), mark("b"), Logging(logger), Recover(logger))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Join(order, ",") != "a,b" {
		t.Fatalf("unexpected order: %v", order)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected request id header")
	}
}
