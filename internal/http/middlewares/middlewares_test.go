package middlewares

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dropDatabas3/triplog/internal/rate"
	"github.com/dropDatabas3/triplog/internal/session"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body: %v (%s)", err, rec.Body.String())
	}
	return body.Code
}

func TestRequireSession(t *testing.T) {
	issuer, err := session.NewIssuer("triplog", "0123456789abcdef0123456789abcdef", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer err: %v", err)
	}

	var got *session.Claims
	h := RequireSession(issuer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// Sin token.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}

	// Token basura.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", rec.Code)
	}

	// Token válido: los claims llegan al handler.
	tok, _, err := issuer.Sign(session.Claims{UserID: "u1", Email: "a@b.c", IsAdmin: true})
	if err != nil {
		t.Fatalf("Sign err: %v", err)
	}
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", rec.Code)
	}
	if got == nil || got.UserID != "u1" || !got.IsAdmin {
		t.Fatalf("claims not propagated: %+v", got)
	}
}

func TestRequireAdmin(t *testing.T) {
	h := RequireAdmin()(okHandler())

	// Sesión no-admin: 403.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), &session.Claims{UserID: "u1"}))
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin: status = %d, want 403", rec.Code)
	}

	// Admin pasa.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), &session.Claims{UserID: "u1", IsAdmin: true}))
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: status = %d, want 200", rec.Code)
	}

	// Sin claims en el contexto: 401, nunca panic.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no claims: status = %d, want 401", rec.Code)
	}
}

func TestWithRateLimit_DeniesAndSetsHeaders(t *testing.T) {
	limiter := rate.NewMemoryLimiter(2, time.Minute)
	defer limiter.Stop()

	h := WithRateLimit(RateLimitConfig{Limiter: limiter})(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "9.9.9.9:1234"
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("hit %d: status = %d, want 200", i+1, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Remaining") == "" {
			t.Fatal("allowed response should carry X-RateLimit-Remaining")
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "9.9.9.9:1234"
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("denied response should carry Retry-After")
	}
	if code := errCode(t, rec); code != "RATE_LIMITED" {
		t.Fatalf("error code = %s", code)
	}

	// Otra IP no comparte la cuenta.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "8.8.8.8:1234"
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("other IP: status = %d, want 200", rec.Code)
	}
}

func TestWithRateLimit_TrustProxyFailsClosed(t *testing.T) {
	limiter := rate.NewMemoryLimiter(10, time.Minute)
	defer limiter.Stop()

	h := WithRateLimit(RateLimitConfig{
		Limiter: limiter,
		IP:      ClientIPConfig{TrustProxy: true},
	})(okHandler())

	// Detrás de proxy pero sin X-Forwarded-For: rechazo, nunca fallback.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing XFF: status = %d, want 400", rec.Code)
	}

	// Con el header, el primer hop es la clave.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with XFF: status = %d, want 200", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	if ip := ClientIP(req, ClientIPConfig{}); ip != "192.0.2.1" {
		t.Fatalf("direct: ip = %q", ip)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := ClientIP(req, ClientIPConfig{TrustProxy: true}); ip != "203.0.113.7" {
		t.Fatalf("proxied: ip = %q", ip)
	}

	req.Header.Del("X-Forwarded-For")
	if ip := ClientIP(req, ClientIPConfig{TrustProxy: true}); ip != "" {
		t.Fatalf("missing XFF should yield empty ip, got %q", ip)
	}
}

func TestWithNoStore(t *testing.T) {
	h := WithNoStore()(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q, want no-store", got)
	}
}

func TestWithRecover(t *testing.T) {
	h := WithRecover()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
