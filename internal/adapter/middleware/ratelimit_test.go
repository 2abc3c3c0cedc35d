package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestIPRateLimiter_BurstThenRefill(t *testing.T) {
	l := NewIPRateLimiter(1, 2)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst of 2 should pass")
	}
	if l.Allow("a") {
		t.Fatal("third request in the same instant should be limited")
	}
	if !l.Allow("b") {
		t.Fatal("other keys have their own bucket")
	}
	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Fatal("one token should refill after a second")
	}
}

func TestIPRateLimiter_SweepsIdle(t *testing.T) {
	l := NewIPRateLimiter(1, 1)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("a")
	l.Allow("b")
	now = now.Add(visitorIdleTTL + time.Minute)
	l.Allow("c")
	if got := l.size(); got != 1 {
		t.Fatalf("visitors after sweep = %d, want 1", got)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(RateLimit(NewIPRateLimiter(0.001, 1), nil))
	e.POST("/v1/applications/status", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	do := func(method, ip string) int {
		req := httptest.NewRequest(method, "/v1/applications/status", nil)
		req.Header.Set(echo.HeaderXRealIP, ip)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do(http.MethodPost, "10.0.0.1"); code != http.StatusOK {
		t.Fatalf("first = %d", code)
	}
	if code := do(http.MethodPost, "10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("second = %d, want 429", code)
	}
	if code := do(http.MethodPost, "10.0.0.2"); code != http.StatusOK {
		t.Fatalf("other ip = %d", code)
	}
	if code := do(http.MethodOptions, "10.0.0.1"); code == http.StatusTooManyRequests {
		t.Fatal("preflight must not be limited")
	}
}
