package chi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func TestRateLimitMiddleware_NilLimiter(t *testing.T) {
	handler := RateLimitMiddleware(nil)(okHandler())

	for range 5 {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("POST", "/api/chat", http.NoBody))
		if rr.Code != http.StatusOK {
			t.Fatalf("got %d, want 200", rr.Code)
		}
	}
}

func TestRateLimitMiddleware_RejectsOverBurst(t *testing.T) {
	handler := RateLimitMiddleware(rate.NewLimiter(rate.Limit(0.5), 2))(okHandler())

	codes := make([]int, 3)
	for i := range codes {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("POST", "/api/chat", http.NoBody))
		codes[i] = rr.Code
		if rr.Code == http.StatusTooManyRequests && rr.Header().Get("Retry-After") != "2" {
			t.Errorf("Retry-After = %q, want 2", rr.Header().Get("Retry-After"))
		}
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("unexpected codes %v", codes)
	}
}

func TestRateLimitMiddleware_ExemptPaths(t *testing.T) {
	handler := RateLimitMiddleware(rate.NewLimiter(rate.Limit(0.001), 1))(okHandler())

	for range 3 {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/api/health", http.NoBody))
		if rr.Code != http.StatusOK {
			t.Fatalf("health must not be limited, got %d", rr.Code)
		}
	}
}
