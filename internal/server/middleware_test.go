package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"netboxdeploy/internal/render"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func TestRateLimitMiddleware(t *testing.T) {
	handler := NewRateLimitMiddleware(1, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		remoteAddr string
		wantStatus int
	}{
		{"first request", "192.0.2.1:40000", http.StatusOK},
		{"same host new port", "192.0.2.1:40001", http.StatusTooManyRequests},
		{"other host", "192.0.2.2:40000", http.StatusOK},
		{"bare address", "192.0.2.3", http.StatusOK},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = tt.remoteAddr
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		if w.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.name, w.Code, tt.wantStatus)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remoteAddr string
		want       string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"192.0.2.1", "192.0.2.1"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = tt.remoteAddr
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remoteAddr, got, tt.want)
		}
	}
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(rate.Limit(1), 1)
	rl.now = func() time.Time { return now }

	rl.GetLimiter("192.0.2.1")
	rl.GetLimiter("192.0.2.2")
	if rl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", rl.Len())
	}

	now = now.Add(LimiterIdleTTL / 2)
	rl.GetLimiter("192.0.2.2")

	now = now.Add(LimiterIdleTTL/2 + time.Second)
	rl.GetLimiter("192.0.2.3")

	if rl.Len() != 2 {
		t.Errorf("Len() = %d, want 2 after evicting the idle client", rl.Len())
	}
	if _, ok := rl.visitors["192.0.2.1"]; ok {
		t.Error("idle client 192.0.2.1 should have been evicted")
	}
}

func TestRateLimit_IgnoresForwardedFor(t *testing.T) {
	srv := NewServer(render.New(), nil, zap.NewNop(), false)
	router := srv.Router()

	codes := make([]int, 0, GlobalRateLimit+1)
	for i := 0; i <= GlobalRateLimit; i++ {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "192.0.2.10:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i%250))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	if codes[len(codes)-1] != http.StatusTooManyRequests {
		t.Errorf("request %d status = %d, want %d: forwarded addresses must not reset the limit",
			len(codes), codes[len(codes)-1], http.StatusTooManyRequests)
	}
}
