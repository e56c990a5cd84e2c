package worker

import (
	"context"
	"testing"
	"time"

	"github.com/ppiankov/papercheck/internal/model"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_FromConfig(t *testing.T) {
	limiter := NewLimiterFromConfig(model.RateLimitConfig{RequestsPerSecond: 3, BurstSize: 2})
	if limiter.defaultBurst != 2 {
		t.Errorf("expected burst 2, got %d", limiter.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://api.openalex.org/works"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	if err := limiter.Wait(ctx, "https://api.semanticscholar.org/graph/v1"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_NilNeverBlocks(t *testing.T) {
	var limiter *Limiter
	if err := limiter.Wait(context.Background(), "https://example.com"); err != nil {
		t.Errorf("nil limiter returned error: %v", err)
	}
	if !limiter.Allow("https://example.com") {
		t.Error("nil limiter should always allow")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx, "https://example.com"); err == nil {
		t.Error("nil limiter should still report a cancelled context")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 10; i++ {
		if !limiter.Allow("https://example.com") {
			t.Fatalf("request %d should be allowed with limiting disabled", i)
		}
	}
}

func TestLimiter_WaitWithDelay(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	start := time.Now()
	err := limiter.WaitWithDelay(ctx, "http://example.com", 50*time.Millisecond)
	if err != nil {
		t.Fatalf("WaitWithDelay failed: %v", err)
	}

	duration := time.Since(start)
	if duration < 50*time.Millisecond {
		t.Errorf("expected delay >= 50ms, got %v", duration)
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()
	url := "https://factchecktools.googleapis.com/v1alpha1/claims:search"

	if err := limiter.Wait(ctx, url); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst of 1 is consumed
	if limiter.Allow(url) {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	if !limiter.Allow("https://api.openalex.org") {
		t.Errorf("expected allow for other host")
	}
}

func TestLimiter_SetHostRate(t *testing.T) {
	limiter := NewLimiter(10, 10)
	host := "slow.example.org"

	limiter.SetHostRate(host, 0.1, 1)

	if !limiter.Allow("https://" + host) {
		t.Errorf("first request should pass")
	}
	if limiter.Allow("https://" + host) {
		t.Errorf("second request should fail")
	}
	if !limiter.Allow("https://fast.example.org") {
		t.Errorf("other host should pass")
	}
}

func TestExtractHost(t *testing.T) {
	host, err := extractHost("https://api.openalex.org/works?search=x")
	if err != nil {
		t.Fatalf("extractHost failed: %v", err)
	}
	if host != "api.openalex.org" {
		t.Errorf("expected api.openalex.org, got %s", host)
	}

	_, err = extractHost("::invalid")
	if err == nil {
		t.Errorf("expected error for invalid URL")
	}
}
