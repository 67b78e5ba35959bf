package middleware

import (
	"testing"

	"github.com/gocacheproxy/proxy/internal/config"
)

func TestTokenBucketTryConsume(t *testing.T) {
	tb := NewTokenBucket(2, 1)

	if !tb.TryConsume(1) {
		t.Fatal("first consume should succeed")
	}
	if !tb.TryConsume(1) {
		t.Fatal("second consume should succeed (capacity 2)")
	}
	if tb.TryConsume(1) {
		t.Fatal("third consume should fail, bucket exhausted")
	}
}

func TestRateLimiterAllowPerClientIP(t *testing.T) {
	rl := NewRateLimiter(config.AdmissionConfig{Capacity: 1, RefillRate: 1})

	if !rl.Allow("10.0.0.1") {
		t.Fatal("first connection from 10.0.0.1 should be allowed")
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("second immediate connection from 10.0.0.1 should be denied")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("a different client IP should have its own bucket")
	}
}
