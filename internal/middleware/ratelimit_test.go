package middleware

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sylvia-tgbot-go/internal/config"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func limiterConfig(enabled bool, rpm, burst int) *config.Config {
	return &config.Config{
		RateLimit: config.RateLimitConfig{
			Enabled:           enabled,
			RequestsPerMinute: rpm,
			Burst:             burst,
		},
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(false, 0, 0), quietLogger())

	for i := 0; i < 100; i++ {
		if !rl.Allow("u1") {
			t.Fatal("disabled limiter must always allow")
		}
	}
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(true, 60, 2), quietLogger())

	if !rl.Allow("u1") || !rl.Allow("u1") {
		t.Fatal("burst requests should be allowed")
	}
	if rl.Allow("u1") {
		t.Error("request beyond burst should be denied")
	}
}

func TestRateLimiterPerUser(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(true, 60, 1), quietLogger())

	if !rl.Allow("u1") {
		t.Fatal("first request for u1 denied")
	}
	if !rl.Allow("u2") {
		t.Error("u2 should have an independent budget")
	}
}

func TestRateLimiterReset(t *testing.T) {
	rl := NewRateLimiter(limiterConfig(true, 60, 1), quietLogger())

	rl.Allow("u1")
	if rl.Allow("u1") {
		t.Fatal("second request should be denied before reset")
	}

	rl.Reset("u1")
	if !rl.Allow("u1") {
		t.Error("request after reset should be allowed")
	}
}
