package ratelimit

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNopAllowsEverything(t *testing.T) {
	var l Limiter = Nop{}
	for i := 0; i < 100; i++ {
		ok, err := l.Allow(context.Background(), "user-1")
		if err != nil || !ok {
			t.Fatalf("Allow() = %v, %v", ok, err)
		}
	}
}

func TestRedisLimiterKey(t *testing.T) {
	l := NewRedisLimiter(nil, "otp-resend", 5, 15*time.Minute, zap.NewNop())
	if got := l.key("abc"); got != "ratelimit:otp-resend:abc" {
		t.Fatalf("key() = %q", got)
	}
}

func TestNewRedisClientWithoutAddr(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "", "", 0)
	if err != nil || client != nil {
		t.Fatalf("NewRedisClient(\"\") = %v, %v; want nil, nil", client, err)
	}
}
