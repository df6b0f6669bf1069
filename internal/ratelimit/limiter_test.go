package ratelimit

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/shelfwise/shelfwise/internal/cache"
)

func newTestLimiter(t *testing.T, maxCalls int64, window time.Duration) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	c := cache.New(rdb, cache.DefaultDeadline, nil)
	return NewLimiter(c, maxCalls, window, nil), mr
}

func TestAdmit_ExactlyCeilingSucceeds(t *testing.T) {
	l, _ := newTestLimiter(t, 4, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		if !l.Admit(ctx, "user-1") {
			t.Fatalf("call %d should be admitted", i)
		}
	}
	for i := 5; i <= 7; i++ {
		if l.Admit(ctx, "user-1") {
			t.Errorf("call %d should be rejected", i)
		}
	}
}

func TestAdmit_WindowExpiryResetsBudget(t *testing.T) {
	l, mr := newTestLimiter(t, 4, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		l.Admit(ctx, "user-1")
	}
	if l.Admit(ctx, "user-1") {
		t.Fatal("expected rejection before window expiry")
	}

	mr.FastForward(61 * time.Second)

	if !l.Admit(ctx, "user-1") {
		t.Error("expected admission after window expiry")
	}
}

// A counter stranded without a TTL must not lock the principal out forever:
// the next increment re-arms the window and the budget recovers.
func TestAdmit_RecoversFromCounterWithoutTTL(t *testing.T) {
	l, mr := newTestLimiter(t, 4, time.Minute)
	ctx := context.Background()

	if err := mr.Set("rate:user-1", "5"); err != nil {
		t.Fatal(err)
	}

	if l.Admit(ctx, "user-1") {
		t.Fatal("expected rejection while the stranded counter is over the ceiling")
	}

	mr.FastForward(10 * time.Minute)

	if !l.Admit(ctx, "user-1") {
		t.Error("expected admission once the re-armed window expired")
	}
}

func TestAdmit_PrincipalsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	l.Admit(ctx, "user-1")
	l.Admit(ctx, "user-1")
	if l.Admit(ctx, "user-1") {
		t.Fatal("user-1 should be over budget")
	}

	if !l.Admit(ctx, "user-2") {
		t.Error("user-2 should be unaffected by user-1's budget")
	}
}

func TestAdmit_FailsOpenWhenStoreUnavailable(t *testing.T) {
	c := cache.New(nil, 0, nil)
	l := NewLimiter(c, 4, time.Minute, nil)

	for i := 0; i < 20; i++ {
		if !l.Admit(context.Background(), "user-1") {
			t.Fatalf("expected fail-open admit on call %d", i)
		}
	}
}

func TestAdmit_FailsOpenWhenStoreUnresponsive(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		select {}
	}()

	rdb := redis.NewClient(&redis.Options{Addr: ln.Addr().String()})
	defer rdb.Close()
	c := cache.New(rdb, 100*time.Millisecond, nil)
	l := NewLimiter(c, 4, time.Minute, nil)

	start := time.Now()
	if !l.Admit(context.Background(), "user-1") {
		t.Error("expected fail-open admit from unresponsive store")
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("degraded admit took %v, want ~100ms", elapsed)
	}
}

func TestNewLimiter_Defaults(t *testing.T) {
	l := NewLimiter(cache.New(nil, 0, nil), 0, 0, nil)
	if l.maxCalls != DefaultMaxCalls {
		t.Errorf("maxCalls = %d, want %d", l.maxCalls, DefaultMaxCalls)
	}
	if l.window != DefaultWindow {
		t.Errorf("window = %v, want %v", l.window, DefaultWindow)
	}
}
