package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSetLimitInterval(t *testing.T) {
	l := New()

	tests := []struct {
		name string
		rph  int
		want time.Duration
	}{
		{"one_per_second", 3600, time.Second},
		{"overpass", 360, 10 * time.Second},
		{"wikipedia", 1800, 2 * time.Second},
		{"high_volume", 7200, 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := l.SetLimit(tt.name, tt.rph); err != nil {
				t.Fatalf("SetLimit: %v", err)
			}
			if got := l.Interval(tt.name); got != tt.want {
				t.Errorf("Interval = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSetLimitRejectsInvalidBudget(t *testing.T) {
	l := New()
	if err := l.SetLimit("bad", 0); err == nil {
		t.Error("expected error for zero budget")
	}
	if err := l.SetLimit("bad", -10); err == nil {
		t.Error("expected error for negative budget")
	}
}

func TestThrottleFirstCallImmediate(t *testing.T) {
	l := New()
	if err := l.SetLimit("src", 36); err != nil { // 100s interval
		t.Fatal(err)
	}

	start := time.Now()
	if err := l.Throttle(context.Background(), "src"); err != nil {
		t.Fatalf("Throttle: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("first call waited %v, expected no wait", elapsed)
	}
}

func TestThrottleEnforcesInterval(t *testing.T) {
	l := New()
	if err := l.SetLimit("src", 36000); err != nil { // 100ms interval
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := l.Throttle(ctx, "src"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := l.Throttle(ctx, "src"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("second call waited only %v, want at least ~100ms", elapsed)
	}
}

func TestThrottleUnknownSourceNoWait(t *testing.T) {
	l := New()
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		if err := l.Throttle(ctx, "unconfigured"); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("unconfigured source waited %v", elapsed)
	}
}

func TestThrottleContextCancellation(t *testing.T) {
	l := New()
	if err := l.SetLimit("slow", 1); err != nil { // 1h interval
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := l.Throttle(ctx, "slow"); err != nil {
		t.Fatal(err)
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- l.Throttle(cancelCtx, "slow")
	}()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("got %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Throttle did not return after cancellation")
	}
}

func TestSnapshot(t *testing.T) {
	l := New()
	if err := l.SetLimit("a", 3600); err != nil {
		t.Fatal(err)
	}
	if err := l.SetLimit("b", 360); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := l.Throttle(ctx, "a"); err != nil {
		t.Fatal(err)
	}

	snap := l.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d sources, want 2", len(snap))
	}
	if snap["a"].Requests != 1 {
		t.Errorf("source a requests = %d, want 1", snap["a"].Requests)
	}
	if snap["a"].RequestsPerHour != 3600 {
		t.Errorf("source a rph = %d, want 3600", snap["a"].RequestsPerHour)
	}
	if snap["b"].Requests != 0 {
		t.Errorf("source b requests = %d, want 0", snap["b"].Requests)
	}
	if snap["a"].LastCall.IsZero() {
		t.Error("source a last call should be recorded")
	}
}

func TestConcurrentThrottle(t *testing.T) {
	l := New()
	if err := l.SetLimit("shared", 3600000); err != nil { // 1ms interval
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Throttle(ctx, "shared"); err != nil {
				t.Errorf("Throttle: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := l.Snapshot()["shared"].Requests; got != 20 {
		t.Errorf("recorded %d requests, want 20", got)
	}
}
