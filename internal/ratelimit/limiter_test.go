package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestTickEnforcesInterval(t *testing.T) {
	l := New(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	if err := l.Tick(ctx); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	if err := l.Tick(ctx); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Fatalf("expected second tick to wait for the interval, elapsed %v", elapsed)
	}
}

func TestFirstTickDoesNotWait(t *testing.T) {
	l := New(time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := l.Tick(ctx); err != nil {
		t.Fatalf("first tick should be immediate: %v", err)
	}
}

func TestReserveServesWaitersInArrivalOrder(t *testing.T) {
	l := New(time.Millisecond)

	// Hold the turn so every goroutine queues up behind it.
	<-l.turn

	const waiters = 6
	grants := make([]time.Time, waiters)
	var wg sync.WaitGroup
	for i := range waiters {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			res, err := l.Reserve(context.Background())
			if err != nil {
				t.Errorf("waiter %d: %v", idx, err)
				return
			}
			grants[idx] = res.at
		}(i)
		time.Sleep(10 * time.Millisecond)
	}
	l.turn <- struct{}{}
	wg.Wait()

	for i := 1; i < waiters; i++ {
		if !grants[i].After(grants[i-1]) {
			t.Fatalf("waiter %d granted at %v, not after waiter %d at %v", i, grants[i], i-1, grants[i-1])
		}
	}
}

func TestCancelledWaitDoesNotConsumeSlot(t *testing.T) {
	l := New(time.Hour)
	if err := l.Tick(context.Background()); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	l.mu.Lock()
	before := l.last
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Tick(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	l.mu.Lock()
	after := l.last
	l.mu.Unlock()
	if !after.Equal(before) {
		t.Fatalf("cancelled wait moved the slot baseline from %v to %v", before, after)
	}
}

func TestTickWithCancelledContextReturnsImmediately(t *testing.T) {
	l := New(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Tick(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReservationCancelRestoresSlot(t *testing.T) {
	l := New(time.Hour)
	res, err := l.Reserve(context.Background())
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	res.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := l.Tick(ctx); err != nil {
		t.Fatalf("expected slot to be available after cancel, got %v", err)
	}
}

func TestReservationCancelWakesSleepingWaiter(t *testing.T) {
	l := New(time.Hour)
	first, err := l.Reserve(context.Background())
	if err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- l.Tick(ctx)
	}()

	// Give the waiter time to start sleeping on the hour-long deadline.
	time.Sleep(50 * time.Millisecond)
	first.Cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("waiter was not granted the refunded slot: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter kept sleeping after the slot was refunded")
	}
}

func TestReservationCancelIgnoredAfterLaterGrant(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	l := New(time.Second, WithClock(now))

	first, err := l.Reserve(context.Background())
	if err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	second, err := l.Reserve(context.Background())
	if err != nil {
		t.Fatalf("second reserve: %v", err)
	}
	first.Cancel()

	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.last.Equal(second.at) {
		t.Fatalf("stale cancel rewound the limiter: last=%v want %v", l.last, second.at)
	}
}
