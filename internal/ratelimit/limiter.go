package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultInterval is the AniDB HTTP API cadence of one request every two seconds.
const DefaultInterval = 2 * time.Second

// Limiter enforces a minimum interval between successive slot grants.
type Limiter struct {
	interval time.Duration
	now      func() time.Time

	// turn holds a single token; blocked receivers on a channel are woken in
	// arrival order, which gives FIFO service.
	turn chan struct{}

	mu   sync.Mutex
	last time.Time
	// refunded is closed and replaced whenever Cancel rewinds last, waking a
	// waiter that is sleeping on the old deadline.
	refunded chan struct{}
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source used to compute waits.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a limiter granting at most one slot per interval. A non-positive
// interval disables throttling but keeps FIFO ordering.
func New(interval time.Duration, opts ...Option) *Limiter {
	if interval < 0 {
		interval = 0
	}
	l := &Limiter{
		interval: interval,
		now:      time.Now,
		turn:     make(chan struct{}, 1),
		refunded: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.turn <- struct{}{}
	return l
}

// Interval reports the configured cadence.
func (l *Limiter) Interval() time.Duration {
	if l == nil {
		return 0
	}
	return l.interval
}

// Tick blocks until the next slot is available or ctx is done.
func (l *Limiter) Tick(ctx context.Context) error {
	_, err := l.Reserve(ctx)
	return err
}

// Reserve waits for the next slot like Tick and returns a Reservation that can
// hand the slot back when the guarded request was never sent.
func (l *Limiter) Reserve(ctx context.Context) (*Reservation, error) {
	if l == nil {
		return &Reservation{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.turn:
	}
	defer func() { l.turn <- struct{}{} }()

	if err := l.waitForSlot(ctx); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	res := &Reservation{limiter: l, prev: l.last}
	l.last = l.now()
	res.at = l.last
	return res, nil
}

// waitForSlot sleeps until interval has passed since the last grant. The
// deadline is recomputed when a reservation is cancelled mid-sleep.
func (l *Limiter) waitForSlot(ctx context.Context) error {
	for {
		l.mu.Lock()
		var wait time.Duration
		if !l.last.IsZero() {
			wait = l.last.Add(l.interval).Sub(l.now())
		}
		refunded := l.refunded
		l.mu.Unlock()
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-refunded:
			timer.Stop()
		case <-timer.C:
			return nil
		}
	}
}

// Reservation is a granted slot.
type Reservation struct {
	limiter *Limiter
	prev    time.Time
	at      time.Time
	once    sync.Once
}

// Cancel returns the slot to the limiter if no later caller has been granted
// one since. A caller already waiting in Reserve re-checks its deadline and
// may be granted immediately. Calling Cancel more than once is a no-op.
func (r *Reservation) Cancel() {
	if r == nil || r.limiter == nil {
		return
	}
	r.once.Do(func() {
		l := r.limiter
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.last.Equal(r.at) {
			l.last = r.prev
			close(l.refunded)
			l.refunded = make(chan struct{})
		}
	})
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
