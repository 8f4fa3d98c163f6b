package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/alimgiray/gitemails/pkg/logger"
	"github.com/sirupsen/logrus"
)

// Lease identifies the token handed out by Acquire. It is passed back to
// Report, Exhaust and Disable so the pool can update the right entry.
type Lease struct {
	index     int
	Value     string
	Anonymous bool
}

// Name returns a masked form of the token that is safe to log
func (l Lease) Name() string {
	if l.Anonymous {
		return "anonymous"
	}
	return Mask(l.Value)
}

// TokenStatus is a point-in-time view of one pool entry
type TokenStatus struct {
	Name string `json:"name"`
	Status
}

type entry struct {
	value     string
	anonymous bool
	status    Status
}

// Pool rotates requests across a fixed list of tokens. It is safe for
// concurrent use.
type Pool struct {
	mu      sync.Mutex
	entries []*entry
	next    int
	clock   Clock
	wait    bool
	log     *logrus.Entry
}

// Option configures a Pool
type Option func(*Pool)

// WithClock replaces the system clock
func WithClock(clock Clock) Option {
	return func(p *Pool) {
		p.clock = clock
	}
}

// WithoutWait makes Acquire fail with a RateLimitError instead of blocking
// until the earliest reset when every token is exhausted.
func WithoutWait() Option {
	return func(p *Pool) {
		p.wait = false
	}
}

// WithLogger sets the log entry used for rotation events
func WithLogger(log *logrus.Entry) Option {
	return func(p *Pool) {
		p.log = log
	}
}

// New creates a pool over the given tokens. With no tokens the pool holds a
// single anonymous entry so unauthenticated quota is tracked the same way.
func New(values []string, opts ...Option) *Pool {
	p := &Pool{
		clock: RealClock{},
		wait:  true,
		log:   logger.WithField("component", "token_pool"),
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, v := range values {
		p.entries = append(p.entries, &entry{value: v, status: NewStatus()})
	}
	if len(p.entries) == 0 {
		p.entries = append(p.entries, &entry{anonymous: true, status: NewStatus()})
	}
	return p
}

// Size returns the number of configured entries
func (p *Pool) Size() int {
	return len(p.entries)
}

// Anonymous reports whether the pool runs unauthenticated
func (p *Pool) Anonymous() bool {
	return len(p.entries) == 1 && p.entries[0].anonymous
}

// Acquire returns the next usable token in round-robin order. When every
// token is exhausted it blocks until the earliest reset time.
func (p *Pool) Acquire(ctx context.Context) (Lease, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Lease{}, err
		}

		p.mu.Lock()
		now := p.clock.Now()
		if lease, ok := p.pickLocked(now); ok {
			p.mu.Unlock()
			return lease, nil
		}

		resetAt, ok := p.earliestResetLocked()
		p.mu.Unlock()
		if !ok {
			return Lease{}, ErrAllTokensDisabled
		}
		if !p.wait {
			return Lease{}, &RateLimitError{ResetAt: resetAt}
		}

		wait := resetAt.Sub(now)
		if wait < 0 {
			wait = 0
		}
		p.log.WithFields(logrus.Fields{
			"reset_at": resetAt.Format(time.RFC3339),
			"wait":     wait.String(),
		}).Warn("All tokens exhausted, waiting for rate limit reset")

		if err := p.clock.Sleep(ctx, wait); err != nil {
			return Lease{}, err
		}
	}
}

func (p *Pool) pickLocked(now time.Time) (Lease, bool) {
	n := len(p.entries)
	for i := 0; i < n; i++ {
		idx := (p.next + i) % n
		e := p.entries[idx]
		e.status = e.status.Refresh(now)
		if e.status.State != StateActive {
			continue
		}
		p.next = (idx + 1) % n
		return Lease{index: idx, Value: e.value, Anonymous: e.anonymous}, true
	}
	return Lease{}, false
}

func (p *Pool) earliestResetLocked() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, e := range p.entries {
		if e.status.State != StateExhausted {
			continue
		}
		if !found || e.status.ResetAt.Before(earliest) {
			earliest = e.status.ResetAt
			found = true
		}
	}
	return earliest, found
}

// Report records the quota GitHub returned for the leased token
func (p *Pool) Report(lease Lease, remaining, limit int, resetAt time.Time) {
	p.update(lease, func(s Status) Status {
		return s.Report(remaining, limit, resetAt)
	})
}

// Exhaust marks the leased token as rate limited until resetAt
func (p *Pool) Exhaust(lease Lease, resetAt time.Time) {
	p.update(lease, func(s Status) Status {
		return s.Exhaust(resetAt)
	})
	p.log.WithFields(logrus.Fields{
		"token":    lease.Name(),
		"reset_at": resetAt.Format(time.RFC3339),
	}).Info("Rate limit exceeded, switching token")
}

// Disable permanently removes the leased token from rotation
func (p *Pool) Disable(lease Lease) {
	p.update(lease, Status.Disable)
	p.log.WithField("token", lease.Name()).Warn("Token rejected, disabling it for this run")
}

func (p *Pool) update(lease Lease, transition func(Status) Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if lease.index < 0 || lease.index >= len(p.entries) {
		return
	}
	e := p.entries[lease.index]
	e.status = transition(e.status)
}

// Live returns the number of tokens that can serve a request right now
func (p *Pool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.clock.Now()
	live := 0
	for _, e := range p.entries {
		if e.status.Usable(now) {
			live++
		}
	}
	return live
}

// Snapshot returns the status of every entry in configuration order
func (p *Pool) Snapshot() []TokenStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.clock.Now()
	out := make([]TokenStatus, 0, len(p.entries))
	for i, e := range p.entries {
		lease := Lease{index: i, Value: e.value, Anonymous: e.anonymous}
		out = append(out, TokenStatus{Name: lease.Name(), Status: e.status.Refresh(now)})
	}
	return out
}

// Mask hides all but the first four characters of a token
func Mask(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return token[:4] + "****"
}
