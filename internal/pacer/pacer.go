// package pacer spaces remote calls according to the rate budget AniList reports.
//
// Every remote call waits for a slot first. Slots are handed out one at a time
// and are separated by at least the current interval, derived from the budget as
//
//	60000ms / (requests_per_minute - safety_margin) + 1ms
//
// Budget updates may arrive from any goroutine and only affect slots that have
// not been handed out yet.
package pacer

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/alx/internal/metrics"
	"github.com/desertthunder/alx/internal/shared"
)

const (
	DefaultSafetyMargin = 60
	DefaultInterval     = 2 * time.Second
)

// Budget is the current rate budget and the interval derived from it.
//
// Reported is false until the service has announced a budget.
type Budget struct {
	RequestsPerMinute int
	Interval          time.Duration
	Reported          bool
}

// Options configures a [Pacer].
type Options struct {
	SafetyMargin    int
	DefaultInterval time.Duration
	Logger          *log.Logger
}

// Pacer hands out call slots at the current budget's interval.
type Pacer struct {
	slot    chan struct{}
	limiter *rate.Limiter
	logger  *log.Logger
	margin  int

	mu      sync.Mutex
	budget  Budget
	last    time.Time
	observe func(released time.Time)
}

// New creates a pacer that uses opts.DefaultInterval until the first [Pacer.Update].
func New(opts Options) *Pacer {
	if opts.DefaultInterval <= 0 {
		opts.DefaultInterval = DefaultInterval
	}
	if opts.SafetyMargin < 0 {
		opts.SafetyMargin = 0
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}

	metrics.SetBudget(0, opts.DefaultInterval)
	return &Pacer{
		slot:    make(chan struct{}, 1),
		limiter: rate.NewLimiter(rate.Every(opts.DefaultInterval), 1),
		logger:  opts.Logger,
		margin:  opts.SafetyMargin,
		budget:  Budget{Interval: opts.DefaultInterval},
	}
}

// Interval converts a requests-per-minute budget into the minimum spacing between calls.
//
// When the margin would leave less than one request per minute, half the budget
// (at least one request) is used instead. ok is false for a non-positive budget.
func Interval(rpm, margin int) (interval time.Duration, ok bool) {
	if rpm <= 0 {
		return 0, false
	}
	effective := rpm - margin
	if effective < 1 {
		effective = max(rpm/2, 1)
	}
	return time.Minute/time.Duration(effective) + time.Millisecond, true
}

// Wait blocks until the next slot is released or ctx is done.
//
// Callers are served one at a time; a slot is released no sooner than the
// interval after the moment the previous one was actually released, so a late
// timer never shortens the following gap.
func (p *Pacer) Wait(ctx context.Context) error {
	started := time.Now()

	select {
	case p.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.slot }()

	p.mu.Lock()
	now := time.Now()
	delay := p.limiter.ReserveN(now, 1).DelayFrom(now)
	if !p.last.IsZero() {
		// rate.Limiter converts through float seconds and can land a few ns early.
		delay = max(delay, p.last.Add(p.budget.Interval).Sub(now))
	}
	p.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			p.mu.Lock()
			p.anchor(p.last)
			p.mu.Unlock()
			return ctx.Err()
		}
	}

	p.mu.Lock()
	released := time.Now()
	p.last = released
	p.anchor(released)
	observe := p.observe
	p.mu.Unlock()

	if observe != nil {
		observe(released)
	}
	metrics.ObserveWait(released.Sub(started))
	return nil
}

// anchor rebuilds the limiter so its next token is due one interval after at.
// A zero at leaves a full token. Callers hold p.mu.
func (p *Pacer) anchor(at time.Time) {
	p.limiter = rate.NewLimiter(rate.Every(p.budget.Interval), 1)
	if !at.IsZero() {
		p.limiter.ReserveN(at, 1)
	}
}

// Update applies a new requests-per-minute budget. Non-positive values are ignored.
//
// The new interval is measured from the most recently released slot. A waiter
// already holding a timer keeps it, so a faster budget never moves a promised
// slot earlier.
func (p *Pacer) Update(rpm int) {
	interval, ok := Interval(rpm, p.margin)
	if !ok {
		p.logger.Warn("ignoring invalid rate budget", "rpm", rpm)
		return
	}

	p.mu.Lock()
	if p.budget.Reported && p.budget.RequestsPerMinute == rpm {
		p.mu.Unlock()
		return
	}
	p.budget = Budget{RequestsPerMinute: rpm, Interval: interval, Reported: true}
	p.anchor(p.last)
	p.mu.Unlock()

	metrics.SetBudget(rpm, interval)
	p.logger.Debug("rate budget updated", "rpm", rpm, "interval", interval)
}

// Budget returns a snapshot of the current budget.
func (p *Pacer) Budget() Budget {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.budget
}
