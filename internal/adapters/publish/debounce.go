package publish

import (
	"context"
	"sync"
	"time"

	"github.com/okian/streakd/pkg/clock"
	"github.com/okian/streakd/pkg/metrics"
)

// Default debounce configuration constants.
const (
	defaultCoolDown = 10 * time.Second
)

// Debouncer wraps a Publisher with a per-game cool-down so a burst of
// events for the same game produces one outbound call. Best effort only; a
// dropped summary is not an error.
type Debouncer struct {
	next     Publisher
	clk      clock.Clock
	coolDown time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// DebounceOption applies a configuration option to the Debouncer.
type DebounceOption func(*Debouncer)

// WithCoolDown sets the per-game cool-down window.
func WithCoolDown(d time.Duration) DebounceOption {
	return func(b *Debouncer) {
		if d > 0 {
			b.coolDown = d
		}
	}
}

// WithDebounceClock sets the clock used for cool-down bookkeeping.
func WithDebounceClock(clk clock.Clock) DebounceOption {
	return func(b *Debouncer) {
		if clk != nil {
			b.clk = clk
		}
	}
}

// NewDebouncer wraps next with a per-game cool-down.
func NewDebouncer(next Publisher, opts ...DebounceOption) *Debouncer {
	b := &Debouncer{
		next:     next,
		clk:      clock.NewSystem(nil),
		coolDown: defaultCoolDown,
		lastSent: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish forwards the summary unless the game is inside its cool-down.
func (b *Debouncer) Publish(ctx context.Context, s Summary) error {
	now := b.clk.Now()

	b.mu.Lock()
	last, seen := b.lastSent[s.GameID]
	if seen && now.Sub(last) < b.coolDown {
		b.mu.Unlock()
		metrics.RecordPublishDebounced()
		return nil
	}
	b.lastSent[s.GameID] = now
	b.mu.Unlock()

	if err := b.next.Publish(ctx, s); err != nil {
		metrics.RecordPublishError()
		return err
	}
	metrics.RecordPublishSent()
	return nil
}
