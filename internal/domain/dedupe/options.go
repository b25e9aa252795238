package dedupe

import "github.com/okian/streakd/pkg/clock"

// Option applies a configuration option to the inMemoryIndex.
type Option func(*inMemoryIndex)

// WithClock sets the calendar collaborator used for the same-day fallback.
// Defaults to the system clock in the local time zone.
func WithClock(clk clock.Clock) Option {
	return func(x *inMemoryIndex) {
		if clk != nil {
			x.clk = clk
		}
	}
}
