// Package publish defines the outbound notification/social collaborator.
//
// Publishing is best effort: failures are logged and counted, never
// surfaced to the user, and never block the engine.
package publish

import (
	"context"
	"time"

	"github.com/okian/streakd/pkg/logger"
)

// Summary is the outbound digest of one accepted completion.
type Summary struct {
	GameID        string    `json:"game_id"`
	GameName      string    `json:"game_name"`
	CurrentStreak int       `json:"current_streak"`
	BestStreak    int       `json:"best_streak"`
	Unlocks       []string  `json:"unlocks,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher delivers summaries to the outside world.
type Publisher interface {
	// Publish delivers one summary, honoring ctx for cancellation.
	Publish(ctx context.Context, s Summary) error
}

// LogPublisher implements Publisher by writing the summary to the log.
// It stands in for the real notification/social sink, whose delivery
// mechanics live outside the engine.
type LogPublisher struct {
	log logger.Logger
}

// NewLogPublisher creates a publisher that logs each summary.
func NewLogPublisher(log logger.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish writes the summary to the log.
func (p *LogPublisher) Publish(ctx context.Context, s Summary) error {
	if p.log != nil {
		p.log.Info(ctx, "publishing result summary",
			logger.String("game", s.GameID),
			logger.Int("currentStreak", s.CurrentStreak),
			logger.Int("bestStreak", s.BestStreak),
			logger.Int("unlocks", len(s.Unlocks)),
		)
	}
	return nil
}
