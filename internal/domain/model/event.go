// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/streakd/internal/domain/types"
	"github.com/okian/streakd/pkg/clock"
)

// CompletionEvent is one recorded instance of a user finishing (or failing)
// a daily puzzle. Events are immutable and append-only; deletion happens
// only by explicit user action and triggers a full rebuild.
type CompletionEvent struct {
	ID          string            `json:"id"`
	GameID      string            `json:"game_id"`
	GameName    string            `json:"game_name"`
	OccurredAt  time.Time         `json:"occurred_at"`
	Score       *int              `json:"score,omitempty"`
	MaxAttempts int               `json:"max_attempts"`
	Completed   bool              `json:"completed"`
	Annotations map[string]string `json:"annotations,omitempty"`
	RawText     string            `json:"raw_text"`
}

// NewEventID generates an identifier for events that arrive without one.
func NewEventID() string {
	return uuid.New().String()
}

// Annotation returns the named annotation, or "" when absent.
func (e CompletionEvent) Annotation(key string) string {
	if e.Annotations == nil {
		return ""
	}
	return e.Annotations[key]
}

// PuzzleKey derives the normalized duplicate key for the event, or "" when
// no usable puzzle-number annotation exists. Sub-puzzle games compose the
// number with the difficulty annotation so the day's easy and hard boards
// stay distinct.
func (e CompletionEvent) PuzzleKey() string {
	num := types.NormalizePuzzleNumber(e.Annotation(types.AnnotationPuzzleNumber))
	if num == "" {
		return ""
	}
	if types.UsesSubPuzzles(e.GameID) {
		if diff := e.Annotation(types.AnnotationDifficulty); diff != "" {
			return num + "-" + diff
		}
	}
	return num
}

// StreakAggregate is the per-game consecutive-day play record.
// The zero value is the empty aggregate for a game.
type StreakAggregate struct {
	GameID         string    `json:"game_id"`
	CurrentStreak  int       `json:"current_streak"`
	BestStreak     int       `json:"best_streak"`
	TotalPlayed    int       `json:"total_played"`
	TotalCompleted int       `json:"total_completed"`
	LastPlayed     clock.Day `json:"last_played,omitzero"`
	StreakStart    clock.Day `json:"streak_start,omitzero"`
}

// Check verifies the aggregate invariants. A violation is a consistency
// error; the caller's response is rebuild-from-source, never propagation.
func (a StreakAggregate) Check() error {
	if a.TotalCompleted > a.TotalPlayed {
		return fmt.Errorf("aggregate %s: completed %d exceeds played %d: %w",
			a.GameID, a.TotalCompleted, a.TotalPlayed, ErrAggregateInvariant)
	}
	if a.CurrentStreak < 0 {
		return fmt.Errorf("aggregate %s: negative streak %d: %w",
			a.GameID, a.CurrentStreak, ErrAggregateInvariant)
	}
	if (a.CurrentStreak > 0) != !a.StreakStart.IsZero() {
		return fmt.Errorf("aggregate %s: streak %d with start %v: %w",
			a.GameID, a.CurrentStreak, a.StreakStart, ErrAggregateInvariant)
	}
	if a.BestStreak < a.CurrentStreak {
		return fmt.Errorf("aggregate %s: best %d below current %d: %w",
			a.GameID, a.BestStreak, a.CurrentStreak, ErrAggregateInvariant)
	}
	return nil
}

// AchievementTier is one unlockable threshold within a category.
// UnlockedAt is a one-way latch: recompute may overwrite progress freely
// but only ever sets this field, never clears it.
type AchievementTier struct {
	Threshold  int        `json:"threshold"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// AchievementProgress tracks one category's counter and tier latches.
type AchievementProgress struct {
	Category string            `json:"category"`
	Progress int               `json:"progress"`
	Tiers    []AchievementTier `json:"tiers"`
}

// Clone deep-copies the progress so snapshots never share tier slices.
func (p AchievementProgress) Clone() AchievementProgress {
	out := p
	out.Tiers = make([]AchievementTier, len(p.Tiers))
	for i, tier := range p.Tiers {
		out.Tiers[i] = tier
		if tier.UnlockedAt != nil {
			at := *tier.UnlockedAt
			out.Tiers[i].UnlockedAt = &at
		}
	}
	return out
}

// GuestSnapshot is the point-in-time copy of durable state captured when
// entering an isolated session. Held in memory only.
type GuestSnapshot struct {
	Events       []CompletionEvent
	Streaks      []StreakAggregate
	Achievements []AchievementProgress
	TakenAt      time.Time
}
