// Package streak maintains the per-game consecutive-day play aggregates.
//
// Rebuild is the authoritative definition of an aggregate; Apply is the
// incremental optimization and must stay consistent with Rebuild for
// chronologically-ordered input. Callers that touch the log in bulk
// (import, delete, load) must rebuild, never patch.
package streak

import (
	"sort"

	"github.com/okian/streakd/internal/domain/model"
	"github.com/okian/streakd/pkg/clock"
)

// Apply folds one new event into the aggregate and returns the result.
// It assumes events arrive in chronological order; out-of-order arrival is
// the caller's cue to Rebuild instead.
func Apply(agg model.StreakAggregate, e model.CompletionEvent, clk clock.Clock) model.StreakAggregate {
	day := clk.StartOfDay(e.OccurredAt)

	agg.TotalPlayed++

	if !e.Completed {
		// A failed puzzle breaks the streak; totals and last-played advance.
		agg.CurrentStreak = 0
		agg.StreakStart = clock.Day{}
		agg.LastPlayed = day
		return agg
	}

	agg.TotalCompleted++

	switch {
	case agg.CurrentStreak == 0:
		agg.CurrentStreak = 1
		agg.StreakStart = day
	default:
		switch clk.DaysBetween(agg.LastPlayed, day) {
		case 0:
			// Repeat play on the same calendar day.
		case 1:
			agg.CurrentStreak++
		default:
			agg.CurrentStreak = 1
			agg.StreakStart = day
		}
	}

	if agg.CurrentStreak > agg.BestStreak {
		agg.BestStreak = agg.CurrentStreak
	}
	agg.LastPlayed = day

	return agg
}

// Rebuild replays all events for one game in ascending date order from an
// empty aggregate. Input order does not matter; the events are sorted
// before the fold.
func Rebuild(gameID string, events []model.CompletionEvent, clk clock.Clock) model.StreakAggregate {
	sorted := make([]model.CompletionEvent, 0, len(events))
	for _, e := range events {
		if e.GameID == gameID {
			sorted = append(sorted, e)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].OccurredAt.Equal(sorted[j].OccurredAt) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})

	agg := model.StreakAggregate{GameID: gameID}
	for _, e := range sorted {
		agg = Apply(agg, e, clk)
	}
	return agg
}
