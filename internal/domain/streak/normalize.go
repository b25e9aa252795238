package streak

import (
	"github.com/okian/streakd/internal/domain/model"
	"github.com/okian/streakd/pkg/clock"
)

// DaySet is a per-game set of calendar days with at least one completed
// event. It is the O(1) membership structure behind normalization.
type DaySet map[string]map[clock.Day]struct{}

// CompletedDays builds the day set in one pass over the event log.
func CompletedDays(events []model.CompletionEvent, clk clock.Clock) DaySet {
	set := make(DaySet)
	for _, e := range events {
		if !e.Completed {
			continue
		}
		days := set[e.GameID]
		if days == nil {
			days = make(map[clock.Day]struct{})
			set[e.GameID] = days
		}
		days[clk.StartOfDay(e.OccurredAt)] = struct{}{}
	}
	return set
}

// Normalize breaks streaks that have gone stale: a streak is broken when
// any calendar day between its last-played day and the reference day has
// no completed event for that game. Elapsed time alone never breaks a
// streak; only an actual missing completed day does.
//
// Aggregates are modified in place; the returned slice names the games
// whose streak was broken, so only those dirty a persistence write.
func Normalize(aggregates map[string]*model.StreakAggregate, completed DaySet, reference clock.Day) []string {
	var broken []string

	for gameID, agg := range aggregates {
		if agg.CurrentStreak == 0 || agg.LastPlayed.IsZero() {
			continue
		}

		days := completed[gameID]
		for d := agg.LastPlayed; d.Before(reference); d = d.AddDays(1) {
			if _, ok := days[d]; ok {
				continue
			}
			agg.CurrentStreak = 0
			agg.StreakStart = clock.Day{}
			broken = append(broken, gameID)
			break
		}
	}

	return broken
}
