package streak_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/okian/streakd/internal/domain/model"
	"github.com/okian/streakd/internal/domain/streak"
	"github.com/okian/streakd/pkg/clock"
	. "github.com/smartystreets/goconvey/convey"
)

var day1 = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func onDay(n int, completed bool) model.CompletionEvent {
	return model.CompletionEvent{
		ID:         fmt.Sprintf("ev-%d%s", n, boolSuffix(completed)),
		GameID:     "gridword",
		GameName:   "gridword",
		OccurredAt: day1.AddDate(0, 0, n-1),
		Completed:  completed,
		RawText:    "shared result",
	}
}

func boolSuffix(completed bool) string {
	if completed {
		return "-done"
	}
	return "-fail"
}

func TestApply(t *testing.T) {
	clk := clock.NewFixed(day1)

	Convey("Given an empty aggregate", t, func() {
		agg := model.StreakAggregate{GameID: "gridword"}

		Convey("When the first completed event arrives", func() {
			agg = streak.Apply(agg, onDay(1, true), clk)

			Convey("Then a streak of one starts", func() {
				So(agg.CurrentStreak, ShouldEqual, 1)
				So(agg.BestStreak, ShouldEqual, 1)
				So(agg.TotalPlayed, ShouldEqual, 1)
				So(agg.TotalCompleted, ShouldEqual, 1)
				So(agg.StreakStart, ShouldResemble, clk.StartOfDay(day1))
				So(agg.Check(), ShouldBeNil)
			})

			Convey("And a second completed event the next day extends it", func() {
				agg = streak.Apply(agg, onDay(2, true), clk)
				So(agg.CurrentStreak, ShouldEqual, 2)
				So(agg.BestStreak, ShouldEqual, 2)
				So(agg.StreakStart, ShouldResemble, clk.StartOfDay(day1))
			})

			Convey("And a repeat play on the same day leaves the length unchanged", func() {
				agg = streak.Apply(agg, onDay(1, true), clk)
				So(agg.CurrentStreak, ShouldEqual, 1)
				So(agg.TotalPlayed, ShouldEqual, 2)
				So(agg.TotalCompleted, ShouldEqual, 2)
			})

			Convey("And a completed event after a gap restarts at one", func() {
				agg = streak.Apply(agg, onDay(4, true), clk)
				So(agg.CurrentStreak, ShouldEqual, 1)
				So(agg.BestStreak, ShouldEqual, 1)
				So(agg.StreakStart, ShouldResemble, clk.StartOfDay(day1.AddDate(0, 0, 3)))
			})

			Convey("And an incomplete event breaks the streak but keeps totals", func() {
				agg = streak.Apply(agg, onDay(2, false), clk)
				So(agg.CurrentStreak, ShouldEqual, 0)
				So(agg.StreakStart.IsZero(), ShouldBeTrue)
				So(agg.BestStreak, ShouldEqual, 1)
				So(agg.TotalPlayed, ShouldEqual, 2)
				So(agg.TotalCompleted, ShouldEqual, 1)
				So(agg.LastPlayed, ShouldResemble, clk.StartOfDay(day1.AddDate(0, 0, 1)))
			})
		})

		Convey("When days 1 and 2 complete and day 3 fails", func() {
			agg = streak.Apply(agg, onDay(1, true), clk)
			agg = streak.Apply(agg, onDay(2, true), clk)
			agg = streak.Apply(agg, onDay(3, false), clk)

			Convey("Then the final aggregate matches the reference scenario", func() {
				So(agg.CurrentStreak, ShouldEqual, 0)
				So(agg.BestStreak, ShouldEqual, 2)
				So(agg.TotalPlayed, ShouldEqual, 3)
				So(agg.TotalCompleted, ShouldEqual, 2)
				So(agg.LastPlayed, ShouldResemble, clk.StartOfDay(day1.AddDate(0, 0, 2)))
				So(agg.StreakStart.IsZero(), ShouldBeTrue)
				So(agg.Check(), ShouldBeNil)
			})
		})
	})
}

func TestRebuild(t *testing.T) {
	clk := clock.NewFixed(day1)

	Convey("Given a chronologically-ordered event sequence", t, func() {
		events := []model.CompletionEvent{
			onDay(1, true), onDay(2, true), onDay(3, true),
			onDay(5, true), onDay(6, false), onDay(7, true),
		}

		Convey("When folding incrementally and rebuilding", func() {
			folded := model.StreakAggregate{GameID: "gridword"}
			for _, e := range events {
				folded = streak.Apply(folded, e, clk)
			}
			rebuilt := streak.Rebuild("gridword", events, clk)

			Convey("Then both produce the same aggregate", func() {
				So(rebuilt, ShouldResemble, folded)
			})
		})

		Convey("When the input arrives out of order", func() {
			shuffled := []model.CompletionEvent{
				events[4], events[0], events[5], events[2], events[1], events[3],
			}
			rebuilt := streak.Rebuild("gridword", shuffled, clk)

			Convey("Then rebuild sorts first and matches the ordered fold", func() {
				ordered := streak.Rebuild("gridword", events, clk)
				So(rebuilt, ShouldResemble, ordered)
			})
		})

		Convey("When the log holds several games", func() {
			other := model.CompletionEvent{
				ID: "other-1", GameID: "sumdoku", GameName: "sumdoku",
				OccurredAt: day1, Completed: true, RawText: "x",
			}
			mixed := append([]model.CompletionEvent{other}, events...)

			Convey("Then rebuild only counts the requested game", func() {
				rebuilt := streak.Rebuild("gridword", mixed, clk)
				So(rebuilt.TotalPlayed, ShouldEqual, len(events))
			})
		})

		Convey("When rebuilding with no events", func() {
			rebuilt := streak.Rebuild("gridword", nil, clk)

			Convey("Then the aggregate is empty", func() {
				So(rebuilt.TotalPlayed, ShouldEqual, 0)
				So(rebuilt.CurrentStreak, ShouldEqual, 0)
				So(rebuilt.LastPlayed.IsZero(), ShouldBeTrue)
			})
		})
	})
}
