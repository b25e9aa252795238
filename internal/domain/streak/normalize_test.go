package streak_test

import (
	"testing"
	"time"

	"github.com/okian/streakd/internal/domain/model"
	"github.com/okian/streakd/internal/domain/streak"
	"github.com/okian/streakd/pkg/clock"
	. "github.com/smartystreets/goconvey/convey"
)

func dayN(n int) clock.Day {
	return clock.DayOf(day1.AddDate(0, 0, n-1), time.UTC)
}

func TestCompletedDays(t *testing.T) {
	clk := clock.NewFixed(day1)

	Convey("Given a mixed event log", t, func() {
		events := []model.CompletionEvent{
			onDay(1, true), onDay(1, true), onDay(2, true), onDay(3, false),
		}

		Convey("When building the completed-day set", func() {
			set := streak.CompletedDays(events, clk)

			Convey("Then only completed days are present, once each", func() {
				days := set["gridword"]
				So(len(days), ShouldEqual, 2)
				So(days, ShouldContainKey, dayN(1))
				So(days, ShouldContainKey, dayN(2))
				So(days, ShouldNotContainKey, dayN(3))
			})
		})
	})
}

func TestNormalize(t *testing.T) {
	clk := clock.NewFixed(day1)

	Convey("Given streak aggregates loaded from an earlier save", t, func() {
		Convey("When the log has completed events on days 1, 2 and 4 but the saved streak predates day 4", func() {
			// The day-4 event arrived by import while the app was closed;
			// the persisted aggregate still reads days 1-2.
			agg := &model.StreakAggregate{
				GameID:         "gridword",
				CurrentStreak:  2,
				BestStreak:     2,
				TotalPlayed:    2,
				TotalCompleted: 2,
				LastPlayed:     dayN(2),
				StreakStart:    dayN(1),
			}
			set := streak.CompletedDays([]model.CompletionEvent{
				onDay(1, true), onDay(2, true), onDay(4, true),
			}, clk)

			broken := streak.Normalize(map[string]*model.StreakAggregate{"gridword": agg}, set, dayN(5))

			Convey("Then the missing day 3 breaks the streak", func() {
				So(broken, ShouldResemble, []string{"gridword"})
				So(agg.CurrentStreak, ShouldEqual, 0)
				So(agg.BestStreak, ShouldEqual, 2)
				So(agg.StreakStart.IsZero(), ShouldBeTrue)

				Convey("And totals and last-played are untouched", func() {
					So(agg.TotalPlayed, ShouldEqual, 2)
					So(agg.TotalCompleted, ShouldEqual, 2)
					So(agg.LastPlayed, ShouldResemble, dayN(2))
				})
			})
		})

		Convey("When every day up to the reference has a completed event", func() {
			agg := &model.StreakAggregate{
				GameID:        "gridword",
				CurrentStreak: 3,
				BestStreak:    3,
				LastPlayed:    dayN(3),
				StreakStart:   dayN(1),
			}
			set := streak.CompletedDays([]model.CompletionEvent{
				onDay(1, true), onDay(2, true), onDay(3, true),
			}, clk)

			broken := streak.Normalize(map[string]*model.StreakAggregate{"gridword": agg}, set, dayN(4))

			Convey("Then the streak survives", func() {
				So(broken, ShouldBeEmpty)
				So(agg.CurrentStreak, ShouldEqual, 3)
			})
		})

		Convey("When the reference day equals the last-played day", func() {
			agg := &model.StreakAggregate{
				GameID:        "gridword",
				CurrentStreak: 1,
				BestStreak:    1,
				LastPlayed:    dayN(2),
				StreakStart:   dayN(2),
			}
			set := streak.CompletedDays([]model.CompletionEvent{onDay(2, true)}, clk)

			broken := streak.Normalize(map[string]*model.StreakAggregate{"gridword": agg}, set, dayN(2))

			Convey("Then nothing is walked and the streak survives", func() {
				So(broken, ShouldBeEmpty)
				So(agg.CurrentStreak, ShouldEqual, 1)
			})
		})

		Convey("When a long idle gap follows the last play", func() {
			agg := &model.StreakAggregate{
				GameID:        "gridword",
				CurrentStreak: 5,
				BestStreak:    5,
				LastPlayed:    dayN(5),
				StreakStart:   dayN(1),
			}
			set := streak.CompletedDays([]model.CompletionEvent{
				onDay(1, true), onDay(2, true), onDay(3, true), onDay(4, true), onDay(5, true),
			}, clk)

			broken := streak.Normalize(map[string]*model.StreakAggregate{"gridword": agg}, set, dayN(30))

			Convey("Then the first missing day breaks the streak", func() {
				So(broken, ShouldResemble, []string{"gridword"})
				So(agg.CurrentStreak, ShouldEqual, 0)
			})
		})

		Convey("When an aggregate has no active streak", func() {
			agg := &model.StreakAggregate{GameID: "gridword", TotalPlayed: 4, TotalCompleted: 2, LastPlayed: dayN(1)}

			broken := streak.Normalize(map[string]*model.StreakAggregate{"gridword": agg}, streak.DaySet{}, dayN(9))

			Convey("Then it passes through unchanged", func() {
				So(broken, ShouldBeEmpty)
				So(agg.CurrentStreak, ShouldEqual, 0)
			})
		})
	})
}
