package achievement_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/okian/streakd/internal/domain/achievement"
	"github.com/okian/streakd/internal/domain/model"
	"github.com/okian/streakd/pkg/clock"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newEngine() *achievement.Engine {
	return achievement.NewEngine(
		achievement.WithClock(clock.NewFixed(base)),
	)
}

func played(n int, gameID string, day int) model.CompletionEvent {
	return model.CompletionEvent{
		ID:          fmt.Sprintf("ev-%d", n),
		GameID:      gameID,
		GameName:    gameID,
		OccurredAt:  base.AddDate(0, 0, day-1),
		Completed:   true,
		MaxAttempts: 6,
		RawText:     "shared result",
	}
}

func withScore(e model.CompletionEvent, score int) model.CompletionEvent {
	e.Score = &score
	return e
}

func progressFor(e *achievement.Engine, category achievement.Category) model.AchievementProgress {
	for _, p := range e.Snapshot() {
		if p.Category == string(category) {
			return p
		}
	}
	return model.AchievementProgress{}
}

func TestApplyOne(t *testing.T) {
	ctx := context.Background()

	Convey("Given a fresh achievement engine", t, func() {
		eng := newEngine()
		streaks := map[string]*model.StreakAggregate{}

		Convey("When the first event is applied", func() {
			unlocks := eng.ApplyOne(ctx, played(1, "gridword", 1), streaks)

			Convey("Then the first games-played tier unlocks once", func() {
				var found bool
				for _, u := range unlocks {
					if u.Category == achievement.CategoryGamesPlayed && u.Threshold == 1 {
						found = true
					}
				}
				So(found, ShouldBeTrue)
				So(progressFor(eng, achievement.CategoryGamesPlayed).Progress, ShouldEqual, 1)
			})

			Convey("And applying more events never re-emits the same unlock", func() {
				for i := 2; i <= 5; i++ {
					for _, u := range eng.ApplyOne(ctx, played(i, "gridword", i), streaks) {
						So(u.Threshold, ShouldNotEqual, 1)
					}
				}
			})
		})

		Convey("When perfect completions arrive", func() {
			// Guess family: a first-attempt solve is perfect.
			eng.ApplyOne(ctx, withScore(played(1, "gridword", 1), 1), streaks)
			// Hint family: zero hints is perfect.
			eng.ApplyOne(ctx, withScore(played(2, "sumdoku", 1), 0), streaks)
			// Timed family has no perfect value.
			eng.ApplyOne(ctx, withScore(played(3, "chronocross", 1), 0), streaks)
			// Guess family again, but a third-attempt solve is not perfect.
			eng.ApplyOne(ctx, withScore(played(4, "gridword", 2), 3), streaks)

			Convey("Then only family-perfect scores count", func() {
				So(progressFor(eng, achievement.CategoryPerfect).Progress, ShouldEqual, 2)
			})
		})

		Convey("When events span distinct days and games", func() {
			eng.ApplyOne(ctx, played(1, "gridword", 1), streaks)
			eng.ApplyOne(ctx, played(2, "sumdoku", 1), streaks)
			eng.ApplyOne(ctx, played(3, "chronocross", 1), streaks)
			eng.ApplyOne(ctx, played(4, "gridword", 2), streaks)
			eng.ApplyOne(ctx, played(5, "gridword", 2), streaks)

			Convey("Then unique days counts calendar days", func() {
				So(progressFor(eng, achievement.CategoryUniqueDays).Progress, ShouldEqual, 2)
			})

			Convey("Then daily variety tracks the best single day", func() {
				So(progressFor(eng, achievement.CategoryDailyVariety).Progress, ShouldEqual, 3)
			})
		})

		Convey("When streak aggregates carry a best streak", func() {
			streaks["gridword"] = &model.StreakAggregate{GameID: "gridword", BestStreak: 9}
			streaks["sumdoku"] = &model.StreakAggregate{GameID: "sumdoku", BestStreak: 4}
			eng.ApplyOne(ctx, played(1, "gridword", 1), streaks)

			Convey("Then longest streak reflects the maximum across games", func() {
				So(progressFor(eng, achievement.CategoryLongestStreak).Progress, ShouldEqual, 9)
			})
		})
	})
}

func TestRecomputeAll(t *testing.T) {
	ctx := context.Background()

	Convey("Given an engine with accumulated history", t, func() {
		eng := newEngine()
		streaks := map[string]*model.StreakAggregate{}

		var history []model.CompletionEvent
		for i := 1; i <= 12; i++ {
			e := played(i, "gridword", i)
			history = append(history, e)
			eng.ApplyOne(ctx, e, streaks)
		}

		Convey("When events are deleted and progress is recomputed lower", func() {
			tier10 := func() *time.Time {
				for _, tier := range progressFor(eng, achievement.CategoryGamesPlayed).Tiers {
					if tier.Threshold == 10 {
						return tier.UnlockedAt
					}
				}
				return nil
			}
			So(tier10(), ShouldNotBeNil)
			unlockedAt := *tier10()

			eng.RecomputeAll(ctx, history[:7], streaks)

			Convey("Then the counter drops but the latch survives with its timestamp", func() {
				So(progressFor(eng, achievement.CategoryGamesPlayed).Progress, ShouldEqual, 7)
				So(tier10(), ShouldNotBeNil)
				So(tier10().Equal(unlockedAt), ShouldBeTrue)
			})
		})

		Convey("When recomputing from an out-of-order history", func() {
			fresh := newEngine()
			shuffled := []model.CompletionEvent{history[4], history[0], history[2], history[1], history[3]}
			fresh.RecomputeAll(ctx, shuffled, streaks)

			Convey("Then the replay sorts by date and unlock timestamps land on the crossing event", func() {
				p := progressFor(fresh, achievement.CategoryGamesPlayed)
				So(p.Progress, ShouldEqual, 5)
				So(p.Tiers[0].UnlockedAt, ShouldNotBeNil)
				// Tier 1 must latch at the earliest event, not the first
				// element of the unsorted input.
				So(p.Tiers[0].UnlockedAt.Equal(history[0].OccurredAt), ShouldBeTrue)
			})
		})

		Convey("When recomputing twice in a row", func() {
			first := eng.RecomputeAll(ctx, history, streaks)
			second := eng.RecomputeAll(ctx, history, streaks)

			Convey("Then the second pass emits no new unlocks", func() {
				So(first, ShouldBeEmpty) // everything latched during live applies
				So(second, ShouldBeEmpty)
			})
		})
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	Convey("Given persisted achievement progress", t, func() {
		eng := newEngine()
		at := base.Add(-time.Hour)

		Convey("When restoring a known category with a latch", func() {
			eng.Restore(ctx, []model.AchievementProgress{{
				Category: string(achievement.CategoryGamesPlayed),
				Progress: 42,
				Tiers: []model.AchievementTier{
					{Threshold: 1, UnlockedAt: &at},
					{Threshold: 10, UnlockedAt: &at},
					{Threshold: 50},
				},
			}})

			Convey("Then the latch and counter are installed", func() {
				p := progressFor(eng, achievement.CategoryGamesPlayed)
				So(p.Progress, ShouldEqual, 42)
				So(p.Tiers[0].UnlockedAt, ShouldNotBeNil)
				So(p.Tiers[2].UnlockedAt, ShouldBeNil)
			})
		})

		Convey("When restoring an unknown legacy category", func() {
			eng.Restore(ctx, []model.AchievementProgress{{
				Category: "legacy_medals",
				Progress: 7,
			}})

			Convey("Then it is skipped without crashing", func() {
				So(progressFor(eng, "legacy_medals").Category, ShouldEqual, "")
			})
		})
	})
}
