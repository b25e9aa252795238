package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/streakd/internal/adapters/persistence"
	service "github.com/okian/streakd/internal/app"
	"github.com/okian/streakd/internal/domain/model"
	"github.com/okian/streakd/internal/domain/session"
	"github.com/okian/streakd/pkg/clock"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRestartRoundTrip(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service that recorded a two-day streak and stopped", t, func() {
		clk := clock.NewFixed(baseTime)
		store := persistence.NewMemoryStore()

		first := service.New(
			service.WithClock(clk),
			service.WithStore(store),
			service.WithPublisher(newCapturePublisher()),
		)
		So(first.Start(ctx), ShouldBeNil)
		_, _ = first.Submit(ctx, gridwordEvent("ev-1", "100", clk.Now(), 3, true))
		clk.Advance(24 * time.Hour)
		_, _ = first.Submit(ctx, gridwordEvent("ev-2", "101", clk.Now(), 1, true))
		So(first.Stop(ctx), ShouldBeNil)

		Convey("When a new service starts against the same store", func() {
			second := startService(t, clk, store, newCapturePublisher())

			Convey("Then the log, streaks, and achievements survive", func() {
				So(second.EventCount(), ShouldEqual, 2)

				agg, ok := second.CurrentStreak("gridword")
				So(ok, ShouldBeTrue)
				So(agg.CurrentStreak, ShouldEqual, 2)
				So(agg.BestStreak, ShouldEqual, 2)

				for _, p := range second.AchievementProgress() {
					if p.Category != "games_played" {
						continue
					}
					So(p.Progress, ShouldEqual, 2)
					So(p.Tiers[0].UnlockedAt, ShouldNotBeNil)
				}
			})

			Convey("And a replayed event from before the restart is a duplicate", func() {
				accepted, err := second.Submit(ctx, gridwordEvent("ev-1", "100", baseTime, 3, true))
				So(err, ShouldBeNil)
				So(accepted, ShouldBeFalse)
			})
		})

		Convey("When the restart happens days later", func() {
			clk.Advance(72 * time.Hour)
			second := startService(t, clk, store, newCapturePublisher())

			Convey("Then the stale streak is normalized on load", func() {
				agg, _ := second.CurrentStreak("gridword")
				So(agg.CurrentStreak, ShouldEqual, 0)
				So(agg.BestStreak, ShouldEqual, 2)
			})
		})
	})
}

func TestStartupRepair(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store with a corrupted aggregate", t, func() {
		clk := clock.NewFixed(baseTime)
		store := persistence.NewMemoryStore()

		events := []model.CompletionEvent{
			gridwordEvent("ev-1", "100", baseTime, 3, true),
		}
		So(store.Save(ctx, persistence.KeyEvents, events), ShouldBeNil)
		So(store.Save(ctx, persistence.KeyStreaks, []model.StreakAggregate{{
			GameID:         "gridword",
			TotalPlayed:    1,
			TotalCompleted: 5, // impossible, must trigger a rebuild
		}}), ShouldBeNil)

		Convey("When the service starts", func() {
			svc := startService(t, clk, store, newCapturePublisher())

			Convey("Then the aggregate is rebuilt from the log", func() {
				agg, ok := svc.CurrentStreak("gridword")
				So(ok, ShouldBeTrue)
				So(agg.TotalPlayed, ShouldEqual, 1)
				So(agg.TotalCompleted, ShouldEqual, 1)
				So(agg.CurrentStreak, ShouldEqual, 1)
			})
		})
	})
}

func TestGuestRecovery(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store left with the guest flag set", t, func() {
		clk := clock.NewFixed(baseTime)
		store := persistence.NewMemoryStore()

		events := []model.CompletionEvent{
			gridwordEvent("ev-1", "100", baseTime, 3, true),
		}
		So(store.Save(ctx, persistence.KeyEvents, events), ShouldBeNil)
		So(store.Save(ctx, persistence.KeySessionMode, session.ModeGuest), ShouldBeNil)

		Convey("When the service starts", func() {
			svc := startService(t, clk, store, newCapturePublisher())

			Convey("Then it recovers to host with the host's data", func() {
				So(svc.InGuest(), ShouldBeFalse)
				So(svc.EventCount(), ShouldEqual, 1)

				var mode session.Mode
				found, err := store.Load(ctx, persistence.KeySessionMode, &mode)
				So(err, ShouldBeNil)
				So(found, ShouldBeFalse)
			})

			Convey("And a fresh guest session works normally afterwards", func() {
				So(svc.EnterGuest(ctx), ShouldBeNil)
				_, err := svc.ExitGuest(ctx, false)
				So(err, ShouldBeNil)
				So(svc.EventCount(), ShouldEqual, 1)
			})
		})
	})
}
