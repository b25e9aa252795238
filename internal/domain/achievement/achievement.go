// Package achievement tracks tiered progress counters derived from the
// completion-event history.
//
// Progress is recomputable at any time; tier unlocks are one-way latches.
// A recompute may overwrite every counter, but an unlocked-at timestamp is
// only ever set, never cleared, even when deleted events drop the counter
// back below the threshold.
package achievement

import (
	"context"
	"sort"
	"time"

	"github.com/okian/streakd/internal/domain/model"
	"github.com/okian/streakd/internal/domain/types"
	"github.com/okian/streakd/pkg/clock"
	"github.com/okian/streakd/pkg/logger"
)

// Category identifies one achievement aggregation rule.
type Category string

const (
	CategoryGamesPlayed   Category = "games_played"
	CategoryPerfect       Category = "perfect_completions"
	CategoryUniqueDays    Category = "unique_days_active"
	CategoryLongestStreak Category = "longest_streak"
	CategoryDailyVariety  Category = "daily_variety"
)

// defaultTiers holds the factory thresholds per category, ascending.
var defaultTiers = map[Category][]int{
	CategoryGamesPlayed:   {1, 10, 50, 100, 250, 500},
	CategoryPerfect:       {1, 5, 25, 100},
	CategoryUniqueDays:    {3, 7, 30, 100, 365},
	CategoryLongestStreak: {3, 7, 14, 30, 100},
	CategoryDailyVariety:  {2, 3, 5},
}

// perfectRules defines, per game family, what a perfect completion is.
// Timed games are deliberately absent: elapsed time has no perfect value.
var perfectRules = map[types.Family]func(score, maxAttempts int) bool{
	types.FamilyGuess:  func(score, _ int) bool { return score == 1 },
	types.FamilyHinted: func(score, _ int) bool { return score == 0 },
	types.FamilyExact:  func(score, maxAttempts int) bool { return score == maxAttempts },
}

// Unlock reports one tier crossing its threshold for the first time.
type Unlock struct {
	Category  Category
	Threshold int
	At        time.Time
}

// Engine owns the per-category progress and the fold accumulators for the
// order-sensitive categories. It is not safe for concurrent use; the
// service serializes all mutation on its single owner.
type Engine struct {
	clk clock.Clock
	log logger.Logger

	progress map[Category]*model.AchievementProgress

	// Fold accumulators. Distinct-day and same-day-variety counting is
	// order- and grouping-sensitive, so these survive between ApplyOne
	// calls and reset only on RecomputeAll.
	daysActive  map[clock.Day]struct{}
	gamesByDay  map[clock.Day]map[string]struct{}
	bestVariety int
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock sets the calendar collaborator. Defaults to the system clock.
func WithClock(clk clock.Clock) Option {
	return func(e *Engine) {
		if clk != nil {
			e.clk = clk
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEngine creates an engine with factory-default progress.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		clk: clock.NewSystem(nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resetAccumulators()
	e.progress = make(map[Category]*model.AchievementProgress, len(defaultTiers))
	for category := range defaultTiers {
		e.progress[category] = factoryProgress(category)
	}
	return e
}

func factoryProgress(category Category) *model.AchievementProgress {
	thresholds := defaultTiers[category]
	tiers := make([]model.AchievementTier, len(thresholds))
	for i, threshold := range thresholds {
		tiers[i] = model.AchievementTier{Threshold: threshold}
	}
	return &model.AchievementProgress{Category: string(category), Tiers: tiers}
}

func (e *Engine) resetAccumulators() {
	e.daysActive = make(map[clock.Day]struct{})
	e.gamesByDay = make(map[clock.Day]map[string]struct{})
	e.bestVariety = 0
}

// ApplyOne folds one accepted event into the progress counters and returns
// any tiers that newly unlocked.
func (e *Engine) ApplyOne(ctx context.Context, ev model.CompletionEvent, streaks map[string]*model.StreakAggregate) []Unlock {
	var unlocks []Unlock

	e.bump(CategoryGamesPlayed, 1)

	if isPerfect(ev) {
		e.bump(CategoryPerfect, 1)
	}

	day := e.clk.StartOfDay(ev.OccurredAt)
	if _, seen := e.daysActive[day]; !seen {
		e.daysActive[day] = struct{}{}
	}
	e.set(CategoryUniqueDays, len(e.daysActive))

	games := e.gamesByDay[day]
	if games == nil {
		games = make(map[string]struct{})
		e.gamesByDay[day] = games
	}
	games[ev.GameID] = struct{}{}
	if len(games) > e.bestVariety {
		e.bestVariety = len(games)
	}
	e.set(CategoryDailyVariety, e.bestVariety)

	best := 0
	for _, agg := range streaks {
		if agg.BestStreak > best {
			best = agg.BestStreak
		}
	}
	e.set(CategoryLongestStreak, best)

	for _, category := range e.categories() {
		unlocks = append(unlocks, e.latch(category, ev.OccurredAt)...)
	}
	return unlocks
}

// RecomputeAll rebuilds every counter from the full event history, replaying
// events one at a time in ascending date order. Existing unlock latches are
// preserved; tiers whose threshold is crossed during the replay latch at the
// crossing event's timestamp. The returned unlocks are only those latched
// during this recompute.
func (e *Engine) RecomputeAll(ctx context.Context, events []model.CompletionEvent, streaks map[string]*model.StreakAggregate) []Unlock {
	e.resetAccumulators()
	for _, p := range e.progress {
		p.Progress = 0
	}

	sorted := make([]model.CompletionEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})

	var unlocks []Unlock
	for _, ev := range sorted {
		unlocks = append(unlocks, e.ApplyOne(ctx, ev, streaks)...)
	}
	return unlocks
}

// Snapshot returns a deep copy of every category's progress, ordered by
// category name for deterministic persistence.
func (e *Engine) Snapshot() []model.AchievementProgress {
	out := make([]model.AchievementProgress, 0, len(e.progress))
	for _, p := range e.progress {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// Restore installs persisted progress. Unknown categories are logged and
// skipped, never fatal: this is the legacy-to-tiered migration path.
func (e *Engine) Restore(ctx context.Context, persisted []model.AchievementProgress) {
	for _, p := range persisted {
		category := Category(p.Category)
		if _, known := e.progress[category]; !known {
			if e.log != nil {
				e.log.Warn(ctx, "ignoring unknown achievement category",
					logger.String("category", p.Category),
				)
			}
			continue
		}
		clone := p.Clone()
		e.progress[category] = &clone
	}
}

// bump raises a counter category by delta.
func (e *Engine) bump(category Category, delta int) {
	if p, ok := e.progress[category]; ok {
		p.Progress += delta
	}
}

// set assigns an absolute progress value to a derived category.
func (e *Engine) set(category Category, value int) {
	if p, ok := e.progress[category]; ok {
		p.Progress = value
	}
}

// latch marks tiers whose threshold the category's progress now meets.
func (e *Engine) latch(category Category, at time.Time) []Unlock {
	p, ok := e.progress[category]
	if !ok {
		return nil
	}

	var unlocks []Unlock
	for i := range p.Tiers {
		tier := &p.Tiers[i]
		if tier.UnlockedAt != nil || p.Progress < tier.Threshold {
			continue
		}
		when := at
		tier.UnlockedAt = &when
		unlocks = append(unlocks, Unlock{
			Category:  category,
			Threshold: tier.Threshold,
			At:        when,
		})
	}
	return unlocks
}

// categories returns the known categories in stable order.
func (e *Engine) categories() []Category {
	out := make([]Category, 0, len(e.progress))
	for category := range e.progress {
		out = append(out, category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// isPerfect reports whether the event is a perfect completion under its
// family's rule.
func isPerfect(ev model.CompletionEvent) bool {
	if !ev.Completed || ev.Score == nil {
		return false
	}
	rule, ok := perfectRules[types.FamilyOf(ev.GameID)]
	if !ok {
		return false
	}
	return rule(*ev.Score, ev.MaxAttempts)
}
