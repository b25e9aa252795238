// Package dedupe maintains the duplicate index for completion events.
//
// The index is a derived, rebuildable projection of the event log, never an
// independent source of truth. Any detected drift between its element count
// and the count expected from the log triggers a full rebuild rather than a
// patch.
package dedupe

import (
	"context"
	"sync"

	"github.com/okian/streakd/internal/domain/model"
	"github.com/okian/streakd/pkg/clock"
)

// Index answers whether a completion event was already recorded.
type Index interface {
	// IsDuplicate reports whether e matches an already-recorded event.
	// The check short-circuits in order: exact id, normalized puzzle key,
	// same-calendar-day fallback (only when no usable puzzle key exists).
	IsDuplicate(ctx context.Context, e model.CompletionEvent) bool

	// Insert records an accepted event using the same key derivation as
	// the lookup. Call only after IsDuplicate returned false.
	Insert(ctx context.Context, e model.CompletionEvent)

	// Rebuild replaces the whole index with one derived from the log.
	Rebuild(ctx context.Context, events []model.CompletionEvent)

	// Size returns the number of indexed event ids.
	Size() int

	// InSync reports whether the index element count matches the count
	// expected from the given log. A false return means the caller must
	// Rebuild before trusting lookups again.
	InSync(events []model.CompletionEvent) bool
}

// inMemoryIndex implements Index with per-game key sets.
type inMemoryIndex struct {
	mu sync.RWMutex

	clk clock.Clock

	// ids holds every recorded event identifier.
	ids map[string]struct{}

	// puzzleKeys maps game id -> set of normalized puzzle keys.
	puzzleKeys map[string]map[string]struct{}

	// days maps game id -> set of calendar days with any recorded event,
	// backing the same-day fallback for events without puzzle numbers.
	days map[string]map[clock.Day]struct{}
}

// NewInMemoryIndex creates an empty duplicate index.
func NewInMemoryIndex(opts ...Option) Index {
	idx := &inMemoryIndex{
		clk: clock.NewSystem(nil),
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.reset()
	return idx
}

func (x *inMemoryIndex) reset() {
	x.ids = make(map[string]struct{})
	x.puzzleKeys = make(map[string]map[string]struct{})
	x.days = make(map[string]map[clock.Day]struct{})
}

// IsDuplicate reports whether e matches an already-recorded event.
func (x *inMemoryIndex) IsDuplicate(ctx context.Context, e model.CompletionEvent) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()

	// 1. Exact identifier match: a retry or resubmission.
	if _, seen := x.ids[e.ID]; seen {
		return true
	}

	// 2. Normalized puzzle-key match.
	if key := e.PuzzleKey(); key != "" {
		_, seen := x.puzzleKeys[e.GameID][key]
		return seen
	}

	// 3. Same-day fallback, only when no usable puzzle key exists.
	day := x.clk.StartOfDay(e.OccurredAt)
	_, seen := x.days[e.GameID][day]
	return seen
}

// Insert records an accepted event.
func (x *inMemoryIndex) Insert(ctx context.Context, e model.CompletionEvent) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.insertLocked(e)
}

func (x *inMemoryIndex) insertLocked(e model.CompletionEvent) {
	x.ids[e.ID] = struct{}{}

	if key := e.PuzzleKey(); key != "" {
		keys := x.puzzleKeys[e.GameID]
		if keys == nil {
			keys = make(map[string]struct{})
			x.puzzleKeys[e.GameID] = keys
		}
		keys[key] = struct{}{}
	}

	day := x.clk.StartOfDay(e.OccurredAt)
	days := x.days[e.GameID]
	if days == nil {
		days = make(map[clock.Day]struct{})
		x.days[e.GameID] = days
	}
	days[day] = struct{}{}
}

// Rebuild replaces the index with one derived from the full event log.
func (x *inMemoryIndex) Rebuild(ctx context.Context, events []model.CompletionEvent) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.reset()
	for _, e := range events {
		x.insertLocked(e)
	}
}

// Size returns the number of indexed event ids.
func (x *inMemoryIndex) Size() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ids)
}

// InSync compares the index element count against the count expected from
// the log: one id entry per distinct event id.
func (x *inMemoryIndex) InSync(events []model.CompletionEvent) bool {
	expected := make(map[string]struct{}, len(events))
	for _, e := range events {
		expected[e.ID] = struct{}{}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.ids) == len(expected)
}
