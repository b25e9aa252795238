// Package persistence defines the durable-state collaborator and the
// serialized background write queue in front of it.
//
// The store contract is deliberately narrow: round-trip the engine's three
// entity collections losslessly by key. No schema beyond that is mandated.
package persistence

import "context"

// Keys under which the engine persists its state.
const (
	KeyEvents       = "completion_events"
	KeyStreaks      = "streak_aggregates"
	KeyAchievements = "achievement_progress"
	KeySessionMode  = "session_mode"
)

// Store provides load/save/remove access to durable state by key.
type Store interface {
	// Save serializes value under key, replacing any previous value.
	Save(ctx context.Context, key string, value any) error

	// Load deserializes the value stored under key into out. It returns
	// false with a nil error when the key has never been saved.
	Load(ctx context.Context, key string, out any) (bool, error)

	// Remove deletes the value stored under key, if any.
	Remove(ctx context.Context, key string) error
}
