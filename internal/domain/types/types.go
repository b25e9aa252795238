// Package types holds the shared domain vocabulary: game families,
// annotation keys, and puzzle-key normalization.
//
// Per-game behavior (score bounds, duplicate-key composition) branches on
// the game's family tag through the table below, never on game-id string
// comparisons scattered through the engine.
package types

import (
	"strings"
	"unicode"
)

// Family groups games by how their score is interpreted.
type Family int

const (
	// FamilyGuess scores count attempts: 1 <= score <= maxAttempts.
	FamilyGuess Family = iota

	// FamilyTimed scores are elapsed seconds: score >= 0, unbounded above.
	FamilyTimed

	// FamilyHinted scores count hints or backtracks: 0 <= score <= maxAttempts.
	FamilyHinted

	// FamilyExact scores always equal maxAttempts; score and bound are the
	// same derived quantity.
	FamilyExact
)

// String returns the family name for logging.
func (f Family) String() string {
	switch f {
	case FamilyGuess:
		return "guess"
	case FamilyTimed:
		return "timed"
	case FamilyHinted:
		return "hinted"
	case FamilyExact:
		return "exact"
	default:
		return "unknown"
	}
}

// Annotation keys recognized on completion events.
const (
	AnnotationPuzzleNumber = "puzzle_number"
	AnnotationDifficulty   = "difficulty"
	AnnotationElapsed      = "elapsed"
	AnnotationHintsUsed    = "hints_used"
)

// PuzzleNumberUnknown is the sentinel value parsers emit when a share text
// carries no usable puzzle number.
const PuzzleNumberUnknown = "unknown"

// GameInfo describes one game's engine-relevant traits.
type GameInfo struct {
	Family Family

	// SubPuzzles marks the game family that publishes several sub-puzzles
	// per calendar puzzle, distinguished by a difficulty annotation. The
	// duplicate key for these games is "number-difficulty".
	SubPuzzles bool
}

// games is the fixed per-game trait table. Unknown games fall back to
// FamilyGuess without sub-puzzles, the most common shape.
var games = map[string]GameInfo{
	"gridword":    {Family: FamilyGuess},
	"hexaguess":   {Family: FamilyGuess},
	"linkladder":  {Family: FamilyGuess},
	"sumdoku":     {Family: FamilyHinted, SubPuzzles: true},
	"chronocross": {Family: FamilyTimed},
	"mazerunner":  {Family: FamilyTimed},
	"mirrormode":  {Family: FamilyExact},
}

// Lookup returns the trait entry for a game id.
func Lookup(gameID string) GameInfo {
	if info, ok := games[gameID]; ok {
		return info
	}
	return GameInfo{Family: FamilyGuess}
}

// FamilyOf returns the score family for a game id.
func FamilyOf(gameID string) Family {
	return Lookup(gameID).Family
}

// UsesSubPuzzles reports whether the game needs the composite duplicate key.
func UsesSubPuzzles(gameID string) bool {
	return Lookup(gameID).SubPuzzles
}

// KnownGames returns the ids in the trait table. The streak ledger seeds an
// empty aggregate for each at initialization.
func KnownGames() []string {
	ids := make([]string, 0, len(games))
	for id := range games {
		ids = append(ids, id)
	}
	return ids
}

// NormalizePuzzleNumber strips thousands separators and whitespace from a
// raw puzzle-number annotation. It returns "" when the result is empty or
// the sentinel unknown value, meaning the annotation is unusable as a
// duplicate key.
func NormalizePuzzleNumber(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r == ',' || unicode.IsSpace(r) {
			// thousands separators and embedded whitespace
			continue
		}
		b.WriteRune(r)
	}
	s := b.String()
	if s == "" || strings.EqualFold(s, PuzzleNumberUnknown) {
		return ""
	}
	return s
}
