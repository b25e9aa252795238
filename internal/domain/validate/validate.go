// Package validate rejects structurally invalid completion events before
// they enter the engine. Validation is a pure check with no side effects;
// a failed event is dropped by the caller and never inserted anywhere.
package validate

import (
	"fmt"

	"github.com/okian/streakd/internal/domain/model"
	"github.com/okian/streakd/internal/domain/types"
)

// scoreRule checks a present score against the family's bounds.
type scoreRule func(score, maxAttempts int) bool

// scoreRules is the fixed per-family bound table. The groupings are
// deliberate and must stay separate: most games bound score by attempts,
// timed games only require non-negative elapsed values, hint-counted games
// allow zero, and the exact family reports score == maxAttempts because
// both are the same derived quantity.
var scoreRules = map[types.Family]scoreRule{
	types.FamilyGuess:  func(score, maxAttempts int) bool { return score >= 1 && score <= maxAttempts },
	types.FamilyTimed:  func(score, _ int) bool { return score >= 0 },
	types.FamilyHinted: func(score, maxAttempts int) bool { return score >= 0 && score <= maxAttempts },
	types.FamilyExact:  func(score, maxAttempts int) bool { return score == maxAttempts },
}

// Event checks a completion event against the structural rules and the
// game family's score bounds. It returns nil when the event may enter the
// engine, or a typed error naming the failed rule.
func Event(e model.CompletionEvent) error {
	if e.GameID == "" {
		return ErrMissingGameID
	}
	if e.GameName == "" {
		return ErrMissingGameName
	}
	if e.MaxAttempts < 0 {
		return fmt.Errorf("max attempts %d: %w", e.MaxAttempts, ErrNegativeMaxAttempts)
	}
	if e.RawText == "" {
		return ErrMissingRawText
	}

	if e.Score != nil {
		family := types.FamilyOf(e.GameID)
		rule, ok := scoreRules[family]
		if !ok {
			return fmt.Errorf("family %s: %w", family, ErrUnknownFamily)
		}
		if !rule(*e.Score, e.MaxAttempts) {
			return &ScoreRangeError{
				GameID:      e.GameID,
				Family:      family,
				Score:       *e.Score,
				MaxAttempts: e.MaxAttempts,
			}
		}
	}

	return nil
}
