package validate

import (
	"errors"
	"fmt"

	"github.com/okian/streakd/internal/domain/types"
)

// Sentinel kinds for structural validation failures. These allow
// errors.Is/As from callers.
var (
	ErrMissingGameID       = errors.New("game id must not be empty")
	ErrMissingGameName     = errors.New("game name must not be empty")
	ErrMissingRawText      = errors.New("raw source text must not be empty")
	ErrNegativeMaxAttempts = errors.New("max attempts must not be negative")
	ErrUnknownFamily       = errors.New("no score rule for game family")
)

// ScoreRangeError reports a score outside its family's bounds.
type ScoreRangeError struct {
	GameID      string
	Family      types.Family
	Score       int
	MaxAttempts int
}

func (e *ScoreRangeError) Error() string {
	return fmt.Sprintf("score %d out of range for %s (family %s, max attempts %d)",
		e.Score, e.GameID, e.Family, e.MaxAttempts)
}
