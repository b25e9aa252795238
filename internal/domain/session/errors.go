package session

import "errors"

// Sentinel kinds for invalid session transitions.
var (
	ErrAlreadyGuest    = errors.New("guest session already active")
	ErrNotGuest        = errors.New("no guest session active")
	ErrSnapshotMissing = errors.New("guest session has no host snapshot")
)
