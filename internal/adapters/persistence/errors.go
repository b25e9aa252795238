package persistence

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrStoreClosed  = errors.New("store closed")
	ErrQueueClosed  = errors.New("write queue closed")
	ErrQueueFull    = errors.New("write queue full")
	ErrDrainTimeout = errors.New("write queue drain timed out")
)
