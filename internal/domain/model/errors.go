package model

import "errors"

// Sentinel kinds for model-level consistency errors.
var (
	ErrAggregateInvariant = errors.New("streak aggregate invariant violated")
)
