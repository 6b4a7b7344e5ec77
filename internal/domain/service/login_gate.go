package service

import (
	"context"

	"workshop/internal/domain/entity"
)

// LoginGate is the pass/fail throttle consulted before credential checks.
// Implementations count attempts per identifier+client and fail open on
// store errors so an unavailable backend never locks everyone out.
type LoginGate interface {
	// Allow records an attempt and reports whether it may proceed.
	Allow(ctx context.Context, kind entity.Kind, identifier, clientIP string) (bool, error)
}
