package domain

import (
	"context"
	"time"
)

// ProfileRepository mutates the profile fields the gateway is allowed to touch.
type ProfileRepository interface {
	// UpdateDisplayName sets the display name, mirrors it to profile.name and
	// stamps api.lastProfileNameUpdate with at.
	UpdateDisplayName(ctx context.Context, userID, name string, at time.Time) error
}

// PlanRepository changes subscription tiers. Used by operator tooling.
type PlanRepository interface {
	SetPlan(ctx context.Context, userID, plan string, resetUsage bool) error
}
