// Package memstore is an in-process user-record store for development and tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"gateway/internal/domain"
	"gateway/internal/quota"
)

type user struct {
	id               string
	email            string
	displayName      string
	profileName      string
	plan             string
	limits           quota.Limits
	lastNameUpdateAt time.Time
}

// Store keeps user records in a map guarded by a mutex. Every method holds the
// lock for its whole read-modify-write, which makes Consume atomic.
type Store struct {
	mu    sync.Mutex
	users map[string]*user
}

// New returns an empty Store.
func New() *Store {
	return &Store{users: make(map[string]*user)}
}

// Seed creates or replaces a user record.
func (s *Store) Seed(id, email, plan string, limits quota.Limits) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = &user{id: id, email: email, plan: plan, limits: limits}
}

// Get implements quota.Store.
func (s *Store) Get(ctx context.Context, userID string) (quota.Record, error) {
	if err := ctx.Err(); err != nil {
		return quota.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return quota.Record{}, quota.ErrNotFound
	}
	return quota.Record{UserID: u.id, Plan: u.plan, Limits: u.limits}, nil
}

// Consume implements quota.Store.
func (s *Store) Consume(ctx context.Context, userID string, action quota.Action, day string, limit int) (quota.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return quota.Outcome{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return quota.Outcome{}, quota.ErrNotFound
	}
	u.limits = u.limits.Rollover(day)
	if u.limits.Count(action) >= limit {
		return quota.Outcome{Allowed: false, Limits: u.limits}, nil
	}
	u.limits = u.limits.Increment(action)
	return quota.Outcome{Allowed: true, Limits: u.limits}, nil
}

// PutLimits overwrites the limits object unconditionally, the way a plain
// document update would.
func (s *Store) PutLimits(ctx context.Context, userID string, limits quota.Limits) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return quota.ErrNotFound
	}
	u.limits = limits
	return nil
}

// UpdateDisplayName implements domain.ProfileRepository.
func (s *Store) UpdateDisplayName(ctx context.Context, userID, name string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.displayName = name
	u.profileName = name
	u.lastNameUpdateAt = at.UTC()
	return nil
}

// SetPlan implements domain.PlanRepository.
func (s *Store) SetPlan(ctx context.Context, userID, plan string, resetUsage bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	u.plan = plan
	if resetUsage {
		u.limits = quota.Limits{}
	}
	return nil
}

// DisplayName returns the stored display name of userID.
func (s *Store) DisplayName(userID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return "", false
	}
	return u.displayName, true
}

var (
	_ quota.Store              = (*Store)(nil)
	_ domain.ProfileRepository = (*Store)(nil)
	_ domain.PlanRepository    = (*Store)(nil)
)
