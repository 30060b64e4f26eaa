package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"gateway/internal/domain"
	"gateway/internal/infra"
	"gateway/internal/quota"
	"gateway/internal/sqlinline"
)

// UserRepositoryPG implements quota.Store and the profile repositories on top
// of the users table. Quota fields live in properties->'limits'.
type UserRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(sql infra.SQLExecutor) *UserRepositoryPG {
	return &UserRepositoryPG{sql: sql}
}

// Get fetches the quota view of a user.
func (r *UserRepositoryPG) Get(ctx context.Context, userID string) (quota.Record, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectUserQuota, userID)
	var rec quota.Record
	var raw []byte
	if err := row.Scan(&rec.UserID, &rec.Plan, &raw); err != nil {
		return quota.Record{}, mapNoRows(err)
	}
	limits, err := decodeLimits(raw)
	if err != nil {
		return quota.Record{}, err
	}
	rec.Limits = limits
	return rec, nil
}

// Consume runs the rollover, cap check and increment as one statement.
func (r *UserRepositoryPG) Consume(ctx context.Context, userID string, action quota.Action, day string, limit int) (quota.Outcome, error) {
	field := action.Field()
	if field == "" {
		return quota.Outcome{}, quota.ErrUnknownAction
	}
	row := r.sql.QueryRow(ctx, sqlinline.QConsumeQuota, userID, day, field, limit)
	var out quota.Outcome
	var raw []byte
	if err := row.Scan(&out.Allowed, &raw); err != nil {
		return quota.Outcome{}, mapNoRows(err)
	}
	limits, err := decodeLimits(raw)
	if err != nil {
		return quota.Outcome{}, err
	}
	out.Limits = limits
	return out, nil
}

// UpdateDisplayName implements domain.ProfileRepository.
func (r *UserRepositoryPG) UpdateDisplayName(ctx context.Context, userID, name string, at time.Time) error {
	row := r.sql.QueryRow(ctx, sqlinline.QUpdateDisplayName, userID, name, at.UTC().Format(time.RFC3339Nano))
	var id string
	if err := row.Scan(&id); err != nil {
		return mapNoRows(err)
	}
	return nil
}

// SetPlan implements domain.PlanRepository.
func (r *UserRepositoryPG) SetPlan(ctx context.Context, userID, plan string, resetUsage bool) error {
	_, err := r.SetPlanReturning(ctx, userID, plan, resetUsage)
	return err
}

// PlanChange is the row returned after a plan update.
type PlanChange struct {
	ID     string
	Email  string
	Plan   string
	Limits quota.Limits
}

// SetPlanReturning updates the plan and returns the stored result.
func (r *UserRepositoryPG) SetPlanReturning(ctx context.Context, userID, plan string, resetUsage bool) (PlanChange, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QUpdateUserPlan, userID, plan, resetUsage)
	return scanPlanChange(row)
}

// FindByEmail resolves a user by email, case-insensitively.
func (r *UserRepositoryPG) FindByEmail(ctx context.Context, email string) (PlanChange, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectUserPlanByEmail, email)
	return scanPlanChange(row)
}

func scanPlanChange(row pgx.Row) (PlanChange, error) {
	var pc PlanChange
	var raw []byte
	if err := row.Scan(&pc.ID, &pc.Email, &pc.Plan, &raw); err != nil {
		return PlanChange{}, mapNoRows(err)
	}
	limits, err := decodeLimits(raw)
	if err != nil {
		return PlanChange{}, err
	}
	pc.Limits = limits
	return pc, nil
}

func decodeLimits(raw []byte) (quota.Limits, error) {
	var limits quota.Limits
	if len(raw) == 0 {
		return limits, nil
	}
	if err := json.Unmarshal(raw, &limits); err != nil {
		return quota.Limits{}, fmt.Errorf("decode limits: %w", err)
	}
	return limits, nil
}

func mapNoRows(err error) error {
	if infra.IsNoRows(err) {
		return domain.ErrNotFound
	}
	return err
}

var (
	_ quota.Store              = (*UserRepositoryPG)(nil)
	_ domain.ProfileRepository = (*UserRepositoryPG)(nil)
	_ domain.PlanRepository    = (*UserRepositoryPG)(nil)
)
