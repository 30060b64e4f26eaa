package quota

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"gateway/internal/metrics"
)

// Decision describes the result of CheckAndConsume.
type Decision struct {
	Allowed   bool   `json:"allowed"`
	Plan      Plan   `json:"plan"`
	Action    Action `json:"action"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
	Date      string `json:"date"`
}

// Usage is a read-only snapshot of a user's window for today.
type Usage struct {
	Plan   Plan       `json:"plan"`
	Date   string     `json:"date"`
	Caps   PlanLimits `json:"caps"`
	Limits Limits     `json:"limits"`
}

// Options configures an Enforcer.
type Options struct {
	Policy Policy
	Now    func() time.Time
	Logger zerolog.Logger
}

// Enforcer gates actions against a user's daily caps.
type Enforcer struct {
	store  Store
	policy Policy
	now    func() time.Time
	logger zerolog.Logger
}

// NewEnforcer wires an Enforcer to store. A zero Policy means DefaultPolicy.
func NewEnforcer(store Store, opts Options) *Enforcer {
	policy := opts.Policy
	if len(policy.tiers) == 0 {
		policy = DefaultPolicy()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Enforcer{store: store, policy: policy, now: now, logger: opts.Logger}
}

// Policy returns the tier table in use.
func (e *Enforcer) Policy() Policy {
	return e.policy
}

// CheckAndConsume draws one unit of action quota for userID.
//
// It returns a nil error only when the unit was durably consumed; callers
// must not perform the gated work otherwise. A denial returns ErrLimitReached
// together with a populated Decision. Store failures are joined with
// ErrInternal and are never retried here.
func (e *Enforcer) CheckAndConsume(ctx context.Context, userID string, action Action) (Decision, error) {
	if !action.Valid() {
		return Decision{Action: action}, ErrUnknownAction
	}
	log := e.logger.With().Str("user_id", userID).Str("action", string(action)).Logger()

	rec, err := e.store.Get(ctx, userID)
	if err != nil {
		return Decision{Action: action}, e.storeErr(log, action, "fetch", err)
	}
	plan := e.policy.NormalizePlan(rec.Plan)
	limit := e.policy.LimitsFor(string(plan)).For(action)
	day := Day(e.now())

	out, err := e.store.Consume(ctx, userID, action, day, limit)
	if err != nil {
		return Decision{Action: action, Plan: plan, Limit: limit}, e.storeErr(log, action, "consume", err)
	}

	used := out.Limits.Count(action)
	d := Decision{
		Allowed:   out.Allowed,
		Plan:      plan,
		Action:    action,
		Limit:     limit,
		Used:      used,
		Remaining: max(limit-used, 0),
		Date:      day,
	}
	if !out.Allowed {
		metrics.QuotaDecisions.WithLabelValues(string(action), "deny").Inc()
		log.Info().Str("plan", string(plan)).Int("limit", limit).Msg("daily limit reached")
		return d, ErrLimitReached
	}
	metrics.QuotaDecisions.WithLabelValues(string(action), "allow").Inc()
	log.Debug().Str("plan", string(plan)).Int("used", used).Int("limit", limit).Msg("quota consumed")
	return d, nil
}

// Usage reports today's caps and counters without writing anything.
func (e *Enforcer) Usage(ctx context.Context, userID string) (Usage, error) {
	rec, err := e.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Usage{}, ErrNotFound
		}
		return Usage{}, internalErr(err)
	}
	plan := e.policy.NormalizePlan(rec.Plan)
	day := Day(e.now())
	return Usage{
		Plan:   plan,
		Date:   day,
		Caps:   e.policy.LimitsFor(string(plan)),
		Limits: rec.Limits.Rollover(day),
	}, nil
}

func (e *Enforcer) storeErr(log zerolog.Logger, action Action, op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		metrics.QuotaDecisions.WithLabelValues(string(action), "not_found").Inc()
		return ErrNotFound
	}
	metrics.QuotaDecisions.WithLabelValues(string(action), "error").Inc()
	log.Error().Err(err).Str("op", op).Msg("quota store failure")
	return internalErr(err)
}
