package quota

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Plan is a subscription tier name.
type Plan string

const (
	PlanFree     Plan = "free"
	PlanStandard Plan = "standard"
	PlanPremium  Plan = "premium"
	PlanDeluxe   Plan = "deluxe"
)

// Plans lists the known tiers from cheapest to most generous.
var Plans = []Plan{PlanFree, PlanStandard, PlanPremium, PlanDeluxe}

// PlanLimits holds the per-day caps of a tier.
type PlanLimits struct {
	Mails          int `json:"mails"`
	ProfileChanges int `json:"profileChanges"`
}

// For returns the cap that applies to action.
func (l PlanLimits) For(action Action) int {
	switch action {
	case ActionMail:
		return l.Mails
	case ActionProfileChange:
		return l.ProfileChanges
	}
	return 0
}

// Policy maps tiers to caps. It is immutable after construction and safe for
// concurrent reads.
type Policy struct {
	tiers map[Plan]PlanLimits
}

// DefaultPolicy returns the built-in tier table.
func DefaultPolicy() Policy {
	return Policy{tiers: map[Plan]PlanLimits{
		PlanFree:     {Mails: 5, ProfileChanges: 3},
		PlanStandard: {Mails: 10, ProfileChanges: 5},
		PlanPremium:  {Mails: 25, ProfileChanges: 10},
		PlanDeluxe:   {Mails: 100, ProfileChanges: 20},
	}}
}

// NormalizePlan lowercases name and falls back to free for anything unknown.
func (p Policy) NormalizePlan(name string) Plan {
	plan := Plan(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := p.tiers[plan]; ok {
		return plan
	}
	return PlanFree
}

// LimitsFor returns the caps of the named tier. Unknown or empty names get the
// free tier.
func (p Policy) LimitsFor(name string) PlanLimits {
	return p.tiers[p.NormalizePlan(name)]
}

// String renders the table in the same format ParsePolicy accepts.
func (p Policy) String() string {
	names := make([]string, 0, len(p.tiers))
	for plan := range p.tiers {
		names = append(names, string(plan))
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		l := p.tiers[Plan(name)]
		parts = append(parts, fmt.Sprintf("%s=%d:%d", name, l.Mails, l.ProfileChanges))
	}
	return strings.Join(parts, ",")
}

// ParsePolicy overlays "plan=mails:profileChanges" entries, comma separated,
// onto the default table. An empty string yields the defaults.
func ParsePolicy(table string) (Policy, error) {
	base := DefaultPolicy()
	tiers := make(map[Plan]PlanLimits, len(base.tiers))
	for k, v := range base.tiers {
		tiers[k] = v
	}
	for _, entry := range strings.Split(table, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, caps, ok := strings.Cut(entry, "=")
		if !ok {
			return Policy{}, fmt.Errorf("quota: invalid plan entry %q", entry)
		}
		plan := Plan(strings.ToLower(strings.TrimSpace(name)))
		if _, known := tiers[plan]; !known {
			return Policy{}, fmt.Errorf("quota: %w: %q", ErrUnsupportedPlan, name)
		}
		mailsRaw, changesRaw, ok := strings.Cut(caps, ":")
		if !ok {
			return Policy{}, fmt.Errorf("quota: invalid caps %q for plan %s", caps, plan)
		}
		mails, err := parseCap(mailsRaw)
		if err != nil {
			return Policy{}, fmt.Errorf("quota: plan %s mails: %w", plan, err)
		}
		changes, err := parseCap(changesRaw)
		if err != nil {
			return Policy{}, fmt.Errorf("quota: plan %s profile changes: %w", plan, err)
		}
		tiers[plan] = PlanLimits{Mails: mails, ProfileChanges: changes}
	}
	return Policy{tiers: tiers}, nil
}

func parseCap(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("cap must be >= 0, got %d", n)
	}
	return n, nil
}
