package quota

import (
	"context"
	"time"
)

// DateLayout is the calendar-day format stored in Limits.Date.
const DateLayout = "2006-01-02"

// Day formats t as a UTC calendar date.
func Day(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Limits is the persisted per-day counting window of a user.
type Limits struct {
	Date                string `json:"date,omitempty" bson:"date,omitempty"`
	MailsToday          int    `json:"mailsToday" bson:"mailsToday"`
	ProfileChangesToday int    `json:"profileChangesToday" bson:"profileChangesToday"`
}

// Rollover returns the window as seen on day: a stale or missing date yields
// a fresh window with zero counts.
func (l Limits) Rollover(day string) Limits {
	if l.Date == day {
		return l
	}
	return Limits{Date: day}
}

// Count returns the counter that belongs to action.
func (l Limits) Count(action Action) int {
	switch action {
	case ActionMail:
		return l.MailsToday
	case ActionProfileChange:
		return l.ProfileChangesToday
	}
	return 0
}

// Increment returns a copy with the action's counter bumped by one.
func (l Limits) Increment(action Action) Limits {
	switch action {
	case ActionMail:
		l.MailsToday++
	case ActionProfileChange:
		l.ProfileChangesToday++
	}
	return l
}

// Record is the quota-relevant view of a user document.
type Record struct {
	UserID string
	Plan   string
	Limits Limits
}

// Outcome is what a store reports after an atomic consume attempt.
type Outcome struct {
	Allowed bool
	// Limits is the window as persisted (or left in place) by the attempt.
	Limits Limits
}

// Store is the user-record store seen through the quota sub-fields.
//
// Consume must behave as a single atomic step against the record: roll the
// window over to day when its date differs, then, if the action's counter is
// below limit, increment it. The rollover is persisted even when the attempt
// is denied; the denied counter is never changed. Missing users yield
// ErrNotFound.
type Store interface {
	Get(ctx context.Context, userID string) (Record, error)
	Consume(ctx context.Context, userID string, action Action, day string, limit int) (Outcome, error)
}
