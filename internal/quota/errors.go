package quota

import (
	"errors"

	"gateway/internal/domain"
)

var (
	// ErrNotFound is returned when the user id does not resolve to a record.
	ErrNotFound = domain.ErrNotFound
	// ErrLimitReached reports a normal denial: the daily cap is used up.
	ErrLimitReached = domain.ErrQuotaExceeded
	// ErrUnknownAction is returned for action kinds outside the known set.
	ErrUnknownAction = domain.ErrUnknownAction
	// ErrUnsupportedPlan is returned when a plan table names an unknown tier.
	ErrUnsupportedPlan = domain.ErrUnsupportedPlan
	// ErrInternal wraps every store failure. No quota is consumed when it is returned.
	ErrInternal = errors.New("quota: store failure")
)

func internalErr(err error) error {
	return errors.Join(ErrInternal, err)
}
