package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrUnknownAction   = errors.New("unknown action")
	ErrUnsupportedPlan = errors.New("unsupported plan")
)
