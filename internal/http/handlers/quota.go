package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"gateway/internal/quota"
)

// quotaStatus maps an enforcement error to an HTTP status, error code and
// message key.
func quotaStatus(action quota.Action, err error) (int, string, string) {
	switch {
	case errors.Is(err, quota.ErrLimitReached):
		if action == quota.ActionMail {
			return http.StatusTooManyRequests, "limit_reached", msgMailLimit
		}
		return http.StatusTooManyRequests, "limit_reached", msgProfileLimit
	case errors.Is(err, quota.ErrNotFound):
		return http.StatusNotFound, "not_found", msgUserNotFound
	case errors.Is(err, quota.ErrUnknownAction):
		return http.StatusBadRequest, "unknown_action", msgUnknownAction
	default:
		return http.StatusInternalServerError, "internal", msgEnforcementFailed
	}
}

// consume draws one unit of action for the authenticated user. It writes the
// error response and returns false when the gated work must not run.
func (a *App) consume(w http.ResponseWriter, r *http.Request, action quota.Action) bool {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, "unauthorized", msgMissingUser)
		return false
	}
	d, err := a.Quota.CheckAndConsume(r.Context(), userID, action)
	if err != nil {
		status, code, key := quotaStatus(action, err)
		if status == http.StatusTooManyRequests {
			w.Header().Set("X-Quota-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-Quota-Remaining", "0")
		}
		a.error(w, r, status, code, key)
		return false
	}
	w.Header().Set("X-Quota-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-Quota-Remaining", strconv.Itoa(d.Remaining))
	return true
}

type quotaResponse struct {
	Plan      string         `json:"plan"`
	Date      string         `json:"date"`
	Caps      map[string]int `json:"caps"`
	Used      map[string]int `json:"used"`
	Remaining map[string]int `json:"remaining"`
}

// QuotaStatus reports the caller's caps and today's usage without consuming anything.
func (a *App) QuotaStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, r, http.StatusUnauthorized, "unauthorized", msgMissingUser)
		return
	}
	u, err := a.Quota.Usage(r.Context(), userID)
	if err != nil {
		status, code, key := quotaStatus("", err)
		if status == http.StatusInternalServerError {
			a.requestLogger(r).Error().Err(err).Msg("quota usage lookup failed")
		}
		a.error(w, r, status, code, key)
		return
	}
	resp := quotaResponse{
		Plan:      string(u.Plan),
		Date:      u.Date,
		Caps:      map[string]int{},
		Used:      map[string]int{},
		Remaining: map[string]int{},
	}
	for _, action := range quota.Actions {
		limit := u.Caps.For(action)
		used := u.Limits.Count(action)
		resp.Caps[string(action)] = limit
		resp.Used[string(action)] = used
		resp.Remaining[string(action)] = max(limit-used, 0)
	}
	a.json(w, http.StatusOK, resp)
}
