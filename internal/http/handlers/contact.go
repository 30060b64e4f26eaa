package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"gateway/internal/contactfilter"
	"gateway/internal/mail"
	"gateway/internal/metrics"
	"gateway/internal/middleware"
	"gateway/internal/quota"
)

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

type contactResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Contact screens a contact-form submission, composes the admin email, draws
// one mail and relays the message to the site admin.
func (a *App) Contact(w http.ResponseWriter, r *http.Request) {
	if a.Mailer == nil {
		a.error(w, r, http.StatusServiceUnavailable, "unavailable", msgServiceUnavailable)
		return
	}
	var req contactRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", msgInvalidPayload)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = strings.TrimSpace(req.Message)
	if req.Name == "" || req.Email == "" || req.Message == "" {
		a.error(w, r, http.StatusBadRequest, "bad_request", msgMissingFields)
		return
	}

	log := a.requestLogger(r)
	filter := a.Filter
	if filter == nil {
		filter = contactfilter.New()
	}
	switch filter.Check(req.Name, req.Message) {
	case contactfilter.ReasonProfanity:
		log.Warn().Str("email", req.Email).Msg("blocked spam or profanity")
		a.error(w, r, http.StatusBadRequest, "spam_detected", msgSpam)
		return
	case contactfilter.ReasonLink:
		log.Warn().Str("email", req.Email).Msg("blocked message containing link")
		a.error(w, r, http.StatusBadRequest, "links_not_allowed", msgLinks)
		return
	}

	msg, err := a.Composer.Compose(mail.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
		Country: middleware.CountryFromContext(r.Context()),
	})
	if err != nil {
		log.Error().Err(err).Msg("compose contact email failed")
		a.error(w, r, http.StatusServiceUnavailable, "unavailable", msgServiceUnavailable)
		return
	}

	if !a.consume(w, r, quota.ActionMail) {
		return
	}

	ctx, cancel := a.upstreamContext(r.Context())
	defer cancel()
	if err := a.Mailer.Send(ctx, msg); err != nil {
		metrics.UpstreamRequests.WithLabelValues("mail", "error").Inc()
		log.Error().Err(err).Msg("send contact email failed")
		a.error(w, r, http.StatusInternalServerError, "send_failed", msgSendFailed)
		return
	}
	metrics.UpstreamRequests.WithLabelValues("mail", "ok").Inc()
	log.Info().Str("email", req.Email).Str("name", req.Name).Msg("contact email sent")
	a.json(w, http.StatusOK, contactResponse{Success: true, Message: translate(r.Context(), msgEmailSent)})
}
