package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"gateway/internal/contactfilter"
	"gateway/internal/domain"
	"gateway/internal/mail"
	"gateway/internal/middleware"
	"gateway/internal/pinning"
	"gateway/internal/quota"
	"gateway/internal/storage"
)

// QuotaEnforcer is the part of quota.Enforcer the handlers depend on.
type QuotaEnforcer interface {
	CheckAndConsume(ctx context.Context, userID string, action quota.Action) (quota.Decision, error)
	Usage(ctx context.Context, userID string) (quota.Usage, error)
}

// Pinner uploads files to IPFS.
type Pinner interface {
	PinFile(ctx context.Context, filename string, r io.Reader) (pinning.Pin, error)
	GatewayURL(hash string) string
}

// App carries the dependencies of every HTTP handler.
type App struct {
	Logger          zerolog.Logger
	Quota           QuotaEnforcer
	Profiles        domain.ProfileRepository
	Mailer          mail.Sender
	Composer        mail.ContactComposer
	Filter          *contactfilter.Filter
	Pinner          Pinner
	Uploads         *storage.FileStore
	MaxUploadBytes  int64
	ServiceName     string
	StartedAt       time.Time
	Now             func() time.Time
	UpstreamTimeout time.Duration
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) upstreamContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.UpstreamTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.UpstreamTimeout)
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// error writes the JSON error envelope with key translated for the request's locale.
func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code, key string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: translate(r.Context(), key)}})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

func (a *App) requestLogger(r *http.Request) *zerolog.Logger {
	l := a.Logger.With().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("user_id", a.currentUserID(r)).
		Logger()
	return &l
}
