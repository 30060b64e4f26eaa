package mail

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes emails to the log instead of relaying them. Used when no
// relay token is configured.
type LogSender struct {
	Logger zerolog.Logger
}

func (s LogSender) Send(_ context.Context, msg Email) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.Logger.Info().
		Str("to", msg.To).
		Str("reply_to", msg.ReplyTo).
		Str("subject", msg.Subject).
		Str("body", msg.TextBody).
		Msg("email not relayed (no relay configured)")
	return nil
}
