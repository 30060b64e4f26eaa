package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// PostmarkConfig holds the relay credentials.
type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	// BaseURL overrides the API root; empty means the public endpoint.
	BaseURL string
}

// PostmarkSender relays email through Postmark's transactional API.
type PostmarkSender struct {
	client *postmark.Client
}

// NewPostmarkSender validates cfg and builds a sender.
func NewPostmarkSender(cfg PostmarkConfig) (*PostmarkSender, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: server token is required", ErrInvalidConfig)
	}
	client := postmark.NewClient(cfg.ServerToken, cfg.AccountToken)
	if cfg.BaseURL != "" {
		client.BaseURL = cfg.BaseURL
	}
	return &PostmarkSender{client: client}, nil
}

// Send implements Sender.
func (s *PostmarkSender) Send(ctx context.Context, msg Email) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       msg.From,
		To:         msg.To,
		ReplyTo:    msg.ReplyTo,
		Subject:    msg.Subject,
		Tag:        msg.Tag,
		TextBody:   msg.TextBody,
		HTMLBody:   msg.HTMLBody,
		TrackOpens: false,
	})
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(ErrFailedToSend, fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
