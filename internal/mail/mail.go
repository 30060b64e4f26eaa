// Package mail composes contact-form messages and hands them to a relay.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var (
	ErrFailedToSend  = errors.New("mail: failed to send email")
	ErrInvalidConfig = errors.New("mail: invalid config")
	ErrInvalidEmail  = errors.New("mail: invalid email")
)

// Sender delivers a composed Email.
type Sender interface {
	Send(ctx context.Context, msg Email) error
}

// Email is a relay-neutral outbound message.
type Email struct {
	From     string
	To       string
	ReplyTo  string
	Subject  string
	TextBody string
	HTMLBody string
	Tag      string
}

// Validate checks the fields every relay needs.
func (e Email) Validate() error {
	if strings.TrimSpace(e.To) == "" {
		return fmt.Errorf("%w: recipient is required", ErrInvalidEmail)
	}
	if _, err := mail.ParseAddress(e.To); err != nil {
		return fmt.Errorf("%w: recipient %q: %v", ErrInvalidEmail, e.To, err)
	}
	if strings.TrimSpace(e.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidEmail)
	}
	if e.TextBody == "" && e.HTMLBody == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidEmail)
	}
	return nil
}

// FormatAddress renders "Name <addr>", or just addr when name is empty.
func FormatAddress(name, addr string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return addr
	}
	return (&mail.Address{Name: name, Address: addr}).String()
}

// ValidAddress reports whether s parses as a single bare email address.
func ValidAddress(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == strings.TrimSpace(s)
}
