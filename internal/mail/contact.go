package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// ContactMessage is a submission of the public contact form.
type ContactMessage struct {
	Name    string
	Email   string
	Message string
	Country string
}

// ContactComposer turns contact submissions into emails for the site admin.
type ContactComposer struct {
	SiteName   string
	SenderName string
	SenderAddr string
	Receiver   string
	Now        func() time.Time
}

// Compose builds the admin notification for msg. The submitter becomes the
// Reply-To so the admin can answer directly.
func (c ContactComposer) Compose(msg ContactMessage) (Email, error) {
	if err := c.Validate(); err != nil {
		return Email{}, err
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	data := contactData{
		SiteName: c.SiteName,
		Name:     msg.Name,
		Email:    msg.Email,
		Message:  msg.Message,
		Country:  msg.Country,
		Year:     now().Year(),
	}
	var html bytes.Buffer
	if err := contactTemplate.Execute(&html, data); err != nil {
		return Email{}, fmt.Errorf("mail: render contact template: %w", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "New message from %s (%s)", msg.Name, msg.Email)
	if msg.Country != "" {
		fmt.Fprintf(&text, " [%s]", msg.Country)
	}
	fmt.Fprintf(&text, ":\n\n%s", msg.Message)

	out := Email{
		From:     FormatAddress(c.SenderName, c.SenderAddr),
		To:       FormatAddress("Site Admin", c.Receiver),
		Subject:  fmt.Sprintf("Message from %s at %s", msg.Name, c.SiteName),
		TextBody: text.String(),
		HTMLBody: html.String(),
		Tag:      "contact",
	}
	if ValidAddress(msg.Email) {
		out.ReplyTo = FormatAddress(msg.Name, msg.Email)
	}
	return out, out.Validate()
}

// Validate reports whether the sender and receiver addresses are usable.
func (c ContactComposer) Validate() error {
	if !ValidAddress(c.Receiver) {
		return fmt.Errorf("%w: contact receiver %q", ErrInvalidConfig, c.Receiver)
	}
	if !ValidAddress(c.SenderAddr) {
		return fmt.Errorf("%w: sender address %q", ErrInvalidConfig, c.SenderAddr)
	}
	return nil
}

type contactData struct {
	SiteName string
	Name     string
	Email    string
	Message  string
	Country  string
	Year     int
}

var contactTemplate = template.Must(template.New("contact").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8" />
    <meta name="color-scheme" content="light dark" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <style>
      body { margin: 0; padding: 0; background-color: #f7f9fc; font-family: Arial, Helvetica, sans-serif; color: #333; }
      .container { max-width: 600px; margin: 40px auto; background: #ffffff; border-radius: 8px; box-shadow: 0 2px 8px rgba(0,0,0,0.05); overflow: hidden; }
      .header { background: #111827; color: #ffffff; padding: 20px; text-align: center; }
      .header h1 { margin: 0; font-size: 20px; letter-spacing: 0.5px; }
      .content { padding: 25px 30px; line-height: 1.6; }
      .content h2 { font-size: 18px; margin-bottom: 15px; color: #111827; }
      .content p { margin: 8px 0; }
      .label { font-weight: bold; color: #374151; }
      .footer { text-align: center; font-size: 13px; color: #6b7280; background: #f3f4f6; padding: 15px; }
    </style>
  </head>
  <body>
    <div class="container">
      <div class="header"><h1>{{.SiteName}}</h1></div>
      <div class="content">
        <h2>New Contact Message</h2>
        <p><span class="label">Name:</span> {{.Name}}</p>
        <p><span class="label">Email:</span> {{.Email}}</p>
        {{- if .Country}}
        <p><span class="label">Country:</span> {{.Country}}</p>
        {{- end}}
        <p><span class="label">Message:</span></p>
        <p style="white-space: pre-wrap;">{{.Message}}</p>
      </div>
      <div class="footer">
        Sent from the <b>{{.SiteName}}</b> Contact Form<br />
        <small>&copy; {{.Year}} {{.SiteName}}. All rights reserved.</small>
      </div>
    </div>
  </body>
</html>
`))
