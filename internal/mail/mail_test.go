package mail_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gateway/internal/mail"
)

func composer() mail.ContactComposer {
	return mail.ContactComposer{
		SiteName:   "Endless Forge",
		SenderName: "Endless Forge",
		SenderAddr: "noreply@endlessforge.com",
		Receiver:   "admin@endlessforge.com",
		Now:        func() time.Time { return time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC) },
	}
}

func TestContactComposer_Compose(t *testing.T) {
	t.Parallel()

	msg, err := composer().Compose(mail.ContactMessage{
		Name:    "Ada",
		Email:   "ada@example.com",
		Message: "Hello there",
		Country: "ID",
	})
	require.NoError(t, err)

	assert.Equal(t, "Message from Ada at Endless Forge", msg.Subject)
	assert.Equal(t, `"Endless Forge" <noreply@endlessforge.com>`, msg.From)
	assert.Equal(t, `"Site Admin" <admin@endlessforge.com>`, msg.To)
	assert.Equal(t, `"Ada" <ada@example.com>`, msg.ReplyTo)
	assert.Equal(t, "New message from Ada (ada@example.com) [ID]:\n\nHello there", msg.TextBody)
	assert.Contains(t, msg.HTMLBody, "Hello there")
	assert.Contains(t, msg.HTMLBody, "&copy; 2026 Endless Forge")
	assert.Equal(t, "contact", msg.Tag)
}

func TestContactComposer_EscapesHTML(t *testing.T) {
	t.Parallel()

	msg, err := composer().Compose(mail.ContactMessage{
		Name:    "<b>x</b>",
		Email:   "not-an-address",
		Message: "<script>alert(1)</script>",
	})
	require.NoError(t, err)

	assert.NotContains(t, msg.HTMLBody, "<script>")
	assert.Contains(t, msg.HTMLBody, "&lt;script&gt;")
	assert.Empty(t, msg.ReplyTo, "unparseable submitter address must not become Reply-To")
	assert.NotContains(t, msg.HTMLBody, "Country:")
}

func TestEmail_Validate(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, mail.Email{Subject: "s", TextBody: "b"}.Validate(), mail.ErrInvalidEmail)
	assert.ErrorIs(t, mail.Email{To: "a@b.c", TextBody: "b"}.Validate(), mail.ErrInvalidEmail)
	assert.ErrorIs(t, mail.Email{To: "a@b.c", Subject: "s"}.Validate(), mail.ErrInvalidEmail)
	assert.NoError(t, mail.Email{To: "a@b.c", Subject: "s", HTMLBody: "<p>b</p>"}.Validate())
	assert.ErrorIs(t, mail.Email{To: mail.FormatAddress("Site Admin", ""), Subject: "s", TextBody: "b"}.Validate(), mail.ErrInvalidEmail)
}

func TestNewPostmarkSender_RequiresServerToken(t *testing.T) {
	t.Parallel()

	s, err := mail.NewPostmarkSender(mail.PostmarkConfig{})
	assert.Nil(t, s)
	assert.ErrorIs(t, err, mail.ErrInvalidConfig)
}

func TestPostmarkSender_Send(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ErrorCode":0,"Message":"OK","MessageID":"abc"}`))
	}))
	defer srv.Close()

	s, err := mail.NewPostmarkSender(mail.PostmarkConfig{ServerToken: "tok", BaseURL: srv.URL})
	require.NoError(t, err)

	msg, err := composer().Compose(mail.ContactMessage{Name: "Ada", Email: "ada@example.com", Message: "hi"})
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), msg))

	assert.Equal(t, "Message from Ada at Endless Forge", got["Subject"])
	assert.Equal(t, "contact", got["Tag"])
}

func TestPostmarkSender_RelayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ErrorCode":300,"Message":"Invalid email request"}`))
	}))
	defer srv.Close()

	s, err := mail.NewPostmarkSender(mail.PostmarkConfig{ServerToken: "tok", BaseURL: srv.URL})
	require.NoError(t, err)

	msg, err := composer().Compose(mail.ContactMessage{Name: "Ada", Email: "ada@example.com", Message: "hi"})
	require.NoError(t, err)

	err = s.Send(context.Background(), msg)
	require.Error(t, err)
	assert.ErrorIs(t, err, mail.ErrFailedToSend)
}

func TestLogSender_Send(t *testing.T) {
	t.Parallel()

	var buf strings.Builder
	s := mail.LogSender{Logger: zerolog.New(&buf)}
	require.NoError(t, s.Send(context.Background(), mail.Email{To: "a@b.c", Subject: "s", TextBody: "b"}))
	assert.Contains(t, buf.String(), `"subject":"s"`)

	assert.ErrorIs(t, s.Send(context.Background(), mail.Email{}), mail.ErrInvalidEmail)
}

func TestContactComposer_RequiresAddresses(t *testing.T) {
	t.Parallel()

	noReceiver := composer()
	noReceiver.Receiver = ""
	_, err := noReceiver.Compose(mail.ContactMessage{Name: "Ada", Email: "ada@example.com", Message: "hi"})
	assert.ErrorIs(t, err, mail.ErrInvalidConfig)

	badSender := composer()
	badSender.SenderAddr = "not-an-address"
	assert.ErrorIs(t, badSender.Validate(), mail.ErrInvalidConfig)

	assert.NoError(t, composer().Validate())
}
