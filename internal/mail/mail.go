// Package mail sends transactional email over SMTP.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/hugh/leadboard/pkg/config"
	"gopkg.in/gomail.v2"
)

type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.To, err)
	}
	return nil
}

var resetHTML = template.Must(template.New("reset").Parse(`<p>Hello {{.Name}},</p>
<p>We received a request to reset your password. Use the link below before {{.Expires}}.</p>
<p><a href="{{.URL}}">Reset password</a></p>
<p>If you did not ask for this, ignore this email.</p>`))

// PasswordReset renders the reset email.
func PasswordReset(to, name, url string, expiresAt time.Time) (Message, error) {
	if name == "" {
		name = to
	}
	expires := expiresAt.UTC().Format("2006-01-02 15:04 MST")

	var html bytes.Buffer
	if err := resetHTML.Execute(&html, map[string]string{"Name": name, "URL": url, "Expires": expires}); err != nil {
		return Message{}, fmt.Errorf("rendering reset email: %w", err)
	}

	return Message{
		To:      to,
		Subject: "Reset your password",
		TextBody: fmt.Sprintf("Hello %s,\n\nReset your password before %s:\n%s\n\nIf you did not ask for this, ignore this email.\n",
			name, expires, url),
		HTMLBody: html.String(),
	}, nil
}
