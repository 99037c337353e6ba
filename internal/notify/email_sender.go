package notify

import (
	"context"
	"time"

	gomail "gopkg.in/mail.v2"

	"github.com/shanehull/annwatch/internal/config"
)

// EmailSender delivers messages via SMTP.
type EmailSender struct {
	cfg  config.EmailConfig
	dial func(ctx context.Context, m *gomail.Message) error
}

// NewEmailSender creates a sender with the given SMTP configuration.
func NewEmailSender(cfg config.EmailConfig) *EmailSender {
	s := &EmailSender{cfg: cfg}
	s.dial = s.dialAndSend
	return s
}

func (s *EmailSender) Name() string { return "email" }

// Send delivers an email with HTML body and plain text fallback.
func (s *EmailSender) Send(ctx context.Context, msg *RenderedMessage) error {
	if !s.cfg.Enabled {
		return nil
	}
	return s.dial(ctx, s.buildMessage(msg))
}

func (s *EmailSender) buildMessage(msg *RenderedMessage) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.FromEmail)
	m.SetHeader("To", s.cfg.ToEmail)
	m.SetHeader("Subject", msg.Subject)

	if msg.HTML != "" && msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		m.AddAlternative("text/html", msg.HTML)
	} else if msg.HTML != "" {
		m.SetBody("text/html", msg.HTML)
	} else {
		m.SetBody("text/plain", msg.Text)
	}
	return m
}

func (s *EmailSender) dialAndSend(ctx context.Context, m *gomail.Message) error {
	dialer := gomail.NewDialer(s.cfg.SMTPServer, s.cfg.SMTPPort, s.cfg.SMTPUser, s.cfg.SMTPPass)
	dialer.Timeout = 10 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 && d < dialer.Timeout {
			dialer.Timeout = d
		}
	}
	return dialer.DialAndSend(m)
}
