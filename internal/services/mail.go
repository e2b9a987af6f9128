package services

import (
	"context"

	"github.com/docutrack/docutrack/internal/config"
	"github.com/docutrack/docutrack/internal/log"
	"gopkg.in/gomail.v2"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// MailService sends HTML mail over SMTP. Without a configured host every
// send is skipped with a warning and reported as success.
type MailService struct {
	dialer *gomail.Dialer
	from   string
}

func NewMailService(cfg config.SMTPConfig) *MailService {
	if !cfg.Enabled() {
		return &MailService{}
	}

	from := cfg.From
	if from == "" {
		from = cfg.User
	}

	return &MailService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   from,
	}
}

func (m *MailService) Enabled() bool {
	return m.dialer != nil
}

func (m *MailService) Send(ctx context.Context, to, subject, html string) error {
	if !m.Enabled() {
		log.Warn("SMTP is not configured, skipping email", "to", to, "subject", subject)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	message := gomail.NewMessage()
	message.SetAddressHeader("From", m.from, "Docutrack")
	message.SetHeader("To", to)
	message.SetHeader("Subject", subject)
	message.SetBody("text/html", html)

	return m.dialer.DialAndSend(message)
}
