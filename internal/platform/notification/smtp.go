package notification

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"
)

// SMTPConfig carries the settings needed to deliver mail.
type SMTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	FromName  string
	FromEmail string
}

// Configured reports whether the sender can actually deliver mail.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.Port > 0 && c.FromEmail != ""
}

// SMTPSender delivers email over plain SMTP. When the configuration is
// incomplete it logs the message and returns nil instead of failing, matching
// the degraded behavior expected in development environments.
type SMTPSender struct {
	cfg    SMTPConfig
	logger zerolog.Logger
}

func NewSMTPSender(cfg SMTPConfig, logger zerolog.Logger) *SMTPSender {
	return &SMTPSender{cfg: cfg, logger: logger}
}

func (s *SMTPSender) SendEmail(_ context.Context, to, subject, body string) error {
	if !s.cfg.Configured() {
		s.logger.Debug().
			Str("to", to).
			Str("subject", subject).
			Msg("email configuration incomplete, skipping actual send")
		return nil
	}

	msg := fmt.Sprintf("From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s",
		s.cfg.FromName, s.cfg.FromEmail, to, subject, body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.User != "" && s.cfg.Password != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.FromEmail, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
