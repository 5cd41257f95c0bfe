package utils

import (
	"crypto/tls"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/cppla/yatube/config"
)

// MailSender delivers a plain text message.
type MailSender interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends mail through the configured SMTP relay.
type SMTPMailer struct{}

// Send implements MailSender using gomail.
func (SMTPMailer) Send(to, subject, body string) error {
	cfg := config.Get()
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
		return fmt.Errorf("smtp not configured")
	}
	fromName := cfg.SMTPFromName
	if fromName == "" {
		fromName = "Yatube"
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", cfg.SMTPFrom, fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	d.TLSConfig = &tls.Config{ServerName: cfg.SMTPHost}
	return d.DialAndSend(m)
}

// LogMailer writes messages to the log instead of sending them; used when SMTP is not configured.
type LogMailer struct{}

// Send implements MailSender.
func (LogMailer) Send(to, subject, body string) error {
	Sugar.Infow("outgoing mail", "to", to, "subject", subject, "body", body)
	return nil
}

// DefaultMailer picks SMTP when configured and logging otherwise.
func DefaultMailer() MailSender {
	if config.Get().SMTPHost == "" {
		return LogMailer{}
	}
	return SMTPMailer{}
}
