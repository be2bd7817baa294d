package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	"festival-ticketing/logger"

	"gopkg.in/gomail.v2"
)

// Email is the message handed to a Mailer.
type Email struct {
	Recipient    string
	Subject      string
	DisplayName  string
	Title        string
	PlainMessage string
	HTMLBody     string
}

type Mailer interface {
	Send(ctx context.Context, e Email) error
}

type SMTPConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
}

type SMTPMailer struct {
	from   string
	dialer *gomail.Dialer
}

func NewSMTPMailer(c SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		from:   c.FromAddress,
		dialer: gomail.NewDialer(c.Host, c.Port, c.Username, c.Password),
	}
}

func (s *SMTPMailer) Send(ctx context.Context, e Email) error {
	m := gomail.NewMessage()
	from := s.from
	if e.DisplayName != "" {
		from = (&mail.Address{Name: e.DisplayName, Address: s.from}).String()
	}
	m.SetHeader("From", from)
	m.SetHeader("To", e.Recipient)
	m.SetHeader("Subject", e.Subject)
	m.SetBody("text/plain", e.PlainMessage)
	if e.HTMLBody != "" {
		m.AddAlternative("text/html", e.HTMLBody)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// LogMailer only logs. Used when no delivery channel is configured.
type LogMailer struct {
	Log *slog.Logger
}

func NewLogMailer() *LogMailer {
	return &LogMailer{Log: logger.WithComponent("mailer")}
}

func (m *LogMailer) Send(ctx context.Context, e Email) error {
	m.Log.Info("email not sent (log driver)", "recipient", e.Recipient, "subject", e.Subject)
	return nil
}
