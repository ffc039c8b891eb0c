package mailer

import (
	"context"
	"fmt"

	"local-services/pkg/utils"

	"gopkg.in/gomail.v2"
)

type SMTPMailer struct {
	dialer   *gomail.Dialer
	from     string
	fromName string
}

func NewSMTPMailer(config utils.EmailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer:   gomail.NewDialer(config.Host, config.Port, config.User, config.Password),
		from:     config.From,
		fromName: config.FromName,
	}
}

func (s *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from, s.fromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	// gomail has no context support; honour cancellation before dialing
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}
