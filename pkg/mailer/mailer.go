// Package mailer delivers the transactional emails of the marketplace
// (verification codes and password reset codes).
package mailer

import (
	"context"
	"fmt"

	"local-services/pkg/utils"

	"go.uber.org/zap"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// New picks a driver from config. Unknown drivers fall back to the log driver.
func New(config utils.EmailConfig, log *zap.Logger) (Mailer, error) {
	switch config.Driver {
	case "smtp":
		if config.Host == "" || config.From == "" {
			return nil, fmt.Errorf("smtp mailer needs SMTP_HOST and EMAIL_FROM")
		}
		return NewSMTPMailer(config), nil
	case "mailersend":
		if config.MailerSendAPIKey == "" || config.From == "" {
			return nil, fmt.Errorf("mailersend mailer needs MAILERSEND_API_KEY and EMAIL_FROM")
		}
		return NewMailerSendMailer(config.MailerSendAPIKey, config.FromName, config.From), nil
	case "", "log":
		return NewLogMailer(log), nil
	default:
		log.Warn("Unknown mail driver, using log driver", zap.String("driver", config.Driver))
		return NewLogMailer(log), nil
	}
}

// LogMailer writes messages to the application log instead of sending them.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log.With(zap.String("mailer", "log"))}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, html string) error {
	m.log.Info("Email",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", html),
	)
	return nil
}
