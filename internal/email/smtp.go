package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds SMTP connection parameters.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string // optional - some servers allow unauthenticated relay
	Password string // optional
	From     string // default sender address
	FromName string // optional sender display name
}

// SMTPSender implements Sender using go-mail.
// TLS mode is picked from the port: 465 implicit TLS, 587 mandatory
// STARTTLS, anything else opportunistic.
type SMTPSender struct {
	config SMTPConfig
	logger *slog.Logger
}

// NewSMTPSender creates an SMTP sender from a config struct.
func NewSMTPSender(config SMTPConfig, logger *slog.Logger) *SMTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{config: config, logger: logger}
}

// Send sends an email via SMTP.
func (s *SMTPSender) Send(ctx context.Context, email *Email) (string, error) {
	msg := mail.NewMsg()

	if email.From != "" {
		if err := msg.From(email.From); err != nil {
			return "", errors.Join(ErrInvalidFromAddress, err)
		}
	} else if s.config.FromName != "" {
		if err := msg.FromFormat(s.config.FromName, s.config.From); err != nil {
			return "", errors.Join(ErrInvalidFromAddress, err)
		}
	} else if err := msg.From(s.config.From); err != nil {
		return "", errors.Join(ErrInvalidFromAddress, err)
	}

	if err := msg.To(email.To...); err != nil {
		return "", errors.Join(ErrInvalidToAddress, err)
	}
	msg.Subject(email.Subject)

	switch {
	case email.HTMLBody != "" && email.TextBody != "":
		msg.SetBodyString(mail.TypeTextPlain, email.TextBody)
		msg.AddAlternativeString(mail.TypeTextHTML, email.HTMLBody)
	case email.HTMLBody != "":
		msg.SetBodyString(mail.TypeTextHTML, email.HTMLBody)
	default:
		msg.SetBodyString(mail.TypeTextPlain, email.TextBody)
	}

	for key, value := range email.Headers {
		msg.SetGenHeader(mail.Header(key), value)
	}
	msg.SetMessageID()

	client, err := mail.NewClient(s.config.Host, s.clientOptions(30*time.Second)...)
	if err != nil {
		return "", fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		s.logger.Error("smtp: failed to send email", "subject", email.Subject, "error", err)
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	messageID := msg.GetGenHeader(mail.HeaderMessageID)
	s.logger.Info("smtp: email sent", "to", email.To, "subject", email.Subject)
	if len(messageID) > 0 {
		return messageID[0], nil
	}
	return "", nil
}

// TestConnection verifies SMTP connectivity and authentication without
// sending anything.
func (s *SMTPSender) TestConnection(ctx context.Context) error {
	client, err := mail.NewClient(s.config.Host, s.clientOptions(10*time.Second)...)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	return client.Close()
}

func (s *SMTPSender) clientOptions(timeout time.Duration) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.config.Port),
		mail.WithTimeout(timeout),
	}

	switch s.config.Port {
	case 465:
		opts = append(opts, mail.WithSSL())
	case 587:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		// 25, or 1025 for Mailpit in development
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	if s.config.Username != "" && s.config.Password != "" {
		opts = append(opts,
			mail.WithUsername(s.config.Username),
			mail.WithPassword(s.config.Password),
			mail.WithSMTPAuth(mail.SMTPAuthAutoDiscover),
		)
	}
	return opts
}

var _ Sender = (*SMTPSender)(nil)

// NewSenderFromConfig picks the transport for config. Without a host mail is
// only logged. Otherwise the SMTP server is checked once: when strict, an
// unreachable server is an error; when not, it is logged and mail falls back
// to the log.
func NewSenderFromConfig(ctx context.Context, config SMTPConfig, strict bool, logger *slog.Logger) (Sender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Host == "" {
		logger.Warn("SMTP host not set, emails will only be logged")
		return NewLogSender(logger), nil
	}

	smtp := NewSMTPSender(config, logger)
	if err := smtp.TestConnection(ctx); err != nil {
		if strict {
			return nil, fmt.Errorf("smtp %s:%d unreachable: %w", config.Host, config.Port, err)
		}
		logger.Warn("SMTP server unreachable, emails will only be logged",
			"host", config.Host,
			"port", config.Port,
			"error", err,
		)
		return NewLogSender(logger), nil
	}
	return smtp, nil
}
