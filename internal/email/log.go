package email

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// LogSender writes emails to the log instead of delivering them. Used when no
// SMTP host is configured, or in dev when the SMTP server is unreachable.
type LogSender struct {
	logger *slog.Logger
	seq    atomic.Int64
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, email *Email) (string, error) {
	if len(email.To) == 0 {
		return "", ErrInvalidToAddress
	}
	id := fmt.Sprintf("log-%d", s.seq.Add(1))
	s.logger.InfoContext(ctx, "email not delivered (log sender)",
		"message_id", id,
		"to", email.To,
		"subject", email.Subject,
		"body", email.TextBody,
	)
	return id, nil
}

var _ Sender = (*LogSender)(nil)
