// Package notify defines the narrow delivery interface the portal uses to
// reach citizens. Real SMS/email adapters live outside this repository and
// plug in here.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

type Notification struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers one notification. Delivery is best-effort: callers log
// failures but do not fail the triggering operation.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender is the default adapter: it records the notification in the
// service log instead of delivering it.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, n Notification) error {
	s.logger.Info().Str("to", n.To).Str("subject", n.Subject).Msg("notification (log sender)")
	return nil
}
