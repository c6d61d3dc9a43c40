package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// consoleSender logs emails instead of delivering them. Used in development
// and whenever no sendgrid key is configured.
type consoleSender struct {
	logger zerolog.Logger
}

var _ EmailSender = (*consoleSender)(nil)

func NewConsoleSender(logger zerolog.Logger) EmailSender {
	return &consoleSender{logger: logger}
}

func (s *consoleSender) Send(_ context.Context, msg *Message) error {
	s.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Body).
		Msg("Email (console backend)")
	return nil
}
