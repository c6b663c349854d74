package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogChannel writes messages to the log instead of delivering them.
// Used for dry runs and local development.
type LogChannel struct {
	logger zerolog.Logger
}

// NewLogChannel creates a log-only channel
func NewLogChannel(logger zerolog.Logger) *LogChannel {
	return &LogChannel{logger: logger.With().Str("component", "log_channel").Logger()}
}

func (l *LogChannel) Name() string {
	return "log"
}

func (l *LogChannel) Send(_ context.Context, recipientID, text string) error {
	l.logger.Info().
		Str("recipient", recipientID).
		Str("text", text).
		Msg("Dry-run alert delivery")
	return nil
}
