package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New creates and configures a new zerolog logger
func New(logLevel string) zerolog.Logger {
	// Set global log level
	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure console writer for human-readable output in development
	if os.Getenv("API_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Create structured logger with common fields
	logger := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", "curvewatch").
		Logger()

	return logger
}

// WithJob adds job name to logger context
func WithJob(logger zerolog.Logger, jobName string) zerolog.Logger {
	return logger.With().Str("job", jobName).Logger()
}

// WithToken adds token address to logger context
func WithToken(logger zerolog.Logger, token string) zerolog.Logger {
	return logger.With().Str("token", token).Logger()
}

// WithRPCEndpoint adds RPC endpoint to logger context
func WithRPCEndpoint(logger zerolog.Logger, endpoint string) zerolog.Logger {
	return logger.With().Str("rpc_endpoint", endpoint).Logger()
}
