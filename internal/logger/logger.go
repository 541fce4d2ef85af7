package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger for a long-running service:
// human-readable console output in development, JSON elsewhere, with the
// service name stamped on every line.
func Setup(service, appEnv, level string) {
	if appEnv == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}
	log.Logger = log.With().Str("service", service).Logger()

	zerolog.SetGlobalLevel(parseLevel(level, zerolog.InfoLevel))

	log.Info().Str("level", zerolog.GlobalLevel().String()).Msg("Logger initialized")
}

// SetupCLI keeps command output readable: diagnostics go to stderr, and
// the service-wide info default is treated as warn so logs do not mix
// into printed results. Debug and trace still work for troubleshooting.
func SetupCLI(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})

	parsed := parseLevel(level, zerolog.WarnLevel)
	if parsed == zerolog.InfoLevel {
		parsed = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(parsed)
}

func parseLevel(level string, fallback zerolog.Level) zerolog.Level {
	if level == "" {
		return fallback
	}
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return fallback
	}
	return parsed
}
