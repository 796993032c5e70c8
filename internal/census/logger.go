package census

import "github.com/rs/zerolog"

// leveledLogger routes retryablehttp's messages into zerolog.
type leveledLogger struct {
	l zerolog.Logger
}

func (z leveledLogger) Error(msg string, keysAndValues ...any) {
	z.l.Error().Fields(keysAndValues).Msg(msg)
}

func (z leveledLogger) Info(msg string, keysAndValues ...any) {
	z.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (z leveledLogger) Debug(msg string, keysAndValues ...any) {
	z.l.Debug().Fields(keysAndValues).Msg(msg)
}

func (z leveledLogger) Warn(msg string, keysAndValues ...any) {
	z.l.Warn().Fields(keysAndValues).Msg(msg)
}
