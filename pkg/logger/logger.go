package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the leveled, field-aware logging interface used across the
// application. It is backed by zerolog.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
	Fatalf(format string, v ...interface{})
	WithModule(name string) Logger
	WithFields(fields map[string]interface{}) Logger
}

// NewLogger builds a Logger at the given level. An optional file path adds
// a secondary append-only output next to the console writer. Unknown levels
// fall back to info.
func NewLogger(level string, file ...string) Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if len(file) > 0 && file[0] != "" {
		f, ferr := os.OpenFile(file[0], os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if ferr != nil {
			fallback := zerolog.New(out)
			fallback.Error().Err(ferr).Str("file", file[0]).Msg("log file unavailable, console only")
		} else {
			out = zerolog.MultiLevelWriter(out, f)
		}
	}

	zl := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return &zeroLogger{zl: zl}
}

type zeroLogger struct {
	zl zerolog.Logger
}

func (l *zeroLogger) Debugf(format string, v ...interface{}) { l.zl.Debug().Msgf(format, v...) }
func (l *zeroLogger) Infof(format string, v ...interface{})  { l.zl.Info().Msgf(format, v...) }
func (l *zeroLogger) Warnf(format string, v ...interface{})  { l.zl.Warn().Msgf(format, v...) }
func (l *zeroLogger) Errorf(format string, v ...interface{}) { l.zl.Error().Msgf(format, v...) }
func (l *zeroLogger) Fatalf(format string, v ...interface{}) { l.zl.Fatal().Msgf(format, v...) }

func (l *zeroLogger) WithModule(name string) Logger {
	return &zeroLogger{zl: l.zl.With().Str("module", name).Logger()}
}

func (l *zeroLogger) WithFields(fields map[string]interface{}) Logger {
	return &zeroLogger{zl: l.zl.With().Fields(fields).Logger()}
}
