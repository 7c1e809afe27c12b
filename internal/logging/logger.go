package logging

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Interface describes the minimal logging interface the collectors rely on.
type Interface interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

var (
	globalLogger *zerologAdapter
	once         sync.Once
)

// Logger returns a lazily initialized zerolog-backed logger implementing Interface.
// The level is read from LOG_LEVEL (debug, info, warn, error); default info.
func Logger() Interface {
	once.Do(initGlobal)
	return globalLogger
}

// Component returns a logger tagged with the service role it belongs to
// (discovery, match-summary-worker, ...). Shares the global level.
func Component(name string) Interface {
	once.Do(initGlobal)
	sub := globalLogger.log.With().Str("component", name).Logger()
	return &zerologAdapter{log: sub}
}

func initGlobal() {
	base := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(parseLevel(os.Getenv("LOG_LEVEL")))
	globalLogger = &zerologAdapter{log: base}
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type zerologAdapter struct {
	log zerolog.Logger
}

func (l *zerologAdapter) Infof(format string, args ...interface{}) {
	l.log.Info().Msgf(format, args...)
}

func (l *zerologAdapter) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l *zerologAdapter) Debugf(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l *zerologAdapter) Warnf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}
