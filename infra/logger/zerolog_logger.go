package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

var defaults = struct {
	sync.RWMutex
	level   string
	console bool
}{level: "info"}

// Configure sets the level and format used by loggers created afterwards
// when LOG_LEVEL and APP_ENV are unset.
func Configure(level string, console bool) {
	defaults.Lock()
	defaults.level, defaults.console = level, console
	defaults.Unlock()
}

// NewZerologLogger writes to stdout, as console output when APP_ENV=dev and
// as JSON lines otherwise. Every entry carries the component field.
func NewZerologLogger(component string) Logger {
	defaults.RLock()
	level, console := defaults.level, defaults.console
	defaults.RUnlock()
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		console = strings.ToLower(env) == "dev"
	}
	var out io.Writer = os.Stdout
	if console {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewWithWriter(out, component, ParseLevel(level))
}

// NewWithWriter builds a logger on an arbitrary writer.
func NewWithWriter(w io.Writer, component string, level zerolog.Level) Logger {
	z := zerolog.New(w).Level(level).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: z}
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
