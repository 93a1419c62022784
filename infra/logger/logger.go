package logger

import corelogger "github.com/kilianp07/timetabler/core/logger"

// Logger is the core logging interface.
type Logger = corelogger.Logger

// NopLogger discards everything. Tests use it.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

// New returns a Logger for the given component. The output format follows
// APP_ENV and the level follows LOG_LEVEL.
func New(component string) Logger {
	return NewZerologLogger(component)
}
