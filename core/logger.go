package core

import "log"

// Logger is any service that can report application events; implementations
// may ship them to an external tracker (see services/logger).
type Logger interface {
	Enable(enabled bool)
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

type stdLogger struct {
	std     *log.Logger
	enabled bool
}

var _ Logger = (*stdLogger)(nil)

func NewStdLogger(std *log.Logger) *stdLogger {
	return &stdLogger{std: std, enabled: true}
}

func (l *stdLogger) Enable(enabled bool) { l.enabled = enabled }

func (l *stdLogger) print(level, msg string, args []interface{}) {
	if !l.enabled {
		return
	}
	l.std.Printf("%s: %s", level, msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l *stdLogger) Debug(msg string, args ...interface{}) { l.print("DEBUG", msg, args) }
func (l *stdLogger) Info(msg string, args ...interface{})  { l.print("INFO", msg, args) }
func (l *stdLogger) Warn(msg string, args ...interface{})  { l.print("WARN", msg, args) }
func (l *stdLogger) Error(msg string, args ...interface{}) { l.print("ERROR", msg, args) }
