package envelope

import (
	"fmt"
	"sort"
)

// BasicLogger is the logging interface used by logos.  Fields are
// free-form key/value maps.
type BasicLogger interface {
	Debug(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
}

// StdLogger is implmented by the base library log.Logger
type StdLogger interface {
	Print(v ...interface{})
}

type wrappedStdLogger struct {
	log   StdLogger
	debug bool
}

// LoggerFromStd adapts a log.Logger.  Debug messages are dropped
// unless withDebug is true.
func LoggerFromStd(log StdLogger, withDebug bool) BasicLogger {
	return wrappedStdLogger{log: log, debug: withDebug}
}

func (std wrappedStdLogger) print(level string, msg string, fields []map[string]interface{}) {
	vals := make([]interface{}, 0, len(fields)*4+2)
	vals = append(vals, level, " ", msg)
	for _, m := range fields {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			vals = append(vals, " "+k+"="+fmt.Sprint(m[k]))
		}
	}
	std.log.Print(vals...)
}

func (std wrappedStdLogger) Error(msg string, fields ...map[string]interface{}) {
	std.print("ERROR", msg, fields)
}

func (std wrappedStdLogger) Warn(msg string, fields ...map[string]interface{}) {
	std.print("WARN", msg, fields)
}

func (std wrappedStdLogger) Debug(msg string, fields ...map[string]interface{}) {
	if std.debug {
		std.print("DEBUG", msg, fields)
	}
}

// NoLogger returns a BasicLogger that discards all inputs
func NoLogger() BasicLogger {
	return nilLogger{}
}

type nilLogger struct{}

var _ BasicLogger = nilLogger{}

func (_ nilLogger) Error(msg string, fields ...map[string]interface{}) {}
func (_ nilLogger) Warn(msg string, fields ...map[string]interface{})  {}
func (_ nilLogger) Debug(msg string, fields ...map[string]interface{}) {}

// LogFlusher is used to check if a logger implements
// Flush().  This is useful as part of a panic handler.
type LogFlusher interface {
	Flush()
}
