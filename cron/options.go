package cron

import (
	"fmt"
	"io"
	"strings"
	"time"

	logic "github.com/goliatone/go-logic"
)

// LogLevel filters what the underlying cron runner reports.
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelDebug
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLocation evaluates cron expressions and stamps run times in loc.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		s.location = loc
	}
}

// WithLogger routes runner messages through an engine logger. Ticks are
// reported at debug, failures at error.
func WithLogger(logger logic.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithLogWriter prints runner messages to w when no logger is set.
func WithLogWriter(w io.Writer) Option {
	return func(s *Scheduler) {
		s.logWriter = w
	}
}

func WithLogLevel(level LogLevel) Option {
	return func(s *Scheduler) {
		s.logLevel = level
	}
}

// WithErrorHandler receives failed dispatches and recovered job panics.
func WithErrorHandler(handler func(error)) Option {
	return func(s *Scheduler) {
		s.errorHandler = handler
	}
}

// WithSeconds accepts six-field expressions with a leading seconds field.
func WithSeconds() Option {
	return func(s *Scheduler) {
		s.seconds = true
	}
}

// runnerLog reports cron runner activity on a logic.Logger.
type runnerLog struct {
	logger logic.Logger
	level  LogLevel
}

func (l runnerLog) Info(msg string, keysAndValues ...any) {
	if l.level < LogLevelInfo {
		return
	}
	line := "cron " + msg + pairs(keysAndValues)
	if l.level >= LogLevelDebug {
		l.logger.Debug("%s", line)
		return
	}
	l.logger.Info("%s", line)
}

func (l runnerLog) Error(err error, msg string, keysAndValues ...any) {
	if l.level < LogLevelError {
		return
	}
	line := "cron " + msg + pairs(keysAndValues)
	if err != nil {
		line += fmt.Sprintf(" error=%v", err)
	}
	l.logger.Error("%s", line)
}

// panicSink hands recovered job panics to the scheduler's error handler.
type panicSink struct {
	handler func(error)
}

func (panicSink) Info(string, ...any) {}

func (p panicSink) Error(err error, msg string, keysAndValues ...any) {
	if err == nil {
		err = fmt.Errorf("%s%s", msg, pairs(keysAndValues))
	}
	p.handler(err)
}

// pairs renders robfig key/value arguments as " k=v k=v".
func pairs(keysAndValues []any) string {
	if len(keysAndValues) == 0 {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(keysAndValues); i += 2 {
		b.WriteByte(' ')
		if i+1 == len(keysAndValues) {
			fmt.Fprintf(&b, "%v", keysAndValues[i])
			break
		}
		fmt.Fprintf(&b, "%v=%v", keysAndValues[i], keysAndValues[i+1])
	}
	return b.String()
}
