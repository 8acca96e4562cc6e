package main

import (
	"io"

	"github.com/goliatone/go-logger/glog"
	logic "github.com/goliatone/go-logic"
)

// glogLogger adapts a go-logger instance to the engine Logger contract.
type glogLogger struct {
	logger glog.Logger
}

func newLogger(out io.Writer, level string, json bool) logic.Logger {
	if json {
		return glogLogger{logger: glog.NewLogger(
			glog.WithWriter(out),
			glog.WithLoggerTypeJSON(),
			glog.WithLevel(level),
		)}
	}
	return glogLogger{logger: glog.NewLogger(
		glog.WithWriter(out),
		glog.WithLevel(level),
	)}
}

func (l glogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l glogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l glogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l glogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l glogLogger) WithFields(fields map[string]any) logic.Logger {
	if fl, ok := l.logger.(glog.FieldsLogger); ok {
		return glogLogger{logger: fl.WithFields(fields)}
	}
	return l
}
