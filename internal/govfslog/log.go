// Package govfslog provides the subject-prefixed logging helpers shared by
// every GVFS component. Calls carry an explicit subject (a path, a session
// id, an enlistment root) rather than relying on a single global logger
// instance, so callers can attribute a log line to the thing it is about.
package govfslog

import (
	"github.com/sirupsen/logrus"
)

// Logger is the minimal surface every component depends on. Tests can supply
// a recording fake; production code uses New().
type Logger interface {
	Infof(subject, format string, args ...interface{})
	Debugf(subject, format string, args ...interface{})
	Errorf(subject, format string, args ...interface{})
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New wraps a *logrus.Logger as a Logger. Pass logrus.StandardLogger() for
// the process-wide default.
func New(base *logrus.Logger) Logger {
	if base == nil {
		base = logrus.StandardLogger()
	}
	return &logrusLogger{entry: logrus.NewEntry(base)}
}

func (l *logrusLogger) Infof(subject, format string, args ...interface{}) {
	l.entry.WithField("subject", subject).Infof(format, args...)
}

func (l *logrusLogger) Debugf(subject, format string, args ...interface{}) {
	l.entry.WithField("subject", subject).Debugf(format, args...)
}

func (l *logrusLogger) Errorf(subject, format string, args ...interface{}) {
	l.entry.WithField("subject", subject).Errorf(format, args...)
}

// Discard is a Logger that drops every message; useful in tests that don't
// care about log output.
var Discard Logger = discardLogger{}

type discardLogger struct{}

func (discardLogger) Infof(string, string, ...interface{})  {}
func (discardLogger) Debugf(string, string, ...interface{}) {}
func (discardLogger) Errorf(string, string, ...interface{}) {}
