// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides the structured event log used across backoffice.
//
// Output goes to a rotated file (lumberjack) when a path is given, otherwise
// to stderr. The console UI always logs to a file so log lines never tear the
// alternate screen.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// =============================================================================
// EVENT VOCABULARY
// =============================================================================

// Session lifecycle events.
const (
	EventSessionCreated    = "SESSION_CREATED"
	EventSessionRestored   = "SESSION_RESTORED"
	EventSessionExpired    = "SESSION_EXPIRED"
	EventSessionTerminated = "SESSION_TERMINATED"
	EventSessionInvalid    = "SESSION_INVALID"
	EventLoginFailed       = "LOGIN_FAILED"
	EventLoginThrottled    = "LOGIN_THROTTLED"
	EventLoginSuperseded   = "LOGIN_SUPERSEDED"
	EventStaffRegistered   = "STAFF_REGISTERED"
	EventAccessRedirected  = "ACCESS_REDIRECTED"
)

const timestampFormat = "2006-01-02 15:04:05"

// =============================================================================
// LOGGER
// =============================================================================

// Logger wraps logrus with contextual fields.
type Logger struct {
	*logrus.Logger
	fields logrus.Fields
	closer *closer
}

type closer struct {
	once sync.Once
	c    io.Closer
}

// NewLogger creates a logger at the given level. An unparseable level falls
// back to info. With a logFile, output is rotated at 100 MB keeping three
// compressed backups for 28 days.
func NewLogger(level, logFile string) *Logger {
	log := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	log.SetLevel(logLevel)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
		DisableColors:   true,
	})
	log.SetOutput(os.Stderr)

	l := &Logger{Logger: log, fields: make(logrus.Fields), closer: &closer{}}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0700); err != nil {
			log.Warnf("failed to create log directory, logging to stderr: %v", err)
			return l
		}
		fileLogger := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // MB
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		log.SetOutput(fileLogger)
		l.closer.c = fileLogger
	}

	return l
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Logger{Logger: log, fields: make(logrus.Fields), closer: &closer{}}
}

// WithField adds a field to the logger context.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields adds multiple fields to the logger context.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	newFields := make(logrus.Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &Logger{Logger: l.Logger, fields: newFields, closer: l.closer}
}

// WithComponent adds a component field to the logger.
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithField("component", component)
}

// entry builds a logrus entry from the context fields plus args. An even
// number of args is read as key/value pairs, otherwise as printf arguments.
func (l *Logger) entry(msg string, args []interface{}) (*logrus.Entry, string) {
	e := l.Logger.WithFields(l.fields)
	if len(args) == 0 {
		return e, msg
	}
	if len(args)%2 == 0 {
		fields := make(logrus.Fields, len(args)/2)
		allKeys := true
		for i := 0; i < len(args); i += 2 {
			key, ok := args[i].(string)
			if !ok {
				allKeys = false
				break
			}
			fields[key] = args[i+1]
		}
		if allKeys {
			return e.WithFields(fields), msg
		}
	}
	return e, fmt.Sprintf(msg, args...)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	e, m := l.entry(msg, args)
	e.Debug(m)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	e, m := l.entry(msg, args)
	e.Info(m)
}

// Warning logs a warning message.
func (l *Logger) Warning(msg string, args ...interface{}) {
	e, m := l.entry(msg, args)
	e.Warning(m)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	e, m := l.entry(msg, args)
	e.Error(m)
}

// SessionEvent records a session lifecycle event. Never pass tokens or
// passwords in details.
func (l *Logger) SessionEvent(event, sessionID, email, details string) {
	entry := l.WithFields(map[string]interface{}{
		"event":      event,
		"session_id": sessionID,
	})
	if email != "" {
		entry = entry.WithField("user", email)
	}
	if details != "" {
		entry = entry.WithField("details", details)
	}

	switch event {
	case EventLoginFailed, EventLoginThrottled, EventSessionInvalid:
		entry.Warning("session event")
	default:
		entry.Info("session event")
	}
}

// SetLogLevel dynamically sets the log level.
func (l *Logger) SetLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.Logger.SetLevel(logLevel)
	return nil
}

// SetFormatter switches between "text" and "json" output.
func (l *Logger) SetFormatter(format string) {
	switch format {
	case "json":
		l.Logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	default:
		l.Logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
			DisableColors:   true,
		})
	}
}

// Close closes the rotated log file, if any.
func (l *Logger) Close() error {
	var err error
	l.closer.once.Do(func() {
		if l.closer.c != nil {
			err = l.closer.c.Close()
		}
	})
	return err
}
