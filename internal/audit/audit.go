// Package audit appends a line-oriented activity trail of query
// pipeline events. The file is human-readable, not a contract other
// components parse back.
package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const LogFileName = "audit.log"

// Logger records the four pipeline event kinds: cache hit, request
// dispatched, validation rejected, error. Writing is best-effort; an
// unopenable log file degrades to a no-op logger rather than failing
// the invocation.
type Logger struct {
	log *logrus.Logger
}

// DefaultPath returns the per-user audit log location.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".plausctl", LogFileName), nil
}

// New opens (or creates) the audit log at path in append mode.
func New(path string) *Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
		DisableColors:   true,
	})

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		log.SetOutput(io.Discard)
		return &Logger{log: log}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		log.SetOutput(io.Discard)
		return &Logger{log: log}
	}
	log.SetOutput(file)
	return &Logger{log: log}
}

// Discard returns a logger that records nothing, for tests and callers
// that opt out of auditing.
func Discard() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &Logger{log: log}
}

// CacheHit records a query served from cache.
func (l *Logger) CacheHit(siteID, queryHash string) {
	l.log.WithFields(logrus.Fields{
		"event":      "cache_hit",
		"site_id":    siteID,
		"query_hash": queryHash,
	}).Info("query served from cache")
}

// RequestDispatched records a remote call.
func (l *Logger) RequestDispatched(siteID, queryHash string) {
	l.log.WithFields(logrus.Fields{
		"event":      "request_dispatched",
		"site_id":    siteID,
		"query_hash": queryHash,
	}).Info("query dispatched to upstream API")
}

// ValidationRejected records a query stopped before any I/O.
func (l *Logger) ValidationRejected(code, message string) {
	l.log.WithFields(logrus.Fields{
		"event": "validation_rejected",
		"code":  code,
	}).Warn(message)
}

// Error records a pipeline failure.
func (l *Logger) Error(code string, err error) {
	l.log.WithFields(logrus.Fields{
		"event": "error",
		"code":  code,
	}).Error(err.Error())
}
