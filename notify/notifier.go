// Package notify delivers operator-facing error notifications. The
// orchestration layer treats notification as a fire-and-forget side
// channel: a failing notifier must never mask the error being reported.
package notify

import (
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
)

// Notifier reports an error from a named pipeline stage together with
// contextual key-value pairs (file name, source type). Implementations
// must not return errors; delivery problems are their own to log.
type Notifier interface {
	NotifyError(stage string, err error, source string, context map[string]string)
}

// Desktop sends desktop notifications via beeep and logs the error.
// Notification delivery failures are logged and swallowed.
type Desktop struct {
	logger zerolog.Logger
}

// NewDesktop creates a Desktop notifier.
func NewDesktop(logger zerolog.Logger) *Desktop {
	return &Desktop{logger: logger}
}

// NotifyError implements Notifier.
func (d *Desktop) NotifyError(stage string, err error, source string, context map[string]string) {
	event := d.logger.Error().Err(err).Str("stage", stage).Str("source", source)
	for k, v := range context {
		event = event.Str(k, v)
	}
	event.Msg("Stage failed")

	if notifErr := beeep.Notify(stage+" failed", err.Error(), ""); notifErr != nil {
		// Common causes: notification permissions not granted, or no
		// notification daemon on the host.
		d.logger.Warn().Err(notifErr).Msg("Failed to send desktop notification")
	}
}

// Log records notifications in the structured log only.
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a Log notifier.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger}
}

// NotifyError implements Notifier.
func (l *Log) NotifyError(stage string, err error, source string, context map[string]string) {
	event := l.logger.Error().Err(err).Str("stage", stage).Str("source", source)
	for k, v := range context {
		event = event.Str(k, v)
	}
	event.Msg("Stage failed")
}

// Nop discards notifications. Used by tests.
type Nop struct{}

// NotifyError implements Notifier.
func (Nop) NotifyError(string, error, string, map[string]string) {}

var (
	_ Notifier = (*Desktop)(nil)
	_ Notifier = (*Log)(nil)
	_ Notifier = Nop{}
)
