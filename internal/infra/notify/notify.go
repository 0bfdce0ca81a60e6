// Package notify delivers operator notifications to the log and, optionally, by email.
package notify

import (
	"context"
	"log/slog"

	"github.com/vietddude/docket/internal/core/domain"
)

// Notifier delivers a notification to the operator.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a notifier logging through log, or the default logger when nil.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

// Notify implements Notifier.
func (l *LogNotifier) Notify(ctx context.Context, n domain.Notification) error {
	level := slog.LevelInfo
	if n.Severity == domain.SeverityError {
		level = slog.LevelError
	}
	l.log.Log(ctx, level, n.Message, "subject", n.Subject)
	return nil
}

// Multi fans a notification out to every notifier.
// Delivery failures are logged and never returned, so a broken mail relay
// cannot fail the run.
type Multi struct {
	notifiers []Notifier
}

// NewMulti creates a fan-out notifier.
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

// Notify implements Notifier.
func (m *Multi) Notify(ctx context.Context, n domain.Notification) error {
	for _, nt := range m.notifiers {
		if err := nt.Notify(ctx, n); err != nil {
			slog.Warn("Failed to deliver notification", "subject", n.Subject, "error", err)
		}
	}
	return nil
}
