// Package notifier contains delivery adapters for the core's Notifier
// port. Real transports (mail, push) hang off the same interface; the
// log notifier is the default for development and tests.
package notifier

import (
	"context"
	"log/slog"

	"github.com/vecinet/portal/internal/core/ports"
)

type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) ports.Notifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, contact, subject, body string) error {
	n.logger.Info("notification dispatched",
		"contact", contact,
		"subject", subject,
		"body", body,
	)
	return nil
}
