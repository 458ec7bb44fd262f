package mail

import (
	"context"

	"github.com/cloudquest-hub/cloudquest/internal/domain/notification"
	"github.com/cloudquest-hub/cloudquest/pkg/logger"
)

// LogDispatcher logs notifications instead of delivering them. Used in
// development when no SMTP relay is available.
type LogDispatcher struct {
	log *logger.Logger
}

// NewLogDispatcher creates a new LogDispatcher.
func NewLogDispatcher(log *logger.Logger) *LogDispatcher {
	if log == nil {
		log = logger.Default()
	}
	return &LogDispatcher{log: log.With(logger.Component("mail"))}
}

// Dispatch validates the notification and logs it without sending.
func (d *LogDispatcher) Dispatch(_ context.Context, n *notification.Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	d.log.Info("mail delivery disabled, dropping notification",
		logger.String("kind", string(n.Kind)),
		logger.String("email", n.Email),
		logger.Achievement(n.Achievement),
	)
	return nil
}
