package workflow

import (
	"context"
	"errors"

	"followup/internal/logging"
	"followup/internal/notifications"
)

// publish is fire-and-forget: delivery errors are logged and swallowed.
func (r *Runner) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if r.deps.Notifier == nil {
		return
	}
	if err := r.deps.Notifier.Publish(ctx, event, payload); err != nil {
		logger := logging.WithContext(ctx, r.logger)
		if errors.Is(err, context.Canceled) {
			logger.Debug("run cancelled, notification not sent", logging.String("event", string(event)))
			return
		}
		logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}
