package service

import (
	"context"

	"github.com/jaxongirtoshpolatov1225-droid/inv/internal/events"

	"go.uber.org/zap"
)

// publish runs after commit. A sink failure never fails the operation.
func publish(ctx context.Context, pub events.Publisher, logger *zap.Logger, ev events.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, ev); err != nil {
		logger.Warn("Publish event failed",
			zap.String("event_type", ev.Type),
			zap.Error(err),
		)
	}
}
