package pipeline

import (
	"context"
	"time"

	"coursegen/internal/logging"
)

func (g *Generator) notifyStarted(ctx context.Context, title string, lessons int) {
	if err := g.notifier.NotifyJobStarted(context.WithoutCancel(ctx), title, lessons); err != nil {
		g.notifyFailedDelivery(ctx, "start", err)
	}
}

func (g *Generator) notifyCompleted(ctx context.Context, title string, lessons, skipped int, elapsed time.Duration) {
	if err := g.notifier.NotifyJobCompleted(context.WithoutCancel(ctx), title, lessons, skipped, elapsed); err != nil {
		g.notifyFailedDelivery(ctx, "completion", err)
	}
}

func (g *Generator) notifyFailed(ctx context.Context, title, summary string) {
	if err := g.notifier.NotifyJobFailed(context.WithoutCancel(ctx), title, summary); err != nil {
		g.notifyFailedDelivery(ctx, "failure", err)
	}
}

func (g *Generator) notifyFailedDelivery(ctx context.Context, kind string, err error) {
	logger := logging.WithContext(ctx, g.logger)
	logger.Debug("notification failed",
		logging.String("notification", kind),
		logging.Error(err),
	)
}
