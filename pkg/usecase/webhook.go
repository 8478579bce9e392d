package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newman/pkg/domain/interfaces"
	"github.com/m-mizutani/newman/pkg/domain/model"
	"github.com/m-mizutani/newman/pkg/utils/logging"
)

type webhookUseCase struct {
	dispatcher   interfaces.EventDispatcher
	githubClient interfaces.GitHubClient
}

// NewWebhook creates a new instance of WebhookUseCase. Every event is
// dispatched with the same GitHub client.
func NewWebhook(dispatcher interfaces.EventDispatcher, githubClient interfaces.GitHubClient) interfaces.WebhookUseCase {
	return &webhookUseCase{
		dispatcher:   dispatcher,
		githubClient: githubClient,
	}
}

// ProcessEvent processes a webhook event. Deliveries are not deduplicated:
// a redelivered event runs its handler again.
func (uc *webhookUseCase) ProcessEvent(ctx context.Context, event *model.WebhookEvent) error {
	logger := logging.From(ctx).With(
		slog.String("delivery_id", event.ID),
		slog.String("event_type", string(event.Type)),
		slog.String("action", event.Action),
	)
	ctx = logging.With(ctx, logger)

	logger.Info("Processing webhook event",
		"repository", event.Repository,
		"sender", event.Sender,
	)

	start := time.Now()
	if err := uc.dispatcher.Dispatch(ctx, event, uc.githubClient); err != nil {
		// Logged once by the caller
		return goerr.Wrap(err, "failed to handle webhook event",
			goerr.V("delivery_id", event.ID),
			goerr.V("event_type", string(event.Type)),
			goerr.V("duration", time.Since(start).String()),
		)
	}

	logger.Info("Processed webhook event", slog.Duration("duration", time.Since(start)))
	return nil
}
