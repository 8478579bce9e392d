package interfaces

import (
	"context"

	"github.com/m-mizutani/newman/pkg/domain/model"
)

// WebhookUseCase defines the interface for webhook event processing
type WebhookUseCase interface {
	// ProcessEvent processes a webhook event
	ProcessEvent(ctx context.Context, event *model.WebhookEvent) error
}

// EventHandler handles one routed webhook event
type EventHandler func(ctx context.Context, event *model.WebhookEvent, client GitHubClient) error

// EventDispatcher routes an event to at most one EventHandler
type EventDispatcher interface {
	Dispatch(ctx context.Context, event *model.WebhookEvent, client GitHubClient) error
}

// Notifier announces applied protections outside of GitHub
type Notifier interface {
	Notify(ctx context.Context, report *model.ProtectionReport) error
}
