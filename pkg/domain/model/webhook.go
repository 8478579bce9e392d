package model

import "time"

// WebhookEventType represents the type of webhook event received
type WebhookEventType string

const (
	EventTypeRepository WebhookEventType = "repository"
	EventTypePing       WebhookEventType = "ping"
)

// Actions of the repository event
const (
	ActionCreated = "created"
	ActionDeleted = "deleted"
)

// WebhookEvent represents a webhook delivery received from GitHub. It is
// built once by the receiver and never modified afterwards.
type WebhookEvent struct {
	ID         string           // Retrieved from X-GitHub-Delivery header
	Type       WebhookEventType // Retrieved from X-GitHub-Event header
	Action     string           // Payload "action" field, empty if absent
	HookID     string           // Retrieved from X-GitHub-Hook-ID header
	Repository string           // Repository full name
	Sender     string           // Sender username
	ReceivedAt time.Time        // Time when the event was received
	RawPayload []byte           // Verified JSON payload

	// Payload is the go-github typed event, nil when the event type is not
	// known to go-github
	Payload any
}

// HasAction reports whether the payload carried an action field
func (e *WebhookEvent) HasAction() bool {
	return e.Action != ""
}
