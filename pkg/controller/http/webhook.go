package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newman/pkg/domain/interfaces"
	"github.com/m-mizutani/newman/pkg/domain/model"
	"github.com/m-mizutani/newman/pkg/domain/types"
	"github.com/m-mizutani/newman/pkg/utils/errs"
	"github.com/m-mizutani/newman/pkg/utils/logging"
	"github.com/tidwall/gjson"
)

const (
	headerEvent        = "X-GitHub-Event"
	headerDelivery     = "X-GitHub-Delivery"
	headerHookID       = "X-GitHub-Hook-ID"
	headerSignature256 = "X-Hub-Signature-256"
	headerSignature1   = "X-Hub-Signature"

	// GitHub caps webhook payloads at 25 MB
	maxPayloadSize = 25 << 20
)

// WebhookHandler handles GitHub webhooks
type WebhookHandler struct {
	secret    string
	webhookUC interfaces.WebhookUseCase
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(secret string, webhookUC interfaces.WebhookUseCase) *WebhookHandler {
	return &WebhookHandler{
		secret:    secret,
		webhookUC: webhookUC,
	}
}

// Handle processes webhook requests
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.From(ctx)

	// Read payload
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadSize))
	if err != nil {
		status := http.StatusBadRequest
		if errors.As(err, new(*http.MaxBytesError)) {
			status = http.StatusRequestEntityTooLarge
		}
		logger.Warn("Failed to read request body", slog.Any("error", err), slog.Int("status", status))
		writeError(w, goerr.Wrap(err, "failed to read request body"), status)
		return
	}
	defer r.Body.Close()

	event, err := Receive(r.Header, body, h.secret)
	if err != nil {
		logger.Warn("Rejected webhook delivery",
			slog.Any("error", err),
			slog.String("delivery_id", r.Header.Get(headerDelivery)),
		)
		writeError(w, err, statusOf(err))
		return
	}

	// Process event via UseCase
	if err := h.webhookUC.ProcessEvent(ctx, event); err != nil {
		status := statusOf(err)
		if status >= http.StatusInternalServerError {
			errs.Handle(ctx, "Failed to process webhook event", err)
		} else {
			logger.Warn("Webhook event rejected by handler", slog.Any("error", err))
		}
		writeError(w, err, status)
		return
	}

	// Success response
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "success",
	}); err != nil {
		logger.Error("Failed to encode success response", "error", err)
	}
}

// Receive verifies a webhook delivery against secret and builds the event.
// Deliveries with a missing or invalid signature fail with an error tagged
// types.ErrTagAuth; malformed deliveries fail with types.ErrTagParse.
func Receive(header http.Header, body []byte, secret string) (*model.WebhookEvent, error) {
	if secret == "" {
		return nil, goerr.New("webhook secret is not configured", goerr.T(types.ErrTagAuth))
	}

	signature := header.Get(headerSignature256)
	if signature == "" {
		signature = header.Get(headerSignature1)
	}
	if signature == "" {
		return nil, goerr.New("missing webhook signature", goerr.T(types.ErrTagAuth))
	}

	contentType := "application/json"
	if v := header.Get("Content-Type"); v != "" {
		mediaType, _, err := mime.ParseMediaType(v)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid Content-Type", goerr.V("content_type", v), goerr.T(types.ErrTagParse))
		}
		contentType = mediaType
	}
	if contentType != "application/json" && contentType != "application/x-www-form-urlencoded" {
		return nil, goerr.New("unsupported Content-Type", goerr.V("content_type", contentType), goerr.T(types.ErrTagParse))
	}

	payload, err := github.ValidatePayloadFromBody(contentType, bytes.NewReader(body), signature, []byte(secret))
	if err != nil {
		return nil, goerr.Wrap(err, "invalid webhook signature", goerr.T(types.ErrTagAuth))
	}

	eventType := header.Get(headerEvent)
	if eventType == "" {
		return nil, goerr.New("missing event type header", goerr.V("header", headerEvent), goerr.T(types.ErrTagParse))
	}
	if !gjson.ValidBytes(payload) || !gjson.ParseBytes(payload).IsObject() {
		return nil, goerr.New("payload is not a JSON object", goerr.V("event_type", eventType), goerr.T(types.ErrTagParse))
	}

	deliveryID := header.Get(headerDelivery)
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	fields := gjson.GetManyBytes(payload, "action", "repository.full_name", "sender.login")
	event := &model.WebhookEvent{
		ID:         deliveryID,
		Type:       model.WebhookEventType(eventType),
		Action:     fields[0].String(),
		HookID:     header.Get(headerHookID),
		Repository: fields[1].String(),
		Sender:     fields[2].String(),
		ReceivedAt: time.Now(),
		RawPayload: payload,
	}

	// Event types unknown to go-github are still routed, without a typed payload
	if slices.Contains(github.MessageTypes(), eventType) {
		typed, err := github.ParseWebHook(eventType, payload)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse webhook payload",
				goerr.V("event_type", eventType),
				goerr.V("delivery_id", deliveryID),
				goerr.T(types.ErrTagParse),
			)
		}
		event.Payload = typed
	}

	return event, nil
}

func statusOf(err error) int {
	switch {
	case goerr.HasTag(err, types.ErrTagAuth):
		return http.StatusUnauthorized
	case goerr.HasTag(err, types.ErrTagParse):
		return http.StatusBadRequest
	case goerr.HasTag(err, types.ErrTagAPI):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
