package github

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newman/pkg/domain/interfaces"
	"github.com/m-mizutani/newman/pkg/domain/model"
	"github.com/m-mizutani/newman/pkg/domain/types"
	"github.com/m-mizutani/newman/pkg/utils/logging"
)

// Route binds an event type and action to a handler. An empty Action
// matches events of the type that no action-specific route claims.
type Route struct {
	Event   model.WebhookEventType
	Action  string
	Handler interfaces.EventHandler
}

type routeKey struct {
	event  model.WebhookEventType
	action string
}

// Router maps (event type, action) pairs to handlers. It is immutable after
// NewRouter returns and safe for concurrent use.
type Router struct {
	routes map[routeKey]interfaces.EventHandler
}

var _ interfaces.EventDispatcher = (*Router)(nil)

// NewRouter builds a routing table. Duplicate pairs and nil handlers are rejected.
func NewRouter(routes ...Route) (*Router, error) {
	table := make(map[routeKey]interfaces.EventHandler, len(routes))

	for _, route := range routes {
		if route.Event == "" {
			return nil, goerr.New("route event type is empty", goerr.V("action", route.Action), goerr.T(types.ErrTagConfig))
		}
		if route.Handler == nil {
			return nil, goerr.New("route handler is nil",
				goerr.V("event", route.Event),
				goerr.V("action", route.Action),
				goerr.T(types.ErrTagConfig),
			)
		}

		key := routeKey{event: route.Event, action: route.Action}
		if _, exists := table[key]; exists {
			return nil, goerr.New("route already registered",
				goerr.V("event", route.Event),
				goerr.V("action", route.Action),
				goerr.T(types.ErrTagConfig),
			)
		}
		table[key] = route.Handler
	}

	return &Router{routes: table}, nil
}

// Lookup returns the handler for event, or nil when no route matches
func (r *Router) Lookup(event *model.WebhookEvent) interfaces.EventHandler {
	if event.HasAction() {
		if handler, ok := r.routes[routeKey{event: event.Type, action: event.Action}]; ok {
			return handler
		}
	}
	return r.routes[routeKey{event: event.Type}]
}

// Dispatch invokes the handler matching event. Events without a matching
// route are ignored and nil is returned.
func (r *Router) Dispatch(ctx context.Context, event *model.WebhookEvent, client interfaces.GitHubClient) error {
	logger := logging.From(ctx)

	handler := r.Lookup(event)
	if handler == nil {
		logger.Debug("Ignoring event without route",
			slog.String("event_type", string(event.Type)),
			slog.String("action", event.Action),
		)
		return nil
	}

	return handler(ctx, event, client)
}

// Len returns the number of registered routes
func (r *Router) Len() int {
	return len(r.routes)
}
