package errs

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newman/pkg/utils/logging"
)

// Handle logs err and, when a Sentry client is bound, reports it. It is
// used for errors that cannot be returned to a caller.
func Handle(ctx context.Context, msg string, err error) {
	if err == nil {
		return
	}

	logging.From(ctx).Error(msg, slog.Any("error", err))

	// Prefer the request scoped hub bound by sentryhttp
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub = hub.Clone()
	if hub.Client() == nil {
		return
	}

	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("message", msg)
		if e := goerr.Unwrap(err); e != nil {
			for k, v := range e.Values() {
				scope.SetExtra(k, v)
			}
		}
	})
	eventID := hub.CaptureException(err)
	logging.From(ctx).Debug("error reported to sentry", slog.Any("event_id", eventID))
}
