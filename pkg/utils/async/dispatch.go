package async

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/newman/pkg/utils/errs"
	"github.com/m-mizutani/newman/pkg/utils/logging"
)

// Dispatch runs handler on its own goroutine with a context detached from
// ctx cancellation. The logger and Sentry hub of ctx are carried over.
// Returned errors and panics are logged and reported; they never reach the
// caller. The returned channel is closed once handler has finished.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) <-chan struct{} {
	newCtx := newBackgroundContext(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger := logging.From(newCtx)
				logger.Error("panic in async handler",
					"recover", r,
					"stack", string(stack))
				sentry.GetHubFromContext(newCtx).Recover(fmt.Sprint(r))
			}
		}()

		if err := handler(newCtx); err != nil {
			errs.Handle(newCtx, "error in async handler", err)
		}
	}()

	return done
}

func newBackgroundContext(ctx context.Context) context.Context {
	newCtx := context.Background()
	newCtx = logging.With(newCtx, logging.From(ctx))

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	newCtx = sentry.SetHubOnContext(newCtx, hub.Clone())
	return newCtx
}
