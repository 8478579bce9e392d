package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newman/pkg/cli/config"
	githubcontroller "github.com/m-mizutani/newman/pkg/controller/github"
	controller "github.com/m-mizutani/newman/pkg/controller/http"
	"github.com/m-mizutani/newman/pkg/domain/model"
	githubinfra "github.com/m-mizutani/newman/pkg/infra/github"
	"github.com/m-mizutani/newman/pkg/usecase"
	"github.com/m-mizutani/newman/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		githubCfg config.GitHub
		policyCfg config.Policy
		slackCfg  config.Slack
		sentryCfg config.Sentry
	)

	var flags []cli.Flag
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, githubCfg.Flags()...)
	flags = append(flags, policyCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.From(ctx)

			addr, err := serverCfg.ListenAddr()
			if err != nil {
				return err
			}

			sentryEnabled, err := sentryCfg.Configure()
			if err != nil {
				return err
			}

			logger.Info("Starting newman server",
				slog.String("addr", addr),
				slog.Any("github", githubCfg),
				slog.String("policy", policyCfg.Path),
				slog.Bool("slack", slackCfg.WebhookURL != ""),
				slog.Bool("sentry", sentryEnabled),
			)

			// Create GitHub client
			clientOpts, err := githubCfg.ClientOptions()
			if err != nil {
				return err
			}
			githubClient, err := githubinfra.NewClient(clientOpts...)
			if err != nil {
				return goerr.Wrap(err, "failed to create GitHub client")
			}

			// Create handlers
			protectorOpts, err := policyCfg.ProtectorOptions()
			if err != nil {
				return err
			}
			if notifier := slackCfg.Notifier(); notifier != nil {
				protectorOpts = append(protectorOpts, usecase.WithNotifier(notifier))
			}
			protector, err := usecase.NewProtector(protectorOpts...)
			if err != nil {
				return goerr.Wrap(err, "failed to create protector")
			}

			router, err := githubcontroller.NewRouter(
				githubcontroller.Route{
					Event:   model.EventTypeRepository,
					Action:  model.ActionCreated,
					Handler: protector.HandleRepositoryCreated,
				},
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create event router")
			}

			// Create use cases
			webhookUC := usecase.NewWebhook(router, githubClient)

			// Create HTTP server with options
			server, err := controller.NewServer(
				ctx,
				webhookUC,
				controller.WithAddr(addr),
				controller.WithWebhookSecret(githubCfg.WebhookSecret),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					serverErr <- goerr.Wrap(err, "HTTP server error", goerr.V("addr", addr))
				}
				close(serverErr)
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			case err := <-serverErr:
				if err != nil {
					return err
				}
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
