package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"shiptrack/cmd"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the streaming endpoint and background jobs",
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := cmd.LoadConfig()
			if err != nil {
				return err
			}
			if err := cfg.JWT.Validate(); err != nil {
				return err
			}
			logger := cmd.NewLogger(cfg.LogLevel)
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg cmd.Config, logger *slog.Logger) error {
	app, err := cmd.NewCompositionRoot(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to release resources", "error", err)
		}
	}()

	jobManager := app.Jobs()
	if err := jobManager.StartAll(); err != nil {
		return err
	}
	// Runs after the server has drained, so late samples are flushed too.
	defer jobManager.StopAll()

	subscription, err := app.Subscribe(ctx)
	if err != nil {
		return err
	}

	e, err := app.HTTPServer()
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("Starting server on port %s", cfg.HTTP.Port)
		if err := e.Start(fmt.Sprintf("0.0.0.0:%s", cfg.HTTP.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		app.Gateway().Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if subscription != nil {
		g.Go(func() error {
			defer subscription.Close()
			select {
			case <-subscription.Done():
				if ctx.Err() == nil {
					return errors.New("redis subscription ended unexpectedly")
				}
			case <-gctx.Done():
			}
			return nil
		})
	}

	return g.Wait()
}
