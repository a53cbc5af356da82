package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianndofor/wif/internal/server"
	"github.com/brianndofor/wif/internal/slack"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const eventRetention = 24 * time.Hour

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Slack webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := app.Config
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			log := app.Logger

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sc := slack.New(cfg.Slack.BotToken, log)
			srv := server.New(server.Options{
				SigningSecret: cfg.Slack.SigningSecret,
				QueueSize:     cfg.Server.QueueSize,
				ReadTimeout:   cfg.Server.ReadTimeout,
			}, app.Store, sc, log)
			worker := server.NewWorker(app.Pipeline, server.SlackConversations{Client: sc}, app.Store, log)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				addr := cfg.ServerAddr()
				log.Infow("listening", "addr", addr, "webhook", server.WebhookPath)
				if err := srv.Listen(addr); err != nil {
					return fmt.Errorf("server stopped: %w", err)
				}
				return nil
			})
			g.Go(func() error {
				return worker.Run(gctx, srv.Jobs())
			})
			g.Go(func() error {
				pruneEvents(gctx, app)
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Infow("shutting down", "timeout", cfg.Server.ShutdownTimeout)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	return cmd
}

// pruneEvents drops delivery ids older than the retention window once an
// hour.
func pruneEvents(ctx context.Context, app *App) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.Store.PruneEvents(time.Now().Add(-eventRetention))
			if err != nil {
				app.Logger.Warnw("failed to prune events", "error", err)
				continue
			}
			app.Logger.Debugw("pruned events", "count", n)
		}
	}
}
