package app

import (
	"context"
	"fmt"
	"log/slog"
)

// Start opens the Discord gateway and launches the background loops. It
// blocks until the context is cancelled, then shuts everything down in
// reverse order.
func (app *App) Start(ctx context.Context) error {
	if err := app.Bot.Start(ctx); err != nil {
		return fmt.Errorf("failed to start Discord bot: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := app.Announcer.Run(runCtx); err != nil && runCtx.Err() == nil {
			app.Logger.Error("Announcer exited", slog.Any("error", err))
			cancel()
		}
	}()
	go func() {
		if err := app.Sweeper.Run(runCtx); err != nil && runCtx.Err() == nil {
			app.Logger.Error("Sweeper exited", slog.Any("error", err))
			cancel()
		}
	}()
	go func() {
		if err := app.APIServer.Run(runCtx); err != nil && runCtx.Err() == nil {
			app.Logger.Error("HTTP server exited", slog.Any("error", err))
			cancel()
		}
	}()

	<-runCtx.Done()

	if err := app.Bot.Stop(); err != nil {
		app.Logger.Error("Failed to close Discord session", slog.Any("error", err))
	}
	app.Close()
	return nil
}
