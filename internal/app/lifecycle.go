package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"memoria.io/portal/internal/pkg/logger"
)

// Start starts the background services: River workers and the refresh
// poll loop.
func (a *Application) Start(ctx context.Context) error {
	if a.DB != nil && a.DB.RiverClient != nil {
		if err := a.DB.RiverClient.Start(ctx); err != nil {
			return fmt.Errorf("start river client: %w", err)
		}
		logger.Info("River client started, jobs will now be consumed")
	}

	if err := a.coordinator.Start(); err != nil {
		return fmt.Errorf("start refresh coordinator: %w", err)
	}
	logger.Info("Refresh coordinator started")
	return nil
}

// Shutdown gracefully shuts down all application components.
func (a *Application) Shutdown() {
	shutdownCtx := context.Background()

	if a.DB != nil && a.DB.RiverClient != nil {
		if err := a.DB.RiverClient.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop river client", zap.Error(err))
		}
		logger.Info("River client stopped")
	}

	// Cancels the poll loop and waits for in-flight refreshes.
	if a.Pools != nil {
		a.Pools.Shutdown()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
