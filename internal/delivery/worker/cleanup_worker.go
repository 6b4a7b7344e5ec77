// Package worker contains background deliveries that run beside the HTTP
// server.
package worker

import (
	"context"
	"log/slog"
	"time"

	"workshop/config"
	"workshop/internal/delivery"
	"workshop/internal/usecase"

	"go.uber.org/fx"
)

// cleanupWorker periodically sweeps expired and revoked token rows.
type cleanupWorker struct {
	sessions usecase.SessionUsecase
	interval time.Duration
	logger   *slog.Logger
	stop     chan struct{}
}

// CleanupParams holds dependencies for the cleanup worker.
type CleanupParams struct {
	fx.In

	Lc       fx.Lifecycle
	Cfg      *config.Config
	Logger   *slog.Logger
	Sessions usecase.SessionUsecase
}

// NewCleanupWorker creates the sweep delivery.
func NewCleanupWorker(params CleanupParams) (delivery.Delivery, error) {
	interval := time.Hour
	if params.Cfg.Auth != nil && params.Cfg.Auth.SweepInterval > 0 {
		interval = params.Cfg.Auth.SweepInterval
	}

	w := &cleanupWorker{
		sessions: params.Sessions,
		interval: interval,
		logger:   params.Logger,
		stop:     make(chan struct{}),
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			close(w.stop)

			return nil
		},
	})

	return w, nil
}

// Serve runs the sweep loop until the lifecycle stops it.
func (w *cleanupWorker) Serve(ctx context.Context) error {
	w.logger.Info("Starting session sweep worker", slog.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-w.stop:
			w.logger.Info("Stopping session sweep worker")

			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *cleanupWorker) sweep(ctx context.Context) {
	removed, err := w.sessions.CleanupExpiredSessions(ctx)
	if err != nil {
		w.logger.Error("Session sweep failed", slog.Any("error", err))

		return
	}

	if removed > 0 {
		w.logger.Info("Session sweep completed", slog.Int64("removed", removed))
	}
}
