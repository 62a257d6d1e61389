package sessionservice

import (
	"context"
	"log/slog"
	"time"

	sessiondb "github.com/five-stack-club/stackbot/app/modules/session/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/app/shared/events"
	"github.com/five-stack-club/stackbot/internal/timeutil"
)

// Sweeper periodically completes OPEN sessions whose scheduled time has
// passed. CLOSED sessions are left alone; a creator who closed the queue by
// hand keeps control until they cancel or the session is reopened and expires.
type Sweeper struct {
	service  *SessionService
	interval time.Duration
	logger   *slog.Logger
	clock    timeutil.Clock
}

// NewSweeper creates a sweeper that runs every interval.
func NewSweeper(service *SessionService, interval time.Duration, logger *slog.Logger, clock timeutil.Clock) *Sweeper {
	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   logger,
		clock:    clock,
	}
}

// Run sweeps on a ticker until the context is cancelled. One immediate sweep
// happens on startup so a restart does not leave stale sessions open for a
// full interval.
func (sw *Sweeper) Run(ctx context.Context) error {
	sw.logger.InfoContext(ctx, "Session sweeper started",
		slog.Duration("interval", sw.interval),
	)

	if err := sw.SweepOnce(ctx); err != nil {
		sw.logger.ErrorContext(ctx, "Initial sweep failed", slog.Any("error", err))
	}

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			sw.logger.InfoContext(ctx, "Session sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := sw.SweepOnce(ctx); err != nil {
				sw.logger.ErrorContext(ctx, "Sweep failed", slog.Any("error", err))
			}
		}
	}
}

// SweepOnce completes every expired OPEN session. Each session is transitioned
// independently so one failure never blocks the rest; the conditional update
// makes the sweep safe against concurrent toggles and repeated runs.
func (sw *Sweeper) SweepOnce(ctx context.Context) error {
	now := sw.clock.Now()

	expired, err := sw.service.SessionDB.ListExpiredOpen(ctx, now)
	if err != nil {
		return err
	}

	for _, session := range expired {
		updated, err := sw.service.SessionDB.UpdateStatusIf(ctx, session.ID, sessiondb.StatusOpen, sessiondb.StatusCompleted)
		if err != nil {
			sw.logger.ErrorContext(ctx, "Failed to complete expired session",
				slog.Int64("session_id", int64(session.ID)),
				slog.Any("error", err),
			)
			continue
		}
		if !updated {
			// Status changed under us since the list query; skip.
			continue
		}

		sw.logger.InfoContext(ctx, "Session completed by sweeper",
			slog.Int64("session_id", int64(session.ID)),
			slog.Time("scheduled_at", session.ScheduledAt),
		)
		sw.service.publishEvent(ctx, events.SessionCompleted, events.SessionCompletedPayload{SessionID: session.ID})
	}
	return nil
}
