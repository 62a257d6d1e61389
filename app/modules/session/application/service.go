package sessionservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/five-stack-club/stackbot/app/eventbus"
	profiledb "github.com/five-stack-club/stackbot/app/modules/profile/infrastructure/repositories"
	sessiondb "github.com/five-stack-club/stackbot/app/modules/session/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/internal/eventutil"
	"github.com/five-stack-club/stackbot/internal/observability"
	"github.com/five-stack-club/stackbot/internal/timeutil"
)

const serviceName = "session"

// SessionService is the session lifecycle engine: it enforces status
// transitions, the queue admission ladder and the queue→roster move, and
// recomputes role fulfillment after each mutation.
type SessionService struct {
	SessionDB sessiondb.SessionDB
	ProfileDB profiledb.ProfileDB
	EventBus  eventbus.EventBus
	logger    *slog.Logger
	metrics   observability.Metrics
	clock     timeutil.Clock
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	sessionDB sessiondb.SessionDB,
	profileDB profiledb.ProfileDB,
	bus eventbus.EventBus,
	logger *slog.Logger,
	metrics observability.Metrics,
	clock timeutil.Clock,
) *SessionService {
	return &SessionService{
		SessionDB: sessionDB,
		ProfileDB: profileDB,
		EventBus:  bus,
		logger:    logger,
		metrics:   metrics,
		clock:     clock,
	}
}

// timeOperation starts a wall-clock timer for one operation; deferring the
// returned func records the duration.
func (s *SessionService) timeOperation(ctx context.Context, operation string) func() {
	start := time.Now()
	return func() {
		s.metrics.RecordOperationDuration(ctx, operation, serviceName, time.Since(start))
	}
}

// publishEvent emits a domain event after a committed state change. Events
// are advisory: a failed publish is logged, never propagated, so display
// refresh problems cannot roll back lifecycle state.
func (s *SessionService) publishEvent(ctx context.Context, topic string, payload any) {
	msg, err := eventutil.NewMessage("", payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to build event message",
			slog.String("topic", topic),
			slog.Any("error", err),
		)
		return
	}
	if err := s.EventBus.Publish(topic, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish event",
			slog.String("topic", topic),
			slog.Any("error", err),
		)
		return
	}
	s.logger.DebugContext(ctx, "Event published",
		slog.String("topic", topic),
		slog.String("message_id", msg.UUID),
	)
}
