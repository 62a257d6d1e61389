package profileservice

import (
	"context"
	"log/slog"
	"time"

	profiledb "github.com/five-stack-club/stackbot/app/modules/profile/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/internal/observability"
)

const serviceName = "profile"

// ProfileService handles profile and game-account logic.
type ProfileService struct {
	ProfileDB profiledb.ProfileDB
	logger    *slog.Logger
	metrics   observability.Metrics
}

// NewProfileService creates a new ProfileService.
func NewProfileService(db profiledb.ProfileDB, logger *slog.Logger, metrics observability.Metrics) *ProfileService {
	return &ProfileService{
		ProfileDB: db,
		logger:    logger,
		metrics:   metrics,
	}
}

// timeOperation starts a wall-clock timer for one operation; deferring the
// returned func records the duration.
func (s *ProfileService) timeOperation(ctx context.Context, operation string) func() {
	start := time.Now()
	return func() {
		s.metrics.RecordOperationDuration(ctx, operation, serviceName, time.Since(start))
	}
}
