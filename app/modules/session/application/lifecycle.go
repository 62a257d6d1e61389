package sessionservice

import (
	"context"
	"fmt"
	"log/slog"

	sessiondb "github.com/five-stack-club/stackbot/app/modules/session/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/app/shared/apperrors"
	"github.com/five-stack-club/stackbot/app/shared/events"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
)

// ToggleOpenClosed flips an OPEN session to CLOSED or a CLOSED session back
// to OPEN and returns the new status. Creator-only. Terminal sessions cannot
// be toggled.
func (s *SessionService) ToggleOpenClosed(ctx context.Context, sessionID sharedtypes.SessionID, callerID sharedtypes.UserID) (sessiondb.Status, error) {
	s.metrics.RecordOperationAttempt(ctx, "toggle_status", serviceName)
	defer s.timeOperation(ctx, "toggle_status")()

	session, err := s.SessionDB.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session.CreatorID != callerID {
		return "", fmt.Errorf("%w: session #%d", apperrors.ErrSessionPermission, sessionID)
	}

	var from, to sessiondb.Status
	switch session.Status {
	case sessiondb.StatusOpen:
		from, to = sessiondb.StatusOpen, sessiondb.StatusClosed
	case sessiondb.StatusClosed:
		from, to = sessiondb.StatusClosed, sessiondb.StatusOpen
	case sessiondb.StatusCancelled:
		return "", fmt.Errorf("%w: #%d", apperrors.ErrSessionCancelled, sessionID)
	default:
		return "", fmt.Errorf("%w: #%d", apperrors.ErrSessionFinished, sessionID)
	}

	updated, err := s.SessionDB.UpdateStatusIf(ctx, sessionID, from, to)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "toggle_status", serviceName)
		return "", err
	}
	if !updated {
		// Lost a race with the sweeper or a concurrent toggle.
		current, err := s.SessionDB.GetSession(ctx, sessionID)
		if err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: #%d is now %s", apperrors.ErrSessionClosed, sessionID, current.Status)
	}

	s.logger.InfoContext(ctx, "Session status toggled",
		slog.Int64("session_id", int64(sessionID)),
		slog.String("status", string(to)),
	)
	s.metrics.RecordOperationSuccess(ctx, "toggle_status", serviceName)

	s.publishEvent(ctx, events.SessionUpdated, events.SessionUpdatedPayload{SessionID: sessionID})
	return to, nil
}

// Cancel marks the session CANCELLED and destroys its queue and roster in one
// transaction. Creator-only. Cancelling an already-terminal session reports
// which terminal state it is in.
func (s *SessionService) Cancel(ctx context.Context, sessionID sharedtypes.SessionID, callerID sharedtypes.UserID) error {
	s.metrics.RecordOperationAttempt(ctx, "cancel", serviceName)
	defer s.timeOperation(ctx, "cancel")()

	session, err := s.SessionDB.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.CreatorID != callerID {
		return fmt.Errorf("%w: session #%d", apperrors.ErrSessionPermission, sessionID)
	}
	switch session.Status {
	case sessiondb.StatusCancelled:
		return fmt.Errorf("%w: #%d", apperrors.ErrSessionCancelled, sessionID)
	case sessiondb.StatusCompleted:
		return fmt.Errorf("%w: #%d", apperrors.ErrSessionFinished, sessionID)
	}

	cancelled, err := s.SessionDB.CancelSession(ctx, sessionID)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "cancel", serviceName)
		return err
	}
	if !cancelled {
		return fmt.Errorf("%w: #%d", apperrors.ErrSessionFinished, sessionID)
	}

	s.logger.InfoContext(ctx, "Session cancelled",
		slog.Int64("session_id", int64(sessionID)),
		slog.String("creator_id", string(callerID)),
	)
	s.metrics.RecordOperationSuccess(ctx, "cancel", serviceName)

	s.publishEvent(ctx, events.SessionCancelled, events.SessionCancelledPayload{SessionID: sessionID})
	return nil
}
