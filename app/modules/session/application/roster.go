package sessionservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	sessiondb "github.com/five-stack-club/stackbot/app/modules/session/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/app/shared/apperrors"
	"github.com/five-stack-club/stackbot/app/shared/events"
	"github.com/five-stack-club/stackbot/app/shared/gamerules"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
)

// Accept moves a queued user onto the roster in the given role, using the
// chosen account. Creator-only. The queue delete and roster insert are one
// atomic unit; a repeated accept for the same role reports ErrAlreadyAccepted
// without changing anything.
func (s *SessionService) Accept(
	ctx context.Context,
	sessionID sharedtypes.SessionID,
	callerID sharedtypes.UserID,
	queueUserID sharedtypes.UserID,
	accountID sharedtypes.AccountID,
	role gamerules.Role,
) (*sessiondb.RosterEntry, Fulfillment, error) {
	s.metrics.RecordOperationAttempt(ctx, "accept", serviceName)
	defer s.timeOperation(ctx, "accept")()

	session, err := s.SessionDB.GetSession(ctx, sessionID)
	if err != nil {
		return nil, Fulfillment{}, err
	}
	if session.CreatorID != callerID {
		return nil, Fulfillment{}, fmt.Errorf("%w: session #%d", apperrors.ErrSessionPermission, sessionID)
	}

	assigned := role
	if gamerules.RoleRestricted(session.GameMode) {
		if _, ok := gamerules.RoleRequirements(session.GameMode)[role]; !ok {
			return nil, Fulfillment{}, apperrors.Validationf("role", "%q is not a %s role", role, session.GameMode)
		}
	} else {
		// Non-restricted modes ignore the requested role entirely.
		assigned = gamerules.RolePlayer
	}

	entry, err := s.SessionDB.GetQueueEntry(ctx, sessionID, queueUserID)
	if err != nil {
		// A missing queue entry on a repeated accept means the user was
		// already moved onto the roster; report that instead of a queue error.
		if errors.Is(err, apperrors.ErrNotInQueue) {
			roster, lerr := s.SessionDB.ListRoster(ctx, sessionID)
			if lerr != nil {
				return nil, Fulfillment{}, lerr
			}
			for _, accepted := range roster {
				if accepted.UserID == queueUserID && accepted.Role == assigned {
					return nil, Fulfillment{}, fmt.Errorf("%w: %s as %s", apperrors.ErrAlreadyAccepted, queueUserID, assigned)
				}
			}
		}
		return nil, Fulfillment{}, err
	}

	if !slices.Contains(entry.AccountIDs, accountID) {
		return nil, Fulfillment{}, apperrors.Validationf("account", "account %d was not offered for this session", accountID)
	}
	if _, err := s.ProfileDB.GetAccountByID(ctx, queueUserID, accountID); err != nil {
		return nil, Fulfillment{}, err
	}

	roster, err := s.SessionDB.ListRoster(ctx, sessionID)
	if err != nil {
		return nil, Fulfillment{}, err
	}
	fulfillment := ComputeFulfillment(session.GameMode, roster)
	if fulfillment.RoleFull(assigned) {
		return nil, fulfillment, fmt.Errorf("%w: %s", apperrors.ErrSessionFull, assigned)
	}

	rosterEntry := &sessiondb.RosterEntry{
		SessionID:   sessionID,
		UserID:      queueUserID,
		AccountID:   accountID,
		Role:        assigned,
		IsStreaming: entry.IsStreaming,
		SelectedBy:  callerID,
		SelectedAt:  s.clock.Now(),
	}
	if err := s.SessionDB.AcceptQueueEntry(ctx, rosterEntry); err != nil {
		s.metrics.RecordOperationFailure(ctx, "accept", serviceName)
		return nil, fulfillment, err
	}

	roster, err = s.SessionDB.ListRoster(ctx, sessionID)
	if err != nil {
		return nil, Fulfillment{}, fmt.Errorf("failed to recompute fulfillment: %w", err)
	}
	fulfillment = ComputeFulfillment(session.GameMode, roster)

	s.logger.InfoContext(ctx, "Queue entry accepted",
		slog.Int64("session_id", int64(sessionID)),
		slog.String("user_id", string(queueUserID)),
		slog.String("role", string(assigned)),
		slog.Int("accepted", fulfillment.Accepted),
	)
	s.metrics.RecordOperationSuccess(ctx, "accept", serviceName)

	s.publishEvent(ctx, events.SessionUpdated, events.SessionUpdatedPayload{SessionID: sessionID})
	return rosterEntry, fulfillment, nil
}

// Reject removes a user's queue entry without rostering them. Creator-only.
// Rejecting an entry that is already gone reports ErrNotInQueue.
func (s *SessionService) Reject(
	ctx context.Context,
	sessionID sharedtypes.SessionID,
	callerID sharedtypes.UserID,
	queueUserID sharedtypes.UserID,
) error {
	s.metrics.RecordOperationAttempt(ctx, "reject", serviceName)
	defer s.timeOperation(ctx, "reject")()

	session, err := s.SessionDB.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.CreatorID != callerID {
		return fmt.Errorf("%w: session #%d", apperrors.ErrSessionPermission, sessionID)
	}

	deleted, err := s.SessionDB.DeleteQueueEntry(ctx, sessionID, queueUserID)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "reject", serviceName)
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %s", apperrors.ErrNotInQueue, queueUserID)
	}

	s.logger.InfoContext(ctx, "Queue entry rejected",
		slog.Int64("session_id", int64(sessionID)),
		slog.String("user_id", string(queueUserID)),
	)
	s.metrics.RecordOperationSuccess(ctx, "reject", serviceName)

	s.publishEvent(ctx, events.SessionUpdated, events.SessionUpdatedPayload{SessionID: sessionID})
	return nil
}
