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

// Join adds the user to the session queue, snapshotting their accounts and
// profile-level preferred roles. The checks run in the fixed order the
// command surface relies on for its error messages; the (session, user)
// unique constraint backstops concurrent joins.
func (s *SessionService) Join(ctx context.Context, sessionID sharedtypes.SessionID, userID sharedtypes.UserID) (*sessiondb.QueueEntry, error) {
	s.metrics.RecordOperationAttempt(ctx, "join", serviceName)
	defer s.timeOperation(ctx, "join")()

	session, err := s.SessionDB.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != sessiondb.StatusOpen {
		return nil, fmt.Errorf("%w: #%d is %s", apperrors.ErrSessionClosed, sessionID, session.Status)
	}

	user, err := s.ProfileDB.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.SessionDB.GetQueueEntry(ctx, sessionID, userID); err == nil {
		return nil, fmt.Errorf("%w: session #%d", apperrors.ErrAlreadyInQueue, sessionID)
	}

	accounts, err := s.ProfileDB.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: add an account before joining", apperrors.ErrAccountNotFound)
	}

	accountIDs := make(sharedtypes.AccountIDList, len(accounts))
	for i, account := range accounts {
		accountIDs[i] = account.ID
	}

	entry := &sessiondb.QueueEntry{
		SessionID:      sessionID,
		UserID:         userID,
		AccountIDs:     accountIDs,
		PreferredRoles: user.PreferredRoles,
		IsStreaming:    false,
		JoinedAt:       s.clock.Now(),
	}
	if err := s.SessionDB.InsertQueueEntry(ctx, entry); err != nil {
		s.metrics.RecordOperationFailure(ctx, "join", serviceName)
		return nil, err
	}

	s.logger.InfoContext(ctx, "User joined session queue",
		slog.Int64("session_id", int64(sessionID)),
		slog.String("user_id", string(userID)),
	)
	s.metrics.RecordOperationSuccess(ctx, "join", serviceName)

	s.publishEvent(ctx, events.SessionUpdated, events.SessionUpdatedPayload{SessionID: sessionID})
	return entry, nil
}

// Leave withdraws the user's pending queue entry.
func (s *SessionService) Leave(ctx context.Context, sessionID sharedtypes.SessionID, userID sharedtypes.UserID) error {
	s.metrics.RecordOperationAttempt(ctx, "leave", serviceName)
	defer s.timeOperation(ctx, "leave")()

	deleted, err := s.SessionDB.DeleteQueueEntry(ctx, sessionID, userID)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "leave", serviceName)
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: session #%d", apperrors.ErrNotInQueue, sessionID)
	}

	s.logger.InfoContext(ctx, "User left session queue",
		slog.Int64("session_id", int64(sessionID)),
		slog.String("user_id", string(userID)),
	)
	s.metrics.RecordOperationSuccess(ctx, "leave", serviceName)

	s.publishEvent(ctx, events.SessionUpdated, events.SessionUpdatedPayload{SessionID: sessionID})
	return nil
}

// ToggleStreaming flips the streaming flag on the user's queue entry and
// returns the new value.
func (s *SessionService) ToggleStreaming(ctx context.Context, sessionID sharedtypes.SessionID, userID sharedtypes.UserID) (bool, error) {
	entry, err := s.SessionDB.GetQueueEntry(ctx, sessionID, userID)
	if err != nil {
		return false, err
	}

	streaming := !entry.IsStreaming
	updated, err := s.SessionDB.SetStreaming(ctx, sessionID, userID, streaming)
	if err != nil {
		return false, err
	}
	if !updated {
		return false, fmt.Errorf("%w: session #%d", apperrors.ErrNotInQueue, sessionID)
	}

	s.publishEvent(ctx, events.SessionUpdated, events.SessionUpdatedPayload{SessionID: sessionID})
	return streaming, nil
}
