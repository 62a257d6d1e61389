package sessionservice

import (
	"context"
	"log/slog"

	sessiondb "github.com/five-stack-club/stackbot/app/modules/session/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/app/shared/apperrors"
	"github.com/five-stack-club/stackbot/app/shared/events"
	"github.com/five-stack-club/stackbot/app/shared/gamerules"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
	"github.com/five-stack-club/stackbot/internal/timeutil"
)

// CreateSessionInput is the payload for CreateSession. Timezone falls back to
// the creator's profile timezone when empty; MaxRankDiff of zero means
// unrestricted.
type CreateSessionInput struct {
	CreatorID     sharedtypes.UserID
	GuildID       sharedtypes.GuildID
	ChannelID     sharedtypes.ChannelID
	GameMode      gamerules.GameMode
	ScheduledText string
	Timezone      string
	Description   string
	MaxRankDiff   int
}

// CreateSession validates and stores a new OPEN session.
func (s *SessionService) CreateSession(ctx context.Context, input CreateSessionInput) (*sessiondb.Session, error) {
	s.metrics.RecordOperationAttempt(ctx, "create_session", serviceName)
	defer s.timeOperation(ctx, "create_session")()

	creator, err := s.ProfileDB.GetUser(ctx, input.CreatorID)
	if err != nil {
		return nil, err
	}

	timezone := input.Timezone
	if timezone == "" {
		timezone = creator.Timezone
	}

	if !gamerules.ValidGameMode(input.GameMode) {
		return nil, apperrors.Validationf("game_mode", "%q is not a valid game mode", input.GameMode)
	}
	if !timeutil.ValidateTimezone(timezone) {
		return nil, apperrors.Validationf("timezone", "%q is not a recognized IANA timezone", timezone)
	}
	if input.MaxRankDiff < 0 {
		return nil, apperrors.Validationf("max_rank_diff", "must be zero or positive; zero disables the restriction")
	}

	naive, err := timeutil.ParseScheduledTime(input.ScheduledText)
	if err != nil {
		return nil, apperrors.Validationf("time", "use the format YYYY-MM-DDTHH:MM, e.g. 2024-12-25T19:30")
	}
	scheduledAt, err := timeutil.LocalToUTC(naive, timezone)
	if err != nil {
		return nil, apperrors.Validationf("timezone", "%q is not a recognized IANA timezone", timezone)
	}
	if timeutil.IsPast(s.clock, scheduledAt) {
		return nil, apperrors.Validationf("time", "cannot schedule a session in the past")
	}

	session := &sessiondb.Session{
		CreatorID:   input.CreatorID,
		GuildID:     input.GuildID,
		ChannelID:   input.ChannelID,
		GameMode:    input.GameMode,
		ScheduledAt: scheduledAt,
		Timezone:    timezone,
		Description: input.Description,
		MaxRankDiff: input.MaxRankDiff,
		Status:      sessiondb.StatusOpen,
	}
	if err := s.SessionDB.CreateSession(ctx, session); err != nil {
		s.metrics.RecordOperationFailure(ctx, "create_session", serviceName)
		return nil, err
	}

	s.logger.InfoContext(ctx, "Session created",
		slog.Int64("session_id", int64(session.ID)),
		slog.String("creator_id", string(session.CreatorID)),
		slog.String("game_mode", string(session.GameMode)),
	)
	s.metrics.RecordOperationSuccess(ctx, "create_session", serviceName)

	s.publishEvent(ctx, events.SessionCreated, events.SessionCreatedPayload{
		SessionID: session.ID,
		GuildID:   session.GuildID,
		ChannelID: session.ChannelID,
	})
	return session, nil
}

// RecordAnnouncement stores the channel/message pair of the rendered
// announcement so it can be edited later.
func (s *SessionService) RecordAnnouncement(ctx context.Context, sessionID sharedtypes.SessionID, channelID sharedtypes.ChannelID, messageID sharedtypes.MessageID) error {
	return s.SessionDB.SetAnnouncement(ctx, sessionID, channelID, messageID)
}
