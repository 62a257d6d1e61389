package sessionservice

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	profiledb "github.com/five-stack-club/stackbot/app/modules/profile/infrastructure/repositories"
	sessiondb "github.com/five-stack-club/stackbot/app/modules/session/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/app/shared/apperrors"
	"github.com/five-stack-club/stackbot/app/shared/gamerules"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
	"github.com/five-stack-club/stackbot/internal/observability"
	"github.com/five-stack-club/stackbot/internal/timeutil"
)

var testNow = time.Date(2024, 12, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	service   *SessionService
	sessionDB *fakeSessionDB
	profileDB *fakeProfileDB
	bus       *fakeBus
	clock     timeutil.FixedClock
}

func newHarness() *harness {
	sessionDB := newFakeSessionDB()
	profileDB := newFakeProfileDB()
	bus := &fakeBus{}
	clock := timeutil.FixedClock{Instant: testNow}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &harness{
		service:   NewSessionService(sessionDB, profileDB, bus, logger, observability.NoOpMetrics{}, clock),
		sessionDB: sessionDB,
		profileDB: profileDB,
		bus:       bus,
		clock:     clock,
	}
}

func (h *harness) addProfile(t *testing.T, userID sharedtypes.UserID, accountIDs ...sharedtypes.AccountID) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.profileDB.CreateUser(ctx, &profiledb.User{
		UserID:         userID,
		Username:       string(userID),
		PreferredRoles: sharedtypes.RoleList{gamerules.RoleTank, gamerules.RoleDPS},
		Timezone:       "UTC",
	}))
	for _, id := range accountIDs {
		require.NoError(t, h.profileDB.CreateAccount(ctx, &profiledb.GameAccount{
			ID:           id,
			UserID:       userID,
			AccountName:  string(userID) + "#main",
			TankRank:     gamerules.RankGold,
			TankDivision: 3,
		}))
	}
}

func (h *harness) createSession(t *testing.T, creatorID sharedtypes.UserID, mode gamerules.GameMode) *sessiondb.Session {
	t.Helper()
	session, err := h.service.CreateSession(context.Background(), CreateSessionInput{
		CreatorID:     creatorID,
		GuildID:       "guild-1",
		ChannelID:     "channel-1",
		GameMode:      mode,
		ScheduledText: "2024-12-25T19:30",
		Timezone:      "UTC",
	})
	require.NoError(t, err)
	return session
}

func TestCreateSessionValidation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateSessionInput
	}{
		{
			name: "unknown game mode",
			input: CreateSessionInput{
				CreatorID: "creator", GameMode: "3v3",
				ScheduledText: "2024-12-25T19:30", Timezone: "UTC",
			},
		},
		{
			name: "bad timezone",
			input: CreateSessionInput{
				CreatorID: "creator", GameMode: gamerules.ModeFiveVFive,
				ScheduledText: "2024-12-25T19:30", Timezone: "Mars/Olympus_Mons",
			},
		},
		{
			name: "loose time format",
			input: CreateSessionInput{
				CreatorID: "creator", GameMode: gamerules.ModeFiveVFive,
				ScheduledText: "Dec 25 at 7:30pm", Timezone: "UTC",
			},
		},
		{
			name: "time in the past",
			input: CreateSessionInput{
				CreatorID: "creator", GameMode: gamerules.ModeFiveVFive,
				ScheduledText: "2024-11-01T19:30", Timezone: "UTC",
			},
		},
		{
			name: "negative rank spread",
			input: CreateSessionInput{
				CreatorID: "creator", GameMode: gamerules.ModeFiveVFive,
				ScheduledText: "2024-12-25T19:30", Timezone: "UTC", MaxRankDiff: -1,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.addProfile(t, "creator", 1)
			_, err := h.service.CreateSession(context.Background(), tt.input)
			assert.True(t, apperrors.IsValidation(err), "want validation error, got %v", err)
		})
	}
}

func TestCreateSessionRequiresProfile(t *testing.T) {
	h := newHarness()
	_, err := h.service.CreateSession(context.Background(), CreateSessionInput{
		CreatorID: "nobody", GameMode: gamerules.ModeFiveVFive,
		ScheduledText: "2024-12-25T19:30", Timezone: "UTC",
	})
	assert.ErrorIs(t, err, apperrors.ErrProfileNotFound)
}

func TestCreateSessionTimezoneFallback(t *testing.T) {
	h := newHarness()
	h.addProfile(t, "creator", 1)
	h.profileDB.users["creator"].Timezone = "America/New_York"

	session, err := h.service.CreateSession(context.Background(), CreateSessionInput{
		CreatorID: "creator", GuildID: "guild-1", ChannelID: "channel-1",
		GameMode: gamerules.ModeFiveVFive, ScheduledText: "2024-12-25T19:30",
	})
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", session.Timezone)
	// 19:30 EST is 00:30 UTC the next day.
	assert.Equal(t, time.Date(2024, 12, 26, 0, 30, 0, 0, time.UTC), session.ScheduledAt.UTC())
	assert.Equal(t, sessiondb.StatusOpen, session.Status)
	assert.Equal(t, []string{"session.created"}, h.bus.published)
}

func TestJoinLadder(t *testing.T) {
	ctx := context.Background()

	t.Run("session not found", func(t *testing.T) {
		h := newHarness()
		h.addProfile(t, "player", 1)
		_, err := h.service.Join(ctx, 99, "player")
		assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})

	t.Run("session closed", func(t *testing.T) {
		h := newHarness()
		h.addProfile(t, "creator", 1)
		h.addProfile(t, "player", 2)
		session := h.createSession(t, "creator", gamerules.ModeFiveVFive)
		_, err := h.service.ToggleOpenClosed(ctx, session.ID, "creator")
		require.NoError(t, err)

		_, err = h.service.Join(ctx, session.ID, "player")
		assert.ErrorIs(t, err, apperrors.ErrSessionClosed)
	})

	t.Run("no profile", func(t *testing.T) {
		h := newHarness()
		h.addProfile(t, "creator", 1)
		session := h.createSession(t, "creator", gamerules.ModeFiveVFive)

		_, err := h.service.Join(ctx, session.ID, "stranger")
		assert.ErrorIs(t, err, apperrors.ErrProfileNotFound)
	})

	t.Run("no accounts", func(t *testing.T) {
		h := newHarness()
		h.addProfile(t, "creator", 1)
		h.addProfile(t, "player")
		session := h.createSession(t, "creator", gamerules.ModeFiveVFive)

		_, err := h.service.Join(ctx, session.ID, "player")
		assert.ErrorIs(t, err, apperrors.ErrAccountNotFound)
	})

	t.Run("snapshots accounts and roles", func(t *testing.T) {
		h := newHarness()
		h.addProfile(t, "creator", 1)
		h.addProfile(t, "player", 2, 3)
		session := h.createSession(t, "creator", gamerules.ModeFiveVFive)

		entry, err := h.service.Join(ctx, session.ID, "player")
		require.NoError(t, err)
		assert.Equal(t, sharedtypes.AccountIDList{2, 3}, entry.AccountIDs)
		assert.Equal(t, sharedtypes.RoleList{gamerules.RoleTank, gamerules.RoleDPS}, entry.PreferredRoles)
		assert.False(t, entry.IsStreaming)
	})
}

func TestJoinTwice(t *testing.T) {
	h := newHarness()
	h.addProfile(t, "creator", 1)
	h.addProfile(t, "player", 2)
	session := h.createSession(t, "creator", gamerules.ModeFiveVFive)
	ctx := context.Background()

	_, err := h.service.Join(ctx, session.ID, "player")
	require.NoError(t, err)

	_, err = h.service.Join(ctx, session.ID, "player")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyInQueue)

	count, err := h.sessionDB.CountQueue(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLeaveNotQueued(t *testing.T) {
	h := newHarness()
	h.addProfile(t, "creator", 1)
	session := h.createSession(t, "creator", gamerules.ModeFiveVFive)

	err := h.service.Leave(context.Background(), session.ID, "player")
	assert.ErrorIs(t, err, apperrors.ErrNotInQueue)
}

func TestToggleStreaming(t *testing.T) {
	h := newHarness()
	h.addProfile(t, "creator", 1)
	h.addProfile(t, "player", 2)
	session := h.createSession(t, "creator", gamerules.ModeFiveVFive)
	ctx := context.Background()

	_, err := h.service.Join(ctx, session.ID, "player")
	require.NoError(t, err)

	streaming, err := h.service.ToggleStreaming(ctx, session.ID, "player")
	require.NoError(t, err)
	assert.True(t, streaming)

	streaming, err = h.service.ToggleStreaming(ctx, session.ID, "player")
	require.NoError(t, err)
	assert.False(t, streaming)
}

func TestAccept(t *testing.T) {
	h := newHarness()
	h.addProfile(t, "creator", 1)
	h.addProfile(t, "player", 2)
	session := h.createSession(t, "creator", gamerules.ModeFiveVFive)
	ctx := context.Background()

	_, err := h.service.Join(ctx, session.ID, "player")
	require.NoError(t, err)

	entry, fulfillment, err := h.service.Accept(ctx, session.ID, "creator", "player", 2, gamerules.RoleTank)
	require.NoError(t, err)
	assert.Equal(t, gamerules.RoleTank, entry.Role)
	assert.Equal(t, sharedtypes.UserID("creator"), entry.SelectedBy)
	assert.Equal(t, 1, fulfillment.Roles[gamerules.RoleTank].Accepted)

	// The queue entry is gone once rostered.
	_, err = h.sessionDB.GetQueueEntry(ctx, session.ID, "player")
	assert.ErrorIs(t, err, apperrors.ErrNotInQueue)

	// A second identical accept reports the prior acceptance and leaves the
	// roster untouched.
	_, _, err = h.service.Accept(ctx, session.ID, "creator", "player", 2, gamerules.RoleTank)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyAccepted)

	roster, err := h.sessionDB.ListRoster(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, roster, 1)
}

func TestAcceptPermissionAndValidation(t *testing.T) {
	h := newHarness()
	h.addProfile(t, "creator", 1)
	h.addProfile(t, "player", 2)
	session := h.createSession(t, "creator", gamerules.ModeFiveVFive)
	ctx := context.Background()

	_, err := h.service.Join(ctx, session.ID, "player")
	require.NoError(t, err)

	_, _, err = h.service.Accept(ctx, session.ID, "player", "player", 2, gamerules.RoleTank)
	assert.ErrorIs(t, err, apperrors.ErrSessionPermission)

	_, _, err = h.service.Accept(ctx, session.ID, "creator", "player", 2, "flex")
	assert.True(t, apperrors.IsValidation(err), "want validation error, got %v", err)

	// Account 99 was never offered at join time.
	_, _, err = h.service.Accept(ctx, session.ID, "creator", "player", 99, gamerules.RoleTank)
	assert.True(t, apperrors.IsValidation(err), "want validation error, got %v", err)
}

func TestAcceptRoleFull(t *testing.T) {
	h := newHarness()
	h.addProfile(t, "creator", 1)
	session := h.createSession(t, "creator", gamerules.ModeFiveVFive)
	ctx := context.Background()

	players := []sharedtypes.UserID{"p1", "p2"}
	for i, id := range players {
		h.addProfile(t, id, sharedtypes.AccountID(10+i))
		_, err := h.service.Join(ctx, session.ID, id)
		require.NoError(t, err)
	}

	_, _, err := h.service.Accept(ctx, session.ID, "creator", "p1", 10, gamerules.RoleTank)
	require.NoError(t, err)

	// 5v5 has a single tank slot.
	_, _, err = h.service.Accept(ctx, session.ID, "creator", "p2", 11, gamerules.RoleTank)
	assert.ErrorIs(t, err, apperrors.ErrSessionFull)
}

func TestAcceptNonRestrictedMode(t *testing.T) {
	h := newHarness()
	h.addProfile(t, "creator", 1)
	h.addProfile(t, "player", 2)
	session := h.createSession(t, "creator", gamerules.ModeSixVSix)
	ctx := context.Background()

	_, err := h.service.Join(ctx, session.ID, "player")
	require.NoError(t, err)

	// The requested role is ignored outside role-restricted modes.
	entry, fulfillment, err := h.service.Accept(ctx, session.ID, "creator", "player", 2, gamerules.RoleSupport)
	require.NoError(t, err)
	assert.Equal(t, gamerules.RolePlayer, entry.Role)
	assert.False(t, fulfillment.RoleRestricted)
	assert.Equal(t, 1, fulfillment.Accepted)
	assert.Equal(t, 6, fulfillment.TeamSize)
}

func TestReject(t *testing.T) {
	h := newHarness()
	h.addProfile(t, "creator", 1)
	h.addProfile(t, "player", 2)
	session := h.createSession(t, "creator", gamerules.ModeFiveVFive)
	ctx := context.Background()

	_, err := h.service.Join(ctx, session.ID, "player")
	require.NoError(t, err)

	err = h.service.Reject(ctx, session.ID, "player", "player")
	assert.ErrorIs(t, err, apperrors.ErrSessionPermission)

	require.NoError(t, h.service.Reject(ctx, session.ID, "creator", "player"))

	err = h.service.Reject(ctx, session.ID, "creator", "player")
	assert.ErrorIs(t, err, apperrors.ErrNotInQueue)
}

func TestToggleOpenClosed(t *testing.T) {
	h := newHarness()
	h.addProfile(t, "creator", 1)
	session := h.createSession(t, "creator", gamerules.ModeFiveVFive)
	ctx := context.Background()

	status, err := h.service.ToggleOpenClosed(ctx, session.ID, "creator")
	require.NoError(t, err)
	assert.Equal(t, sessiondb.StatusClosed, status)

	status, err = h.service.ToggleOpenClosed(ctx, session.ID, "creator")
	require.NoError(t, err)
	assert.Equal(t, sessiondb.StatusOpen, status)

	_, err = h.service.ToggleOpenClosed(ctx, session.ID, "somebody")
	assert.ErrorIs(t, err, apperrors.ErrSessionPermission)
}

func TestCancelCascades(t *testing.T) {
	h := newHarness()
	h.addProfile(t, "creator", 1)
	h.addProfile(t, "p1", 2)
	h.addProfile(t, "p2", 3)
	session := h.createSession(t, "creator", gamerules.ModeFiveVFive)
	ctx := context.Background()

	_, err := h.service.Join(ctx, session.ID, "p1")
	require.NoError(t, err)
	_, err = h.service.Join(ctx, session.ID, "p2")
	require.NoError(t, err)
	_, _, err = h.service.Accept(ctx, session.ID, "creator", "p1", 2, gamerules.RoleTank)
	require.NoError(t, err)

	require.NoError(t, h.service.Cancel(ctx, session.ID, "creator"))

	board, err := h.service.GetBoard(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, sessiondb.StatusCancelled, board.Session.Status)
	assert.Empty(t, board.Queue)
	assert.Empty(t, board.Roster)

	err = h.service.Cancel(ctx, session.ID, "creator")
	assert.ErrorIs(t, err, apperrors.ErrSessionCancelled)
}

func TestCancelCompletedSession(t *testing.T) {
	h := newHarness()
	h.addProfile(t, "creator", 1)
	session := h.createSession(t, "creator", gamerules.ModeFiveVFive)
	ctx := context.Background()

	updated, err := h.sessionDB.UpdateStatusIf(ctx, session.ID, sessiondb.StatusOpen, sessiondb.StatusCompleted)
	require.NoError(t, err)
	require.True(t, updated)

	err = h.service.Cancel(ctx, session.ID, "creator")
	assert.ErrorIs(t, err, apperrors.ErrSessionFinished)
}

func TestFulfillmentScenario(t *testing.T) {
	h := newHarness()
	h.addProfile(t, "creator", 1)
	session := h.createSession(t, "creator", gamerules.ModeFiveVFive)
	ctx := context.Background()

	accepts := []struct {
		user sharedtypes.UserID
		acct sharedtypes.AccountID
		role gamerules.Role
	}{
		{"p1", 10, gamerules.RoleTank},
		{"p2", 11, gamerules.RoleDPS},
		{"p3", 12, gamerules.RoleSupport},
	}
	for _, a := range accepts {
		h.addProfile(t, a.user, a.acct)
		_, err := h.service.Join(ctx, session.ID, a.user)
		require.NoError(t, err)
		_, _, err = h.service.Accept(ctx, session.ID, "creator", a.user, a.acct, a.role)
		require.NoError(t, err)
	}

	board, err := h.service.GetBoard(ctx, session.ID)
	require.NoError(t, err)

	f := board.Fulfillment
	assert.Equal(t, RoleCount{Accepted: 1, Required: 1}, f.Roles[gamerules.RoleTank])
	assert.Equal(t, RoleCount{Accepted: 1, Required: 2}, f.Roles[gamerules.RoleDPS])
	assert.Equal(t, RoleCount{Accepted: 1, Required: 2}, f.Roles[gamerules.RoleSupport])
	assert.True(t, f.RoleFull(gamerules.RoleTank))
	assert.False(t, f.Full())
}

func TestEventStream(t *testing.T) {
	h := newHarness()
	h.addProfile(t, "creator", 1)
	h.addProfile(t, "player", 2)
	session := h.createSession(t, "creator", gamerules.ModeFiveVFive)
	ctx := context.Background()

	_, err := h.service.Join(ctx, session.ID, "player")
	require.NoError(t, err)
	_, _, err = h.service.Accept(ctx, session.ID, "creator", "player", 2, gamerules.RoleTank)
	require.NoError(t, err)
	require.NoError(t, h.service.Cancel(ctx, session.ID, "creator"))

	assert.Equal(t, []string{
		"session.created",
		"session.updated",
		"session.updated",
		"session.cancelled",
	}, h.bus.published)
}

type spyMetrics struct {
	observability.NoOpMetrics
	timed []string
}

func (m *spyMetrics) RecordOperationDuration(_ context.Context, operation, _ string, _ time.Duration) {
	m.timed = append(m.timed, operation)
}

func TestOperationDurationsRecorded(t *testing.T) {
	h := newHarness()
	metrics := &spyMetrics{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h.service = NewSessionService(h.sessionDB, h.profileDB, h.bus, logger, metrics, h.clock)

	h.addProfile(t, "creator", 1)
	h.addProfile(t, "player", 2)
	session := h.createSession(t, "creator", gamerules.ModeFiveVFive)
	ctx := context.Background()

	_, err := h.service.Join(ctx, session.ID, "player")
	require.NoError(t, err)
	_, _, err = h.service.Accept(ctx, session.ID, "creator", "player", 2, gamerules.RoleTank)
	require.NoError(t, err)
	require.NoError(t, h.service.Cancel(ctx, session.ID, "creator"))

	assert.Equal(t, []string{"create_session", "join", "accept", "cancel"}, metrics.timed)
}

func TestRankCompatibleUsesDivisions(t *testing.T) {
	session := &sessiondb.Session{GameMode: gamerules.ModeFiveVFive, MaxRankDiff: 1}
	account := &profiledb.GameAccount{TankRank: gamerules.RankGold, TankDivision: 3}

	// Gold 2 vs gold 3 is one step apart on the combined scale.
	assert.True(t, RankCompatible(session, account, gamerules.RoleTank, gamerules.RankGold, 2))
	// Gold 5 vs gold 3 is two steps apart and exceeds the spread.
	assert.False(t, RankCompatible(session, account, gamerules.RoleTank, gamerules.RankGold, 5))

	// Unrestricted sessions and roles without a recorded rank always pass.
	open := &sessiondb.Session{GameMode: gamerules.ModeFiveVFive, MaxRankDiff: 0}
	assert.True(t, RankCompatible(open, account, gamerules.RoleTank, gamerules.RankBronze, 5))
	assert.True(t, RankCompatible(session, account, gamerules.RoleSupport, gamerules.RankGold, 3))
}

func TestPublishFailureIsAdvisory(t *testing.T) {
	h := newHarness()
	h.addProfile(t, "creator", 1)
	h.bus.failWith = assert.AnError

	session, err := h.service.CreateSession(context.Background(), CreateSessionInput{
		CreatorID: "creator", GuildID: "guild-1", ChannelID: "channel-1",
		GameMode: gamerules.ModeFiveVFive, ScheduledText: "2024-12-25T19:30", Timezone: "UTC",
	})
	require.NoError(t, err)
	assert.NotZero(t, session.ID)
}
