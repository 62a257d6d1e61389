package discord

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sessionservice "github.com/five-stack-club/stackbot/app/modules/session/application"
	sessiondb "github.com/five-stack-club/stackbot/app/modules/session/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/app/shared/gamerules"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
)

func testBoard(mode gamerules.GameMode, status sessiondb.Status) *sessionservice.Board {
	session := &sessiondb.Session{
		ID:          7,
		CreatorID:   "creator",
		GuildID:     "guild-1",
		ChannelID:   "channel-1",
		GameMode:    mode,
		ScheduledAt: time.Date(2024, 12, 25, 19, 30, 0, 0, time.UTC),
		Timezone:    "UTC",
		Status:      status,
	}
	roster := []sessiondb.RosterEntry{
		{SessionID: 7, UserID: "p1", Role: gamerules.RoleTank, IsStreaming: true},
	}
	if !gamerules.RoleRestricted(mode) {
		roster[0].Role = gamerules.RolePlayer
	}
	return &sessionservice.Board{
		Session: session,
		Queue: []sessiondb.QueueEntry{
			{SessionID: 7, UserID: "p2", PreferredRoles: sharedtypes.RoleList{gamerules.RoleDPS}},
		},
		QueueCount:  1,
		Roster:      roster,
		Fulfillment: sessionservice.ComputeFulfillment(mode, roster),
	}
}

func TestSessionEmbedRoleRestricted(t *testing.T) {
	embed := SessionEmbed(testBoard(gamerules.ModeFiveVFive, sessiondb.StatusOpen))

	assert.Equal(t, "5v5 Session #7", embed.Title)
	assert.Equal(t, colorOpen, embed.Color)
	assert.Contains(t, embed.Description, "**Status:** OPEN")
	assert.Contains(t, embed.Description, "<@creator>")

	require.Len(t, embed.Fields, 2)
	roster := embed.Fields[0]
	assert.Contains(t, roster.Value, "**tank** 1/1")
	assert.Contains(t, roster.Value, "**dps** 0/2")
	assert.Contains(t, roster.Value, "**support** 0/2")
	assert.Contains(t, roster.Value, "<@p1>")
	assert.Contains(t, roster.Value, "📺")

	queue := embed.Fields[1]
	assert.Equal(t, "Queue (1)", queue.Name)
	assert.Contains(t, queue.Value, "<@p2>")
	assert.Contains(t, queue.Value, gamerules.RoleEmojis[gamerules.RoleDPS])
}

func TestSessionEmbedHeadcountMode(t *testing.T) {
	embed := SessionEmbed(testBoard(gamerules.ModeSixVSix, sessiondb.StatusOpen))

	roster := embed.Fields[0]
	assert.Contains(t, roster.Value, "**Players** 1/6")
	// Headcount modes have no role slots at all.
	assert.NotContains(t, roster.Value, "**tank**")
}

func TestSessionEmbedDeterministic(t *testing.T) {
	board := testBoard(gamerules.ModeFiveVFive, sessiondb.StatusOpen)
	assert.Equal(t, SessionEmbed(board), SessionEmbed(board))
}

func TestSessionComponents(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		components := SessionComponents(&sessiondb.Session{ID: 7, Status: sessiondb.StatusOpen})
		require.Len(t, components, 1)
		row := components[0].(discordgo.ActionsRow)
		require.Len(t, row.Components, 4)

		join := row.Components[0].(discordgo.Button)
		assert.Equal(t, "join:7", join.CustomID)
		assert.False(t, join.Disabled)
	})

	t.Run("closed disables join", func(t *testing.T) {
		components := SessionComponents(&sessiondb.Session{ID: 7, Status: sessiondb.StatusClosed})
		row := components[0].(discordgo.ActionsRow)
		join := row.Components[0].(discordgo.Button)
		assert.True(t, join.Disabled)
	})

	t.Run("terminal has no buttons", func(t *testing.T) {
		assert.Nil(t, SessionComponents(&sessiondb.Session{ID: 7, Status: sessiondb.StatusCancelled}))
		assert.Nil(t, SessionComponents(&sessiondb.Session{ID: 7, Status: sessiondb.StatusCompleted}))
	})
}

func TestSessionListEmbedEmpty(t *testing.T) {
	embed := SessionListEmbed(nil)
	assert.Contains(t, embed.Description, "No active sessions")
}

func TestStatusColors(t *testing.T) {
	assert.Equal(t, colorOpen, statusColor(sessiondb.StatusOpen))
	assert.Equal(t, colorClosed, statusColor(sessiondb.StatusClosed))
	assert.Equal(t, colorCancelled, statusColor(sessiondb.StatusCancelled))
	assert.Equal(t, colorCompleted, statusColor(sessiondb.StatusCompleted))
}
