package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
)

// dispatchComponent handles the announcement buttons. Custom IDs carry the
// action and session id as "action:id".
func (b *Bot) dispatchComponent(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	action, rawID, ok := strings.Cut(customID, ":")
	if !ok {
		b.logger.Warn("Malformed component id", slog.String("custom_id", customID))
		return
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		b.logger.Warn("Malformed component id", slog.String("custom_id", customID))
		return
	}
	sessionID := sharedtypes.SessionID(id)
	userID := sharedtypes.UserID(interactionUserID(i))

	switch action {
	case "join":
		b.handleJoinButton(ctx, s, i, sessionID, userID)
	case "leave":
		b.handleLeaveButton(ctx, s, i, sessionID, userID)
	case "stream":
		b.handleStreamButton(ctx, s, i, sessionID, userID)
	case "refresh":
		b.handleRefreshButton(ctx, s, i, sessionID)
	default:
		b.logger.Warn("Unknown component action", slog.String("custom_id", customID))
	}
}

func (b *Bot) handleJoinButton(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sessionID sharedtypes.SessionID, userID sharedtypes.UserID) {
	if _, err := b.sessions.Join(ctx, sessionID, userID); err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	b.replyEphemeral(s, i, fmt.Sprintf("✅ You are in the queue for session `#%d`. The host will pick the roster.", sessionID))
}

func (b *Bot) handleLeaveButton(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sessionID sharedtypes.SessionID, userID sharedtypes.UserID) {
	if err := b.sessions.Leave(ctx, sessionID, userID); err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	b.replyEphemeral(s, i, fmt.Sprintf("✅ You left the queue for session `#%d`.", sessionID))
}

func (b *Bot) handleStreamButton(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sessionID sharedtypes.SessionID, userID sharedtypes.UserID) {
	streaming, err := b.sessions.ToggleStreaming(ctx, sessionID, userID)
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	if streaming {
		b.replyEphemeral(s, i, "📺 You are now marked as streaming.")
	} else {
		b.replyEphemeral(s, i, "✅ Streaming flag removed.")
	}
}

// handleRefreshButton re-renders the announcement in place.
func (b *Bot) handleRefreshButton(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, sessionID sharedtypes.SessionID) {
	board, err := b.sessions.GetBoard(ctx, sessionID)
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{SessionEmbed(board)},
			Components: SessionComponents(board.Session),
		},
	})
	if err != nil {
		b.logger.Error("Failed to refresh announcement",
			slog.Int64("session_id", int64(sessionID)),
			slog.Any("error", err),
		)
	}
}
