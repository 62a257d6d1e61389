package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	profileservice "github.com/five-stack-club/stackbot/app/modules/profile/application"
	sessionservice "github.com/five-stack-club/stackbot/app/modules/session/application"
	"github.com/five-stack-club/stackbot/app/shared/apperrors"
	"github.com/five-stack-club/stackbot/config"
)

// Bot owns the Discord gateway connection and dispatches interactions to the
// profile and session services.
type Bot struct {
	cfg      config.DiscordConfig
	session  *discordgo.Session
	profiles *profileservice.ProfileService
	sessions *sessionservice.SessionService
	logger   *slog.Logger
	commands []*discordgo.ApplicationCommand
}

// New creates a Bot with a configured but unopened gateway session.
func New(
	cfg config.DiscordConfig,
	profiles *profileservice.ProfileService,
	sessions *sessionservice.SessionService,
	logger *slog.Logger,
) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	b := &Bot{
		cfg:      cfg,
		session:  session,
		profiles: profiles,
		sessions: sessions,
		logger:   logger,
	}
	b.registerHandlers()
	return b, nil
}

// Session exposes the gateway session for the announcer.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Start opens the gateway connection and registers the slash commands.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	b.logger.InfoContext(ctx, "Connected to Discord",
		slog.String("user", b.session.State.User.Username),
	)

	if err := b.registerCommands(); err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	if b.session != nil {
		return b.session.Close()
	}
	return nil
}

func (b *Bot) registerHandlers() {
	b.session.AddHandler(b.handleInteraction)
	b.session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		b.logger.Info("Bot is ready", slog.Int("guilds", len(r.Guilds)))
	})
}

func (b *Bot) registerCommands() error {
	defs := commandDefinitions()
	registered := make([]*discordgo.ApplicationCommand, 0, len(defs))

	for _, cmd := range defs {
		created, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, b.cfg.GuildID, cmd)
		if err != nil {
			return fmt.Errorf("failed to register command %s: %w", cmd.Name, err)
		}
		registered = append(registered, created)
	}

	b.commands = registered
	b.logger.Info("Slash commands registered", slog.Int("count", len(registered)))
	return nil
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		b.logger.DebugContext(ctx, "Received command",
			slog.String("command", data.Name),
			slog.String("guild_id", i.GuildID),
		)
		b.dispatchCommand(ctx, s, i, data)

	case discordgo.InteractionApplicationCommandAutocomplete:
		b.dispatchAutocomplete(ctx, s, i)

	case discordgo.InteractionMessageComponent:
		b.dispatchComponent(ctx, s, i)
	}
}

// interactionUserID resolves the invoking user for both guild and DM
// interactions.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// replyEphemeral sends a private response to the invoking user.
func (b *Bot) replyEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		b.logger.Error("Failed to respond to interaction", slog.Any("error", err))
	}
}

// replyEmbedEphemeral sends a private embed response.
func (b *Bot) replyEmbedEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) {
	data := &discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{embed},
		Flags:  discordgo.MessageFlagsEphemeral,
	}
	if len(components) > 0 {
		data.Components = components
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.Error("Failed to respond to interaction", slog.Any("error", err))
	}
}

// replyError maps service errors onto user-facing messages. Internal errors
// are logged and answered with a generic failure line.
func (b *Bot) replyError(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	if apperrors.IsUserFacing(err) {
		b.replyEphemeral(s, i, "❌ "+userMessage(err))
		return
	}
	b.logger.ErrorContext(ctx, "Interaction failed", slog.Any("error", err))
	b.replyEphemeral(s, i, "❌ Something went wrong. Try again in a moment.")
}

// userMessage strips wrapping context down to a readable one-liner.
func userMessage(err error) string {
	msg := err.Error()
	// Wrapped sentinels read fine as-is; capitalize the first rune for the UI.
	if msg == "" {
		return "request failed"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
