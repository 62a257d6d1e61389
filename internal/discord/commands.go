package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	profileservice "github.com/five-stack-club/stackbot/app/modules/profile/application"
	profiledb "github.com/five-stack-club/stackbot/app/modules/profile/infrastructure/repositories"
	sessionservice "github.com/five-stack-club/stackbot/app/modules/session/application"
	"github.com/five-stack-club/stackbot/app/shared/gamerules"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
	"github.com/five-stack-club/stackbot/internal/timeutil"
)

func rankChoices() []*discordgo.ApplicationCommandOptionChoice {
	ranks := gamerules.AllRanks()
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(ranks))
	for i, rank := range ranks {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: string(rank), Value: string(rank)}
	}
	return choices
}

func gameModeChoices() []*discordgo.ApplicationCommandOptionChoice {
	modes := gamerules.AllGameModes()
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(modes))
	for i, mode := range modes {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: string(mode), Value: string(mode)}
	}
	return choices
}

func roleChoices() []*discordgo.ApplicationCommandOptionChoice {
	roles := gamerules.QueueRoles()
	choices := make([]*discordgo.ApplicationCommandOptionChoice, len(roles))
	for i, role := range roles {
		choices[i] = &discordgo.ApplicationCommandOptionChoice{Name: string(role), Value: string(role)}
	}
	return choices
}

// rankPairOptions builds the optional (rank, division) option pair for one
// role category.
func rankPairOptions(prefix string) []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        prefix + "_rank",
			Description: "Rank tier for " + prefix,
			Choices:     rankChoices(),
		},
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        prefix + "_division",
			Description: "Division 1-5 for " + prefix + " (1 is highest)",
			MinValue:    float64Ptr(1),
			MaxValue:    5,
		},
	}
}

func float64Ptr(v float64) *float64 { return &v }

func commandDefinitions() []*discordgo.ApplicationCommand {
	accountOptions := []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionBoolean,
			Name:        "primary",
			Description: "Mark this account as your primary",
		},
	}
	for _, prefix := range []string{"tank", "dps", "support", "alt"} {
		accountOptions = append(accountOptions, rankPairOptions(prefix)...)
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "setup-profile",
			Description: "Create your player profile",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "username",
					Description: "Display name for session boards",
					Required:    true,
				},
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "timezone",
					Description:  "Your IANA timezone, e.g. Europe/Berlin",
					Required:     true,
					Autocomplete: true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "roles",
					Description: "Preferred roles, comma separated: tank,dps,support",
					Required:    true,
				},
			},
		},
		{
			Name:        "add-account",
			Description: "Add a game account with its ranks",
			Options: append([]*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "name",
					Description: "Account name, e.g. Player#1234",
					Required:    true,
				},
			}, accountOptions...),
		},
		{
			Name:        "edit-account",
			Description: "Update ranks or the primary flag on one of your accounts",
			Options: append([]*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "name",
					Description:  "Which account to edit",
					Required:     true,
					Autocomplete: true,
				},
			}, accountOptions...),
		},
		{
			Name:        "my-profile",
			Description: "Show your profile and accounts",
		},
		{
			Name:        "create-session",
			Description: "Schedule a new game session",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "game_mode",
					Description: "Game mode",
					Required:    true,
					Choices:     gameModeChoices(),
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "time",
					Description: "Start time as YYYY-MM-DDTHH:MM, e.g. 2024-12-25T19:30",
					Required:    true,
				},
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "timezone",
					Description:  "Timezone for the start time (defaults to your profile timezone)",
					Autocomplete: true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "description",
					Description: "Free-form session description",
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "max_rank_diff",
					Description: "Advisory max rank distance between players (0 = unrestricted)",
					MinValue:    float64Ptr(0),
				},
			},
		},
		{
			Name:        "view-sessions",
			Description: "List this server's active sessions",
		},
		{
			Name:        "manage-session",
			Description: "Review the queue of one of your sessions",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "session",
					Description:  "Which of your sessions",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Name:        "accept",
			Description: "Accept a queued player onto your session roster",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "session",
					Description:  "Which of your sessions",
					Required:     true,
					Autocomplete: true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "player",
					Description: "The queued player",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "account",
					Description: "Account id shown in /manage-session",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "role",
					Description: "Role to assign (ignored for modes without role slots)",
					Choices:     roleChoices(),
				},
			},
		},
		{
			Name:        "reject",
			Description: "Remove a queued player from your session queue",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "session",
					Description:  "Which of your sessions",
					Required:     true,
					Autocomplete: true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "player",
					Description: "The queued player",
					Required:    true,
				},
			},
		},
		{
			Name:        "toggle-session",
			Description: "Close or reopen the queue of one of your sessions",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "session",
					Description:  "Which of your sessions",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		{
			Name:        "cancel-session",
			Description: "Cancel one of your sessions",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionString,
					Name:         "session",
					Description:  "Which of your sessions",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
	}
}

func (b *Bot) dispatchCommand(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	switch data.Name {
	case "setup-profile":
		b.handleSetupProfile(ctx, s, i, data)
	case "add-account":
		b.handleAddAccount(ctx, s, i, data)
	case "edit-account":
		b.handleEditAccount(ctx, s, i, data)
	case "my-profile":
		b.handleMyProfile(ctx, s, i)
	case "create-session":
		b.handleCreateSession(ctx, s, i, data)
	case "view-sessions":
		b.handleViewSessions(ctx, s, i)
	case "manage-session":
		b.handleManageSession(ctx, s, i, data)
	case "accept":
		b.handleAccept(ctx, s, i, data)
	case "reject":
		b.handleReject(ctx, s, i, data)
	case "toggle-session":
		b.handleToggleSession(ctx, s, i, data)
	case "cancel-session":
		b.handleCancelSession(ctx, s, i, data)
	default:
		b.logger.Warn("Unknown command", slog.String("command", data.Name))
	}
}

// optionMap flattens the interaction options for lookup by name.
func optionMap(data discordgo.ApplicationCommandInteractionData) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		m[opt.Name] = opt
	}
	return m
}

func stringOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	if opt, ok := opts[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func intOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, name string) int64 {
	if opt, ok := opts[name]; ok {
		return opt.IntValue()
	}
	return 0
}

func (b *Bot) handleSetupProfile(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := optionMap(data)
	userID := sharedtypes.UserID(interactionUserID(i))

	var roles []gamerules.Role
	for _, part := range strings.Split(stringOption(opts, "roles"), ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part != "" {
			roles = append(roles, gamerules.Role(part))
		}
	}

	user, err := b.profiles.CreateProfile(ctx, userID, stringOption(opts, "username"), stringOption(opts, "timezone"), roles)
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	b.replyEphemeral(s, i, fmt.Sprintf("✅ Profile created for **%s**. Add an account with `/add-account`.", user.Username))
}

// rankPairFromOptions reads an optional (rank, division) pair.
func rankPairFromOptions(opts map[string]*discordgo.ApplicationCommandInteractionDataOption, prefix string) profileservice.RankPair {
	var pair profileservice.RankPair
	if opt, ok := opts[prefix+"_rank"]; ok {
		rank := gamerules.Rank(opt.StringValue())
		pair.Rank = &rank
	}
	if opt, ok := opts[prefix+"_division"]; ok {
		div := gamerules.Division(opt.IntValue())
		pair.Division = &div
	}
	return pair
}

func (b *Bot) handleAddAccount(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := optionMap(data)
	userID := sharedtypes.UserID(interactionUserID(i))

	input := profileservice.AccountInput{
		UserID:  userID,
		Name:    stringOption(opts, "name"),
		Tank:    rankPairFromOptions(opts, "tank"),
		DPS:     rankPairFromOptions(opts, "dps"),
		Support: rankPairFromOptions(opts, "support"),
		Alt:     rankPairFromOptions(opts, "alt"),
	}
	if opt, ok := opts["primary"]; ok {
		input.IsPrimary = opt.BoolValue()
	}

	account, err := b.profiles.AddAccount(ctx, input)
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	b.replyEphemeral(s, i, fmt.Sprintf("✅ Account **%s** added (id `%d`).", account.AccountName, account.ID))
}

func (b *Bot) handleEditAccount(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := optionMap(data)
	userID := sharedtypes.UserID(interactionUserID(i))

	patch := profileservice.AccountPatch{
		Tank:    rankPairFromOptions(opts, "tank"),
		DPS:     rankPairFromOptions(opts, "dps"),
		Support: rankPairFromOptions(opts, "support"),
		Alt:     rankPairFromOptions(opts, "alt"),
	}
	if opt, ok := opts["primary"]; ok {
		primary := opt.BoolValue()
		patch.IsPrimary = &primary
	}

	account, err := b.profiles.EditAccount(ctx, userID, stringOption(opts, "name"), patch)
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	b.replyEphemeral(s, i, fmt.Sprintf("✅ Account **%s** updated.", account.AccountName))
}

func (b *Bot) handleMyProfile(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	userID := sharedtypes.UserID(interactionUserID(i))

	user, err := b.profiles.GetProfile(ctx, userID)
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	b.replyEmbedEphemeral(s, i, ProfileEmbed(user), nil)
}

func (b *Bot) handleCreateSession(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := optionMap(data)

	session, err := b.sessions.CreateSession(ctx, sessionservice.CreateSessionInput{
		CreatorID:     sharedtypes.UserID(interactionUserID(i)),
		GuildID:       sharedtypes.GuildID(i.GuildID),
		ChannelID:     sharedtypes.ChannelID(i.ChannelID),
		GameMode:      gamerules.GameMode(stringOption(opts, "game_mode")),
		ScheduledText: stringOption(opts, "time"),
		Timezone:      stringOption(opts, "timezone"),
		Description:   stringOption(opts, "description"),
		MaxRankDiff:   int(intOption(opts, "max_rank_diff")),
	})
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	b.replyEphemeral(s, i, fmt.Sprintf("✅ Session `#%d` scheduled. The announcement is on its way.", session.ID))
}

func (b *Bot) handleViewSessions(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	sessions, err := b.sessions.ListActiveSessions(ctx, sharedtypes.GuildID(i.GuildID))
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	b.replyEmbedEphemeral(s, i, SessionListEmbed(sessions), nil)
}

// sessionIDOption parses the session autocomplete value.
func sessionIDOption(opts map[string]*discordgo.ApplicationCommandInteractionDataOption) (sharedtypes.SessionID, error) {
	raw := stringOption(opts, "session")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid session id %q", raw)
	}
	return sharedtypes.SessionID(id), nil
}

func (b *Bot) handleManageSession(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := optionMap(data)
	callerID := sharedtypes.UserID(interactionUserID(i))

	sessionID, err := sessionIDOption(opts)
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	board, err := b.sessions.GetBoard(ctx, sessionID)
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}

	accounts, refRank, refDiv := b.manageContext(ctx, board, callerID)
	b.replyEmbedEphemeral(s, i, ManageEmbed(board, accounts, refRank, refDiv), nil)
}

// manageContext gathers each queued candidate's accounts and derives the
// advisory reference (rank, division) from the caller's primary account.
// Lookup failures leave gaps rather than failing the whole view.
func (b *Bot) manageContext(ctx context.Context, board *sessionservice.Board, callerID sharedtypes.UserID) (map[sharedtypes.UserID][]profiledb.GameAccount, gamerules.Rank, gamerules.Division) {
	accountsByUser := make(map[sharedtypes.UserID][]profiledb.GameAccount, len(board.Queue))
	for _, entry := range board.Queue {
		accounts, err := b.profiles.ListAccounts(ctx, entry.UserID)
		if err != nil {
			b.logger.Warn("Failed to list candidate accounts",
				slog.String("user_id", string(entry.UserID)),
				slog.Any("error", err),
			)
			continue
		}
		accountsByUser[entry.UserID] = accounts
	}

	var refRank gamerules.Rank
	var refDiv gamerules.Division
	if primary, err := b.profiles.PrimaryAccount(ctx, callerID); err == nil {
		for _, role := range append(gamerules.QueueRoles(), gamerules.RolePlayer) {
			if rank, div := primary.RoleRank(role); rank != "" {
				refRank, refDiv = rank, div
				break
			}
		}
	}
	return accountsByUser, refRank, refDiv
}

func (b *Bot) handleAccept(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := optionMap(data)
	callerID := sharedtypes.UserID(interactionUserID(i))

	sessionID, err := sessionIDOption(opts)
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}

	var playerID sharedtypes.UserID
	if opt, ok := opts["player"]; ok {
		playerID = sharedtypes.UserID(opt.UserValue(nil).ID)
	}
	accountID := sharedtypes.AccountID(intOption(opts, "account"))
	role := gamerules.Role(stringOption(opts, "role"))

	entry, fulfillment, err := b.sessions.Accept(ctx, sessionID, callerID, playerID, accountID, role)
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}

	msg := fmt.Sprintf("✅ <@%s> accepted as **%s** (%d/%d filled).",
		entry.UserID, entry.Role, fulfillment.Accepted, fulfillment.TeamSize)
	if fulfillment.Full() {
		msg += " The roster is complete!"
	}
	b.replyEphemeral(s, i, msg)
}

func (b *Bot) handleReject(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := optionMap(data)
	callerID := sharedtypes.UserID(interactionUserID(i))

	sessionID, err := sessionIDOption(opts)
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	var playerID sharedtypes.UserID
	if opt, ok := opts["player"]; ok {
		playerID = sharedtypes.UserID(opt.UserValue(nil).ID)
	}

	if err := b.sessions.Reject(ctx, sessionID, callerID, playerID); err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	b.replyEphemeral(s, i, fmt.Sprintf("✅ <@%s> removed from the queue.", playerID))
}

func (b *Bot) handleToggleSession(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := optionMap(data)
	callerID := sharedtypes.UserID(interactionUserID(i))

	sessionID, err := sessionIDOption(opts)
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	status, err := b.sessions.ToggleOpenClosed(ctx, sessionID, callerID)
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	b.replyEphemeral(s, i, fmt.Sprintf("✅ Session `#%d` is now **%s**.", sessionID, status))
}

func (b *Bot) handleCancelSession(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	opts := optionMap(data)
	callerID := sharedtypes.UserID(interactionUserID(i))

	sessionID, err := sessionIDOption(opts)
	if err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	if err := b.sessions.Cancel(ctx, sessionID, callerID); err != nil {
		b.replyError(ctx, s, i, err)
		return
	}
	b.replyEphemeral(s, i, fmt.Sprintf("✅ Session `#%d` cancelled.", sessionID))
}

// dispatchAutocomplete answers timezone, session and account-name
// autocomplete queries. Failures degrade to an empty choice list.
func (b *Bot) dispatchAutocomplete(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	focused := focusedOption(data.Options)
	if focused == nil {
		return
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	switch focused.Name {
	case "timezone":
		choices = timezoneChoices(focused.StringValue())
	case "session":
		choices = b.sessionChoices(ctx, sharedtypes.UserID(interactionUserID(i)))
	case "name":
		choices = b.accountNameChoices(ctx, sharedtypes.UserID(interactionUserID(i)), focused.StringValue())
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		b.logger.Error("Failed to answer autocomplete", slog.Any("error", err))
	}
}

func focusedOption(opts []*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range opts {
		if opt.Focused {
			return opt
		}
	}
	return nil
}

func timezoneChoices(prefix string) []*discordgo.ApplicationCommandOptionChoice {
	var choices []*discordgo.ApplicationCommandOptionChoice
	lower := strings.ToLower(prefix)
	for _, zone := range timeutil.CommonZones() {
		if prefix != "" && !strings.Contains(strings.ToLower(zone), lower) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: zone, Value: zone})
		if len(choices) == 25 {
			break
		}
	}
	return choices
}

func (b *Bot) sessionChoices(ctx context.Context, userID sharedtypes.UserID) []*discordgo.ApplicationCommandOptionChoice {
	sessions, err := b.sessions.ListOwnSessions(ctx, userID)
	if err != nil {
		b.logger.Warn("Session autocomplete failed", slog.Any("error", err))
		return nil
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, session := range sessions {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  fmt.Sprintf("#%d %s %s", session.ID, session.GameMode, session.ScheduledAt.Format("Jan 2 15:04")),
			Value: strconv.FormatInt(int64(session.ID), 10),
		})
		if len(choices) == 25 {
			break
		}
	}
	return choices
}

func (b *Bot) accountNameChoices(ctx context.Context, userID sharedtypes.UserID, prefix string) []*discordgo.ApplicationCommandOptionChoice {
	accounts, err := b.profiles.ListAccounts(ctx, userID)
	if err != nil {
		b.logger.Warn("Account autocomplete failed", slog.Any("error", err))
		return nil
	}

	lower := strings.ToLower(prefix)
	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, account := range accounts {
		if prefix != "" && !strings.Contains(strings.ToLower(account.AccountName), lower) {
			continue
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  account.AccountName,
			Value: account.AccountName,
		})
		if len(choices) == 25 {
			break
		}
	}
	return choices
}
