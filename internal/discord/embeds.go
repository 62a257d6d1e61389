package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	profiledb "github.com/five-stack-club/stackbot/app/modules/profile/infrastructure/repositories"
	sessionservice "github.com/five-stack-club/stackbot/app/modules/session/application"
	sessiondb "github.com/five-stack-club/stackbot/app/modules/session/infrastructure/repositories"
	"github.com/five-stack-club/stackbot/app/shared/gamerules"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
	"github.com/five-stack-club/stackbot/internal/timeutil"
)

// Embed colors per session status.
const (
	colorOpen      = 0x57F287
	colorClosed    = 0xFEE75C
	colorCancelled = 0xED4245
	colorCompleted = 0x95A5A6
)

func statusColor(status sessiondb.Status) int {
	switch status {
	case sessiondb.StatusOpen:
		return colorOpen
	case sessiondb.StatusClosed:
		return colorClosed
	case sessiondb.StatusCancelled:
		return colorCancelled
	default:
		return colorCompleted
	}
}

// SessionEmbed renders the public announcement for a session board. The
// render is a pure function of the board so refreshing an announcement is
// always an idempotent edit.
func SessionEmbed(board *sessionservice.Board) *discordgo.MessageEmbed {
	session := board.Session

	title := fmt.Sprintf("%s Session #%d", session.GameMode, session.ID)
	var desc strings.Builder
	if session.Description != "" {
		desc.WriteString(session.Description)
		desc.WriteString("\n\n")
	}
	desc.WriteString(fmt.Sprintf("**Status:** %s\n", session.Status))
	desc.WriteString(fmt.Sprintf("**Host:** <@%s>\n", session.CreatorID))
	desc.WriteString(fmt.Sprintf("**When:** %s\n", formatScheduled(session)))
	if session.MaxRankDiff > 0 {
		desc.WriteString(fmt.Sprintf("**Rank spread:** within %d steps\n", session.MaxRankDiff))
	}

	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: desc.String(),
		Color:       statusColor(session.Status),
		Fields: []*discordgo.MessageEmbedField{
			rosterField(board),
			queueField(board),
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Session #%d", session.ID),
		},
	}
	return embed
}

func formatScheduled(session *sessiondb.Session) string {
	local, err := timeutil.UTCToLocal(session.ScheduledAt, session.Timezone)
	if err != nil {
		local = session.ScheduledAt
	}
	// The unix timestamp renders in each reader's own timezone; the literal
	// shows the creator's announced local time.
	return fmt.Sprintf("<t:%d:F> (%s %s)",
		session.ScheduledAt.Unix(),
		local.Format("2006-01-02 15:04"),
		session.Timezone,
	)
}

func rosterField(board *sessionservice.Board) *discordgo.MessageEmbedField {
	f := board.Fulfillment

	var b strings.Builder
	if f.RoleRestricted {
		for _, role := range gamerules.QueueRoles() {
			count := f.Roles[role]
			b.WriteString(fmt.Sprintf("%s **%s** %d/%d", gamerules.RoleEmojis[role], role, count.Accepted, count.Required))
			for _, entry := range board.Roster {
				if entry.Role == role {
					b.WriteString(fmt.Sprintf("\n> %s", rosterLine(entry)))
				}
			}
			b.WriteString("\n")
		}
	} else {
		b.WriteString(fmt.Sprintf("**Players** %d/%d\n", f.Accepted, f.TeamSize))
		for _, entry := range board.Roster {
			b.WriteString(fmt.Sprintf("> %s\n", rosterLine(entry)))
		}
	}

	return &discordgo.MessageEmbedField{
		Name:  "Roster",
		Value: b.String(),
	}
}

func rosterLine(entry sessiondb.RosterEntry) string {
	line := fmt.Sprintf("<@%s>", entry.UserID)
	if entry.Account != nil {
		line += fmt.Sprintf(" (%s)", entry.Account.AccountName)
	}
	if entry.IsStreaming {
		line += " 📺"
	}
	return line
}

func queueField(board *sessionservice.Board) *discordgo.MessageEmbedField {
	if len(board.Queue) == 0 {
		return &discordgo.MessageEmbedField{Name: "Queue", Value: "*empty*"}
	}

	var b strings.Builder
	for i, entry := range board.Queue {
		b.WriteString(fmt.Sprintf("%d. <@%s>", i+1, entry.UserID))
		if len(entry.PreferredRoles) > 0 {
			var emojis []string
			for _, role := range entry.PreferredRoles {
				if emoji, ok := gamerules.RoleEmojis[role]; ok {
					emojis = append(emojis, emoji)
				}
			}
			if len(emojis) > 0 {
				b.WriteString(" " + strings.Join(emojis, ""))
			}
		}
		if entry.IsStreaming {
			b.WriteString(" 📺")
		}
		b.WriteString("\n")
	}

	return &discordgo.MessageEmbedField{
		Name:  fmt.Sprintf("Queue (%d)", len(board.Queue)),
		Value: b.String(),
	}
}

// SessionComponents returns the button row under a session announcement.
// Terminal sessions get no buttons at all.
func SessionComponents(session *sessiondb.Session) []discordgo.MessageComponent {
	if session.Status.Terminal() {
		return nil
	}

	joinDisabled := session.Status != sessiondb.StatusOpen
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Join",
					Style:    discordgo.SuccessButton,
					CustomID: fmt.Sprintf("join:%d", session.ID),
					Disabled: joinDisabled,
				},
				discordgo.Button{
					Label:    "Leave",
					Style:    discordgo.SecondaryButton,
					CustomID: fmt.Sprintf("leave:%d", session.ID),
				},
				discordgo.Button{
					Label:    "Streaming",
					Style:    discordgo.SecondaryButton,
					CustomID: fmt.Sprintf("stream:%d", session.ID),
				},
				discordgo.Button{
					Label:    "Refresh",
					Style:    discordgo.SecondaryButton,
					CustomID: fmt.Sprintf("refresh:%d", session.ID),
				},
			},
		},
	}
}

// ProfileEmbed renders a member's profile with their accounts.
func ProfileEmbed(user *profiledb.User) *discordgo.MessageEmbed {
	var roles []string
	for _, role := range user.PreferredRoles {
		roles = append(roles, fmt.Sprintf("%s %s", gamerules.RoleEmojis[role], role))
	}

	embed := &discordgo.MessageEmbed{
		Title: user.Username,
		Description: fmt.Sprintf("**Roles:** %s\n**Timezone:** %s",
			strings.Join(roles, ", "), user.Timezone),
		Color: colorOpen,
	}

	for _, account := range user.Accounts {
		name := account.AccountName
		if account.IsPrimary {
			name += " ⭐"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   name,
			Value:  accountRanks(account),
			Inline: true,
		})
	}
	return embed
}

func accountRanks(account *profiledb.GameAccount) string {
	var lines []string
	add := func(label string, rank gamerules.Rank, div gamerules.Division) {
		if rank == "" {
			return
		}
		lines = append(lines, fmt.Sprintf("%s: %s %d", label, rank, div))
	}
	add("Tank", account.TankRank, account.TankDivision)
	add("DPS", account.DPSRank, account.DPSDivision)
	add("Support", account.SupportRank, account.SupportDivision)
	add("Alt", account.AltRank, account.AltDivision)
	if len(lines) == 0 {
		return "*unranked*"
	}
	return strings.Join(lines, "\n")
}

// sessionSummaryLine is one row of the /view-sessions listing.
func sessionSummaryLine(session sessiondb.Session) string {
	return fmt.Sprintf("`#%d` **%s** <t:%d:f> — %s, hosted by <@%s>",
		session.ID, session.GameMode, session.ScheduledAt.Unix(), session.Status, session.CreatorID)
}

// SessionListEmbed renders the active sessions of a guild.
func SessionListEmbed(sessions []sessiondb.Session) *discordgo.MessageEmbed {
	if len(sessions) == 0 {
		return &discordgo.MessageEmbed{
			Title:       "Active Sessions",
			Description: "No active sessions. Start one with `/create-session`.",
			Color:       colorCompleted,
		}
	}

	var b strings.Builder
	for _, session := range sessions {
		b.WriteString(sessionSummaryLine(session))
		b.WriteString("\n")
	}
	return &discordgo.MessageEmbed{
		Title:       "Active Sessions",
		Description: b.String(),
		Color:       colorOpen,
	}
}

// ManageEmbed renders the creator's management view: every queued candidate
// with their offered accounts and an advisory rank-compatibility mark against
// the reference (rank, division) pair. The mark never blocks an accept.
func ManageEmbed(board *sessionservice.Board, accountsByUser map[sharedtypes.UserID][]profiledb.GameAccount, refRank gamerules.Rank, refDiv gamerules.Division) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Managing Session #%d", board.Session.ID),
		Color: statusColor(board.Session.Status),
	}

	if len(board.Queue) == 0 {
		embed.Description = "The queue is empty."
		return embed
	}

	for _, entry := range board.Queue {
		var b strings.Builder
		for _, account := range accountsByUser[entry.UserID] {
			b.WriteString(fmt.Sprintf("`%d` %s — %s", account.ID, account.AccountName, accountRanks(&account)))
			if refRank != "" && !compatibleAnyRole(board.Session, &account, entry.PreferredRoles, refRank, refDiv) {
				b.WriteString(" ⚠️ outside rank spread")
			}
			b.WriteString("\n")
		}
		if b.Len() == 0 {
			b.WriteString("*no accounts on file*\n")
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("<@%s> wants %s", entry.UserID, rolesLabel(entry.PreferredRoles)),
			Value: b.String(),
		})
	}
	return embed
}

func compatibleAnyRole(session *sessiondb.Session, account *profiledb.GameAccount, roles sharedtypes.RoleList, refRank gamerules.Rank, refDiv gamerules.Division) bool {
	if len(roles) == 0 {
		return sessionservice.RankCompatible(session, account, gamerules.RolePlayer, refRank, refDiv)
	}
	for _, role := range roles {
		if sessionservice.RankCompatible(session, account, role, refRank, refDiv) {
			return true
		}
	}
	return false
}

func rolesLabel(roles sharedtypes.RoleList) string {
	if len(roles) == 0 {
		return "any role"
	}
	parts := make([]string, len(roles))
	for i, role := range roles {
		parts[i] = string(role)
	}
	return strings.Join(parts, "/")
}
