package discord

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/five-stack-club/stackbot/app/eventbus"
	sessionservice "github.com/five-stack-club/stackbot/app/modules/session/application"
	"github.com/five-stack-club/stackbot/app/shared/events"
	sharedtypes "github.com/five-stack-club/stackbot/app/shared/types"
	"github.com/five-stack-club/stackbot/internal/eventutil"
)

// Announcer consumes session events and keeps the public announcement of
// each session current. Edits are rate limited to stay inside the Discord
// API budget; a render failure is logged and skipped, never retried into a
// storm.
type Announcer struct {
	session  *discordgo.Session
	sessions *sessionservice.SessionService
	router   *message.Router
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewAnnouncer builds the announcer and its watermill router, editing at
// most ratePerSec messages per second.
func NewAnnouncer(
	session *discordgo.Session,
	sessions *sessionservice.SessionService,
	bus *eventbus.Bus,
	registry *prometheus.Registry,
	ratePerSec float64,
	logger *slog.Logger,
) (*Announcer, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, err
	}
	router.AddMiddleware(middleware.CorrelationID, middleware.Recoverer)
	metrics.NewPrometheusMetricsBuilder(registry, "stackbot", "announcer").
		AddPrometheusRouterMetrics(router)

	a := &Announcer{
		session:  session,
		sessions: sessions,
		router:   router,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSec), 1),
		logger:   logger,
	}

	for _, topic := range []string{
		events.SessionCreated,
		events.SessionUpdated,
		events.SessionCompleted,
		events.SessionCancelled,
	} {
		router.AddNoPublisherHandler("announce_"+topic, topic, bus.Subscriber(), a.handle)
	}
	return a, nil
}

// Run runs the router until the context is cancelled.
func (a *Announcer) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "Announcer started")
	return a.router.Run(ctx)
}

// handle refreshes one announcement. It always returns nil: a failed edit is
// logged and the message acked, because the next session event (or a manual
// refresh) re-renders the full board anyway.
func (a *Announcer) handle(msg *message.Message) error {
	ctx := msg.Context()

	correlationID, payload, err := eventutil.UnmarshalPayload[events.SessionUpdatedPayload](msg)
	if err != nil {
		a.logger.ErrorContext(ctx, "Failed to decode session event", slog.Any("error", err))
		return nil
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil
	}

	if err := a.refresh(ctx, payload.SessionID); err != nil {
		a.logger.ErrorContext(ctx, "Failed to refresh announcement",
			slog.String("correlation_id", correlationID),
			slog.Int64("session_id", int64(payload.SessionID)),
			slog.Any("error", err),
		)
	}
	return nil
}

// refresh posts the announcement if the session has none yet, otherwise edits
// the existing message in place.
func (a *Announcer) refresh(ctx context.Context, sessionID sharedtypes.SessionID) error {
	board, err := a.sessions.GetBoard(ctx, sessionID)
	if err != nil {
		return err
	}

	embed := SessionEmbed(board)
	components := SessionComponents(board.Session)

	if board.Session.MessageID == "" {
		sent, err := a.session.ChannelMessageSendComplex(string(board.Session.ChannelID), &discordgo.MessageSend{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		})
		if err != nil {
			return err
		}
		return a.sessions.RecordAnnouncement(ctx, sessionID,
			sharedtypes.ChannelID(sent.ChannelID), sharedtypes.MessageID(sent.ID))
	}

	_, err = a.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    string(board.Session.ChannelID),
		ID:         string(board.Session.MessageID),
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	})
	return err
}
