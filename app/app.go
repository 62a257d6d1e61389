package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/five-stack-club/stackbot/app/eventbus"
	profileservice "github.com/five-stack-club/stackbot/app/modules/profile/application"
	sessionservice "github.com/five-stack-club/stackbot/app/modules/session/application"
	"github.com/five-stack-club/stackbot/config"
	"github.com/five-stack-club/stackbot/db/bundb"
	"github.com/five-stack-club/stackbot/internal/api"
	"github.com/five-stack-club/stackbot/internal/discord"
	"github.com/five-stack-club/stackbot/internal/observability"
	"github.com/five-stack-club/stackbot/internal/timeutil"
)

// App wires configuration, storage, the event bus, the services and the
// Discord and HTTP surfaces together.
type App struct {
	Cfg            *config.Config
	Logger         *slog.Logger
	ProfileService *profileservice.ProfileService
	SessionService *sessionservice.SessionService
	Sweeper        *sessionservice.Sweeper
	Bot            *discord.Bot
	Announcer      *discord.Announcer
	APIServer      *api.Server

	db  *bundb.DBService
	bus *eventbus.Bus
}

// NewApp initializes the application with the necessary services and
// configuration. Pending migrations are applied before anything else starts.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	dbService, err := bundb.NewBunDBService(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database service: %w", err)
	}
	if err := dbService.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	bus := eventbus.New(watermill.NewSlogLogger(logger))

	registry := prometheus.NewRegistry()
	metrics := observability.NewPrometheusMetrics(registry)
	clock := timeutil.RealClock{}

	profileService := profileservice.NewProfileService(dbService.ProfileDB, logger, metrics)
	sessionService := sessionservice.NewSessionService(
		dbService.SessionDB, dbService.ProfileDB, bus, logger, metrics, clock)
	sweeper := sessionservice.NewSweeper(sessionService, cfg.Sweeper.Interval, logger, clock)

	bot, err := discord.New(cfg.Discord, profileService, sessionService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	announcer, err := discord.NewAnnouncer(bot.Session(), sessionService, bus, registry, cfg.Discord.AnnounceRate, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize announcer: %w", err)
	}

	apiServer := api.NewServer(cfg.HTTP.Addr, sessionService, registry, logger)

	return &App{
		Cfg:            cfg,
		Logger:         logger,
		ProfileService: profileService,
		SessionService: sessionService,
		Sweeper:        sweeper,
		Bot:            bot,
		Announcer:      announcer,
		APIServer:      apiServer,
		db:             dbService,
		bus:            bus,
	}, nil
}

// DB returns the database service.
func (app *App) DB() *bundb.DBService {
	return app.db
}

// Close releases the event bus and database resources.
func (app *App) Close() {
	if err := app.bus.Close(); err != nil {
		app.Logger.Error("Failed to close event bus", slog.Any("error", err))
	}
	if err := app.db.Close(); err != nil {
		app.Logger.Error("Failed to close database", slog.Any("error", err))
	}
}
