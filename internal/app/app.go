// Package app wires every component together and runs the update loop.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"chat-sentinel-bot/internal/config"
	"chat-sentinel-bot/internal/cooldown"
	"chat-sentinel-bot/internal/enforce"
	"chat-sentinel-bot/internal/events"
	"chat-sentinel-bot/internal/handler"
	"chat-sentinel-bot/internal/joingate"
	"chat-sentinel-bot/internal/metrics"
	"chat-sentinel-bot/internal/msgcache"
	"chat-sentinel-bot/internal/pipeline"
	"chat-sentinel-bot/internal/pipeline/filters"
	"chat-sentinel-bot/internal/platform"
	"chat-sentinel-bot/internal/platform/botapi"
	"chat-sentinel-bot/internal/repository"
	"chat-sentinel-bot/internal/scheduler"
	"chat-sentinel-bot/internal/screening"
	"chat-sentinel-bot/internal/service"
	"chat-sentinel-bot/internal/tracker"
	"chat-sentinel-bot/internal/transport/polling"
	"chat-sentinel-bot/internal/transport/webhook"
)

type App struct {
	cfg    *config.Config
	logger *slog.Logger
	client *botapi.Client
}

func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		client: botapi.NewClient(logger, cfg.BotToken, cfg.APIBaseURL),
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.logger.Info("Starting chat sentinel bot")

	self, err := a.client.Self(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot identity: %w", err)
	}
	a.logger.Info("Bot connected", "username", self.Username, "id", self.ID)

	db, err := repository.NewPostgresDB(a.cfg.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}

	settingsRepo := repository.NewSettingsRepository(db, a.cfg.EnableCache)
	wordRepo := repository.NewWordRepository(db)
	globalBans := repository.NewGlobalBanRepository(db)
	avatarRepo := repository.NewBannedAvatarRepository(db)
	memberRepo := repository.NewKnownMemberRepository(db)
	accessRepo := repository.NewRoomAccessRepository(db)
	modLogRepo := repository.NewModerationLogRepository(db)

	var warningStore tracker.WarningStore
	if a.cfg.PersistWarnings {
		warningStore = repository.NewWarningStore(db)
	}
	tr := tracker.New(warningStore)

	cooldownStore, err := a.newCooldownStore()
	if err != nil {
		return fmt.Errorf("failed to init cooldown store: %w", err)
	}

	sched := scheduler.NewTimerScheduler(a.logger)
	defer sched.Shutdown()

	bus := events.NewBus()
	botLog := msgcache.NewBotLog()
	enforcer := enforce.NewEnforcer(
		a.client, msgcache.NewUserLog(), botLog, tr,
		modLogRepo, bus, sched, a.logger,
		enforce.Config{
			MaxWarnings:  a.cfg.MaxWarnings,
			MuteDuration: a.cfg.MuteDuration,
			NoticeTTL:    a.cfg.NoticeTTL,
		},
	)

	// the screener's deferral callback closes over the service pointer,
	// which is assigned a few lines further down
	var svc *service.ModerationService
	screener := screening.NewScreener(
		a.client, wordRepo, avatarRepo, settingsRepo, enforcer,
		cooldown.New(cooldownStore),
		func(ctx context.Context, ev screening.LinkInBio) { svc.RaiseLinkDecision(ctx, ev) },
		a.logger, a.cfg.AvatarHashThreshold,
	)

	fullPipeline := pipeline.NewManager(
		filters.NewGlobalBanFilter(globalBans),
		filters.NewWhitelistFilter(accessRepo),
		filters.NewMimicryFilter(botLog, tr, a.cfg.MuteDuration),
		filters.NewForwardFilter(),
		filters.NewFloodFilter(tr, a.cfg.FloodThreshold, a.cfg.FloodWindow),
		filters.NewCapsFilter(a.cfg.CapsMinLength, a.cfg.CapsThreshold),
		filters.NewZalgoFilter(tr, a.cfg.ZalgoMinMarks, a.cfg.ZalgoRatio),
		filters.NewLinkFilter(settingsRepo),
		filters.NewWordFilter(wordRepo),
	)
	editPipeline := pipeline.NewManager(
		filters.NewGlobalBanFilter(globalBans),
		filters.NewWhitelistFilter(accessRepo),
		filters.NewZalgoFilter(tr, a.cfg.ZalgoMinMarks, a.cfg.ZalgoRatio),
		filters.NewWordFilter(wordRepo),
	)

	svc = service.NewModerationService(
		a.logger, a.client, fullPipeline, editPipeline, screener, enforcer,
		settingsRepo, wordRepo, globalBans, avatarRepo, memberRepo, accessRepo, modLogRepo,
		bus, sched,
		service.Config{
			AdminUserIDs:   a.cfg.AdminUserIDs,
			ModerateAdmins: a.cfg.ModerateAdmins,
			ModerateBots:   a.cfg.ModerateBots,
			RescanInterval: a.cfg.RescanInterval,
			RescanBatch:    a.cfg.RescanBatch,
			ReportHourUTC:  a.cfg.ReportHourUTC,
		},
	)
	svc.StartRescanTask()
	svc.StartDailyReportTask()

	gate := joingate.NewGate(
		a.client, screener, enforcer, globalBans, memberRepo, settingsRepo, accessRepo,
		sched, a.logger,
		joingate.Config{
			CaptchaTimeout:        a.cfg.CaptchaTimeout,
			MediaRestrictDuration: a.cfg.MediaRestrictDuration,
		},
	)

	h := handler.NewHandler(a.logger, a.client, svc, gate)

	metricsSrv := metrics.NewServer(a.logger, a.cfg.MetricsAddr)
	go func() {
		if err := metricsSrv.Listen(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("Metrics server failed", "error", err)
		}
	}()

	var updates <-chan platform.Update
	if a.cfg.WebhookAddr != "" {
		a.logger.Info("Starting in webhook mode", "addr", a.cfg.WebhookAddr)
		updates = webhook.NewServer(a.logger, a.cfg.WebhookAddr, a.cfg.WebhookSecret).Updates(ctx)
	} else {
		updates = polling.NewPoller(a.logger, a.client).Start(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Shutting down...")
			return nil
		case upd, ok := <-updates:
			if !ok {
				a.logger.Info("Update stream closed")
				return nil
			}
			h.HandleUpdate(ctx, upd)
		}
	}
}

func (a *App) newCooldownStore() (cooldown.Store, error) {
	if a.cfg.RedisURL != "" {
		a.logger.Info("Using Redis cooldown store")
		return cooldown.NewRedisStore(a.cfg.RedisURL, a.cfg.ProfileCheckCooldown)
	}
	return cooldown.NewMemStore(10_000, a.cfg.ProfileCheckCooldown), nil
}
