package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/veoreg/infinity-studio/internal/adapter/store"
	"github.com/veoreg/infinity-studio/internal/domain"
	"github.com/veoreg/infinity-studio/internal/infra"
	"github.com/veoreg/infinity-studio/internal/monitor"
	"github.com/veoreg/infinity-studio/internal/session"
	"github.com/veoreg/infinity-studio/internal/submit"
	"github.com/veoreg/infinity-studio/internal/upload"
	"github.com/veoreg/infinity-studio/internal/webhook"
)

// studio bundles the wired application for CLI commands.
type studio struct {
	cfg       *infra.Config
	logger    zerolog.Logger
	pool      *pgxpool.Pool
	listener  *store.Listener
	store     *store.GenerationStorePG
	sessions  *session.Store
	tracker   *monitor.Tracker
	submitter *submit.Submitter
	uploads   *upload.Client
}

type commandContext struct {
	userFlag *string
}

func newCommandContext(userFlag *string) *commandContext {
	return &commandContext{userFlag: userFlag}
}

func (c *commandContext) userID() string {
	if c.userFlag == nil {
		return ""
	}
	return *c.userFlag
}

// withStudio wires the full stack, runs fn, and tears everything down.
func (c *commandContext) withStudio(ctx context.Context, fn func(*studio) error) error {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return err
	}
	logger := infra.NewLogger(cfg.AppEnv)

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	sessions, err := session.NewStore(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("open state dir: %w", err)
	}

	listener, err := store.NewListener(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("push notifications unavailable, polling only")
		listener = nil
	} else {
		defer listener.Close()
	}

	generations := store.NewGenerationStore(pool)
	balances := store.NewBalanceStore(pool)

	var subs domain.JobSubscriber
	if listener != nil {
		subs = listener
	}
	tracker := monitor.NewTracker(monitor.KindConfigs{
		domain.JobKindAvatar: {
			PollInterval:     cfg.AvatarPollInterval,
			DeepScanInterval: cfg.DeepScanInterval,
			ScanSkew:         cfg.AvatarScanSkew,
			Timeout:          cfg.AvatarTimeout,
		},
		domain.JobKindVideo: {
			PollInterval:     cfg.VideoPollInterval,
			DeepScanInterval: cfg.DeepScanInterval,
			ScanSkew:         cfg.VideoScanSkew,
			Timeout:          cfg.VideoTimeout,
		},
		domain.JobKindEdit: {
			PollInterval:     cfg.AvatarPollInterval,
			DeepScanInterval: cfg.DeepScanInterval,
			ScanSkew:         cfg.EditScanSkew,
			Timeout:          cfg.VideoTimeout,
		},
	}, generations, subs, sessions, logger)

	hooks := webhook.New(webhook.Endpoints{
		Avatar: cfg.AvatarWebhookURL,
		Video:  cfg.VideoWebhookURL,
		Edit:   cfg.EditWebhookURL,
		Cancel: cfg.CancelWebhookURL,
	}, cfg.WebhookTimeout, logger)

	var uploads *upload.Client
	if cfg.UploadAPIKey != "" {
		uploads = upload.New(cfg.UploadURL, cfg.UploadAPIKey, logger)
	}

	return fn(&studio{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		listener:  listener,
		store:     generations,
		sessions:  sessions,
		tracker:   tracker,
		submitter: submit.New(generations, balances, sessions, hooks, tracker, cfg.GuestDailyQuota, logger),
		uploads:   uploads,
	})
}

func (s *studio) owner(userID string) (domain.Owner, error) {
	owner := domain.Owner{UserID: userID}
	if userID == "" {
		guestID, err := s.sessions.GuestID()
		if err != nil {
			return owner, err
		}
		owner.GuestID = guestID
	}
	return owner, nil
}
