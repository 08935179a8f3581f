package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/veoreg/infinity-studio/internal/adapter/store"
	"github.com/veoreg/infinity-studio/internal/domain"
	"github.com/veoreg/infinity-studio/internal/http/handlers"
	"github.com/veoreg/infinity-studio/internal/http/httpapi"
	"github.com/veoreg/infinity-studio/internal/infra"
	"github.com/veoreg/infinity-studio/internal/infra/geoip"
	"github.com/veoreg/infinity-studio/internal/middleware"
	"github.com/veoreg/infinity-studio/internal/monitor"
	"github.com/veoreg/infinity-studio/internal/session"
	"github.com/veoreg/infinity-studio/internal/submit"
	"github.com/veoreg/infinity-studio/internal/upload"
	"github.com/veoreg/infinity-studio/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	sessions, err := session.NewStore(cfg.StateDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open state dir")
	}

	// Push channel is best effort: without it the monitor still completes by
	// polling.
	var subs *store.Listener
	if subs, err = store.NewListener(cfg.DatabaseURL, logger); err != nil {
		logger.Warn().Err(err).Msg("push notifications unavailable, polling only")
		subs = nil
	} else {
		defer subs.Close()
	}

	generations := store.NewGenerationStore(pool)
	balances := store.NewBalanceStore(pool)

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
	}, generations, subscriberOrNil(subs), sessions, logger)

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

	submitter := submit.New(generations, balances, sessions, hooks, tracker, cfg.GuestDailyQuota, logger)

	// A session persisted by a previous process resumes monitoring now, with
	// progress measured from the original start time.
	if sess, err := sessions.LoadActive(); err == nil {
		if _, err := tracker.Resume(ctx, sess); err != nil {
			logger.Warn().Err(err).Str("job_id", sess.JobID).Msg("could not resume persisted session")
		} else {
			logger.Info().Str("job_id", sess.JobID).Msg("resumed monitoring persisted session")
		}
	}

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	if geo != nil {
		defer geo.Close()
	}

	app := &handlers.App{
		Store:     generations,
		Balances:  balances,
		Sessions:  sessions,
		Submitter: submitter,
		Tracker:   tracker,
		Uploads:   uploads,
		Logger:    logger,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		DefaultLocale:  cfg.DefaultLocale,
		CountryLookup:  countryLookup(geo),
		RateLimit:      cfg.RateLimitPerMin,
		Logger:         logger,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	if m := tracker.Active(); m != nil {
		// Leave the session file in place so the next process resumes.
		m.Abandon()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// subscriberOrNil keeps a typed-nil *Listener from masquerading as a non-nil
// interface value.
func subscriberOrNil(l *store.Listener) domain.JobSubscriber {
	if l == nil {
		return nil
	}
	return l
}

func countryLookup(geo *geoip.Resolver) middleware.CountryLookup {
	if geo == nil {
		return nil
	}
	return geo.CountryCode
}
