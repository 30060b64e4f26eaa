package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"gateway/internal/adapter/memstore"
	"gateway/internal/adapter/mongostore"
	"gateway/internal/adapter/repo"
	"gateway/internal/contactfilter"
	"gateway/internal/domain"
	"gateway/internal/http/handlers"
	httpapi "gateway/internal/http/httpapi"
	"gateway/internal/infra"
	"gateway/internal/infra/geoip"
	"gateway/internal/mail"
	"gateway/internal/middleware"
	"gateway/internal/pinning"
	"gateway/internal/quota"
	"gateway/internal/storage"
)

// userStore is what every store driver provides.
type userStore interface {
	quota.Store
	domain.ProfileRepository
}

func main() {
	// .env files are optional
	_, _ = infra.LoadEnvFiles()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := infra.NewLogger(cfg.AppEnv)
	started := time.Now()

	ctx := context.Background()
	var closers []io.Closer

	store, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open user store")
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	policy := quota.DefaultPolicy()
	if cfg.PlanLimits != "" {
		if policy, err = quota.ParsePolicy(cfg.PlanLimits); err != nil {
			logger.Fatal().Err(err).Msg("invalid PLAN_LIMITS")
		}
	}
	logger.Info().Str("policy", policy.String()).Msg("plan tiers loaded")
	enforcer := quota.NewEnforcer(store, quota.Options{Policy: policy, Logger: logger})

	var rateCounter middleware.WindowCounter = middleware.NewMemoryCounter()
	rdb, err := infra.NewRedisClient(ctx, cfg)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("redis unavailable, using in-process rate limit counters")
	case rdb != nil:
		rateCounter = middleware.NewRedisCounter(rdb, "gateway:")
		closers = append(closers, rdb)
	}

	resolver, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	if resolver != nil {
		closers = append(closers, resolver)
	}

	uploads, err := storage.NewFileStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare upload directory")
	}

	pinner := pinning.NewClient(pinning.Options{
		APIKey:         cfg.PinataAPIKey,
		APISecret:      cfg.PinataSecretKey,
		BaseURL:        cfg.PinataBaseURL,
		GatewayURL:     cfg.PinataGatewayURL,
		Logger:         &logger,
		RequestTimeout: cfg.UpstreamTimeout,
	})
	if !pinner.HasCredentials() {
		logger.Warn().Msg("PINATA_API_KEY/PINATA_SECRET_KEY not set, uploads will fail")
	}

	app := &handlers.App{
		Logger:   logger,
		Quota:    enforcer,
		Profiles: store,
		Mailer:   newMailer(cfg, logger),
		Composer: mail.ContactComposer{
			SiteName:   cfg.SiteName,
			SenderName: cfg.MailSenderName,
			SenderAddr: cfg.MailSenderEmail,
			Receiver:   cfg.ContactReceiver,
		},
		Filter:          contactfilter.New(),
		Pinner:          pinner,
		Uploads:         uploads,
		MaxUploadBytes:  cfg.MaxUploadBytes,
		StartedAt:       started,
		UpstreamTimeout: cfg.UpstreamTimeout,
	}

	if err := app.Composer.Validate(); err != nil {
		logger.Warn().Err(err).Msg("contact form disabled until MAIL_SENDER_EMAIL and CONTACT_RECEIVER are set")
	}

	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:         logger,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		DefaultLocale:  "en",
		CountryLookup:  resolver.Lookup(),
		RateCounter:    rateCounter,
		RatePerMinute:  cfg.RateLimitPerMin,
	})

	server := infra.NewHTTPServer(cfg, router)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr()).Str("store", cfg.StoreDriver).Msg("API listening")
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("http server stopped with error")
	}
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			logger.Warn().Err(err).Msg("close dependency")
		}
	}
	logger.Info().Msg("server stopped")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func openStore(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (userStore, io.Closer, error) {
	switch cfg.StoreDriver {
	case infra.StoreDriverPostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		runner := infra.NewSQLRunner(pool, logger)
		return repo.NewUserRepository(runner), closerFunc(func() error { pool.Close(); return nil }), nil
	case infra.StoreDriverMongo:
		client, db, err := infra.NewMongoDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return mongostore.New(db), closerFunc(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		}), nil
	case infra.StoreDriverMemory:
		logger.Warn().Msg("using in-memory user store, data is lost on restart")
		return memstore.New(), nil, nil
	}
	return nil, nil, errors.New("unsupported store driver " + cfg.StoreDriver)
}

func newMailer(cfg *infra.Config, logger zerolog.Logger) mail.Sender {
	if cfg.PostmarkServerToken == "" {
		logger.Warn().Msg("POSTMARK_SERVER_TOKEN not set, contact emails are only logged")
		return mail.LogSender{Logger: logger}
	}
	sender, err := mail.NewPostmarkSender(mail.PostmarkConfig{
		ServerToken:  cfg.PostmarkServerToken,
		AccountToken: cfg.PostmarkAccountToken,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid postmark config")
	}
	return sender
}
