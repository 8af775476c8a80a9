package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/shelfwatch/internal/config"
	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver"
	"github.com/MrSnakeDoc/shelfwatch/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelfwatch/internal/logger"
	"github.com/MrSnakeDoc/shelfwatch/internal/metrics"
	"github.com/MrSnakeDoc/shelfwatch/internal/notify"
	"github.com/MrSnakeDoc/shelfwatch/internal/redis"
	"github.com/MrSnakeDoc/shelfwatch/internal/reorder"
	"github.com/MrSnakeDoc/shelfwatch/internal/scheduler"
	"github.com/MrSnakeDoc/shelfwatch/internal/sources/seed"
	"github.com/MrSnakeDoc/shelfwatch/internal/store"
	"github.com/MrSnakeDoc/shelfwatch/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/shelfwatch/internal/store/redis"
	"github.com/MrSnakeDoc/shelfwatch/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	notifyJob   *scheduler.Job
	janitorJob  *scheduler.Job
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewCollector(registry)

	seedSource := seed.NewSource(
		seed.NewLoader(cfg.SeedFile),
		seed.NewMapper(time.Now, cfg.Location),
	)

	// Initialize Redis early - fail fast if unavailable
	var redisClient *goredis.Client
	if cfg.Store == config.StoreRedis {
		client, err := redis.New(context.Background(), redis.OptionsFromConfig(cfg), loggerClient)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		redisClient = client
	}

	var st store.Store
	switch cfg.Store {
	case config.StoreRedis:
		st = redisstore.NewStore(redisClient, loggerClient, store.SeedFunc(seedSource), time.Now)
	default:
		st = memory.New(store.SeedFunc(seedSource), time.Now)
	}
	loggerClient.Info("store initialized", logger.String("backend", cfg.Store))

	var notifier notify.Notifier
	switch cfg.Notifier {
	case config.NotifierRedis:
		notifier = notify.NewRedisNotifier(redisClient, cfg.NotifyChannel, cfg.NotifyAllow, cfg.NotifyDedupTTL, loggerClient)
	default:
		notifier = notify.NewLogNotifier(loggerClient, cfg.NotifyAllow)
	}
	loggerClient.Info("notifier initialized",
		logger.String("kind", cfg.Notifier),
		logger.Bool("allow", cfg.NotifyAllow))

	engine := notify.NewEngine(st, notifier, loggerClient, recorder, cfg.Location, time.Now)
	notifyTrigger := make(chan struct{}, 1)
	notifyJob := scheduler.NewNotifyJob(engine, loggerClient, cfg.NotifyInterval, notifyTrigger)

	janitor := scheduler.NewCacheJanitor(st, loggerClient, recorder, cfg.AffiliateTTL, time.Now)
	janitorJob := janitor.Job(cfg.JanitorInterval)

	var lookup reorder.Lookup
	if cfg.AffiliateURL != "" {
		lookup = reorder.NewClient(cfg.AffiliateURL, cfg.LookupRatePerMin, cfg.LookupBurst,
			&http.Client{Timeout: cfg.LookupTimeout})
	} else {
		loggerClient.Info("affiliate lookup not configured, reorder links use store search")
	}
	resolver := reorder.NewResolver(st, lookup, st, loggerClient, recorder, cfg.AffiliateTTL, cfg.LookupTimeout, time.Now)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:        loggerClient,
		StartTime:     time.Now(),
		Version:       version.Version,
		Commit:        version.Commit,
		BuildDate:     version.BuildDate,
		GoVersion:     version.GoVersion,
		TimeNow:       time.Now,
		Location:      cfg.Location,
		AllowedHosts:  cfg.AllowedHosts,
		AllowedCIDRS:  cfg.AllowedCIDRS,
		TrustProxy:    cfg.TrustProxy,
		APIRatePerMin: cfg.APIRatePerMin,
		APIBurst:      cfg.APIBurst,
		StoreBackend:  cfg.Store,
		RedisClient:   redisClient,
		Store:         st,
		Notifier:      notifier,
		Resolver:      resolver,
		LookupEnabled: lookup != nil,
		NotifyTrigger: notifyTrigger,
		NotifyRunning: notifyJob.Running,
		Gatherer:      registry,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		notifyJob:   notifyJob,
		janitorJob:  janitorJob,
	}, nil
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting Shelfwatch v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String(), logger.String("time_zone", a.cfg.Location.String()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// First check runs at startup, then every NotifyInterval.
	if err := a.notifyJob.Start(ctx); err != nil {
		return fmt.Errorf("failed to start notification job: %w", err)
	}
	a.logger.Info("notification job started",
		logger.Duration("interval", a.cfg.NotifyInterval))

	if err := a.janitorJob.Start(ctx); err != nil {
		return fmt.Errorf("failed to start cache janitor: %w", err)
	}
	a.logger.Info("cache janitor started",
		logger.Duration("interval", a.cfg.JanitorInterval))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		a.notifyJob.Stop()
		a.janitorJob.Stop()
		return err
	}

	a.notifyJob.Stop()
	a.janitorJob.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", logger.Error(err))
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	_ = a.logger.Sync()
	a.logger.Info("✅ Shelfwatch stopped cleanly")
	return nil
}
