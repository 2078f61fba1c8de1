package cli

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/projecthub/pkg/api"
	"github.com/platinummonkey/projecthub/pkg/config"
	"github.com/platinummonkey/projecthub/pkg/identity"
	"github.com/platinummonkey/projecthub/pkg/jobs"
	"github.com/platinummonkey/projecthub/pkg/listcache"
	"github.com/platinummonkey/projecthub/pkg/middleware"
	"github.com/platinummonkey/projecthub/pkg/notify"
	"github.com/platinummonkey/projecthub/pkg/objectstore"
	"github.com/platinummonkey/projecthub/pkg/observability"
	"github.com/platinummonkey/projecthub/pkg/projects"
)

// Version is reported by the health endpoints; set with -ldflags at build time
var Version = "dev"

// revokedTokenRetention is how long revoked tokens stay around for auditing
const revokedTokenRetention = 30 * 24 * time.Hour

func newServeCommand(out io.Writer) *Command {
	cmd := &Command{
		Name:        "serve",
		Description: "Run the API server",
		Flags:       flag.NewFlagSet("serve", flag.ContinueOnError),
		out:         out,
	}
	cmd.Flags.SetOutput(out)
	cmd.Flags.String("config", "", "Path to a YAML configuration file")
	cmd.Run = func(args []string) error { return runServe(cmd, args) }
	return cmd
}

func runServe(cmd *Command, args []string) error {
	if err := cmd.Flags.Parse(args); err != nil {
		return ignoreHelp(err)
	}
	configPath := cmd.Flags.Lookup("config").Value.String()
	if configPath == "" {
		configPath = os.Getenv("PROJECTHUB_CONFIG_FILE")
	}

	cfg, err := config.LoadConfigFile(configPath)
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if configPath != "" {
		err := config.WatchFile(ctx, configPath, logger, func(next *config.Config) {
			lvl, err := logrus.ParseLevel(next.Observability.LogLevel)
			if err != nil {
				return
			}
			if lvl != logger.GetLevel() {
				logger.SetLevel(lvl)
				logger.WithField("level", lvl.String()).Info("Log level changed")
			}
		})
		if err != nil {
			logger.WithError(err).Warn("Configuration file will not be watched")
		}
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           a.healthMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc(a.close)

	errCh := make(chan error, 2)
	for _, srv := range []*http.Server{apiServer, healthServer} {
		go func(srv *http.Server) {
			logger.WithField("addr", srv.Addr).Info("Listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server %s: %w", srv.Addr, err)
				stop()
			}
		}(srv)
	}

	a.scheduler.Start()

	if err := shutdown.WaitForShutdown(ctx); err != nil {
		return err
	}
	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// app is the wired server: everything runServe needs besides the listeners
type app struct {
	logger    logrus.FieldLogger
	db        *sql.DB
	redis     *redis.Client
	otel      *observability.OTelProviders
	scheduler *jobs.Scheduler
	handler   http.Handler
	healthMux *http.ServeMux
}

func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (a *app, err error) {
	a = &app{logger: logger}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	a.otel, err = observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return nil, err
	}

	var dialect projects.Dialect
	a.db, dialect, err = openDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		if err = projects.Migrate(ctx, a.db, dialect); err != nil {
			return nil, err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	if cfg.Cache.Backend == "redis" || (cfg.RateLimit.RequestsPerMinute > 0 && cfg.Cache.RedisURL != "") {
		a.redis, err = listcache.NewRedisClient(ctx, listcache.RedisConfig{
			URL:        cfg.Cache.RedisURL,
			Password:   cfg.Cache.RedisPassword,
			DB:         cfg.Cache.RedisDB,
			PoolSize:   cfg.Cache.RedisPoolSize,
			MaxRetries: cfg.Cache.RedisMaxRetries,
		})
		if err != nil {
			return nil, err
		}
	}

	var cache projects.ListCache
	if cfg.Cache.Backend == "redis" {
		cache = listcache.NewRedisCache(a.redis)
	} else {
		cache = listcache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.TTL)
	}

	var sender notify.Sender
	if cfg.Mail.Mode == "smtp" {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			Username: cfg.Mail.SMTPUsername,
			Password: cfg.Mail.SMTPPassword,
			From:     cfg.Mail.From,
			Timeout:  cfg.Mail.SMTPTimeout,
		})
	} else {
		sender = notify.NewLogSender(logger, cfg.Mail.From)
	}

	deps := projects.Dependencies{
		Store:   projects.NewPostgresStore(a.db),
		Users:   identity.NewPostgresStore(a.db),
		Cache:   cache,
		Sender:  sender,
		Logger:  logger,
		Metrics: metrics,
	}
	if cfg.DocumentsEnabled() {
		objects, err := objectstore.NewS3Store(ctx, objectstore.Config{
			Endpoint:     cfg.Storage.S3Endpoint,
			Region:       cfg.Storage.S3Region,
			Bucket:       cfg.Storage.S3Bucket,
			AccessKey:    cfg.Storage.S3AccessKey,
			SecretKey:    cfg.Storage.S3SecretKey,
			UsePathStyle: cfg.Storage.S3UsePathStyle,
			CreateBucket: cfg.Storage.S3CreateBucket,
		})
		if err != nil {
			return nil, err
		}
		deps.Objects = objects
	} else {
		logger.Warn("No S3 bucket configured; document uploads are disabled")
	}

	svc, err := projects.NewService(deps, projects.ServiceConfig{
		CacheTTL:      cfg.Cache.TTL,
		CacheBackend:  cfg.Cache.Backend,
		InviteSubject: cfg.Mail.InviteSubject,
	})
	if err != nil {
		return nil, err
	}

	tokens := identity.NewTokenStore(a.db)
	routerCfg := api.RouterConfig{
		Auth:         middleware.NewAuthMiddleware(tokens, logger),
		Metrics:      metrics,
		Logger:       logger,
		MaxBodyBytes: cfg.Server.MaxUploadBytes,
	}

	a.scheduler = jobs.NewScheduler(logger)
	scheduled := []jobs.Job{
		{
			Name:     "db-stats",
			Schedule: "@every 15s",
			Run: func(context.Context) error {
				metrics.RecordDBStats(a.db.Stats())
				return nil
			},
		},
		{
			Name:     "purge-revoked-tokens",
			Schedule: "@daily",
			Timeout:  time.Minute,
			Run: func(ctx context.Context) error {
				n, err := tokens.PurgeRevoked(ctx, time.Now().Add(-revokedTokenRetention))
				if err != nil {
					return err
				}
				logger.WithField("purged", n).Info("Purged revoked API tokens")
				return nil
			},
		},
	}

	if cfg.RateLimit.RequestsPerMinute > 0 {
		limits := middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.RequestsPerMinute,
			WindowDuration:    time.Minute,
			BurstSize:         cfg.RateLimit.Burst,
		}
		routerCfg.RateLimit = limits
		if a.redis != nil {
			routerCfg.Limiter = middleware.NewRedisLimiter(a.redis, limits)
		} else {
			limiter := middleware.NewMemoryLimiter(limits)
			routerCfg.Limiter = limiter
			scheduled = append(scheduled, jobs.Job{
				Name:     "ratelimit-cleanup",
				Schedule: "@every 2m",
				Run: func(context.Context) error {
					limiter.Cleanup()
					return nil
				},
			})
		}
	}

	for _, job := range scheduled {
		if err = a.scheduler.Add(job); err != nil {
			return nil, err
		}
	}

	a.handler = api.NewRouter(api.NewHandlers(svc, logger), routerCfg)

	a.healthMux = http.NewServeMux()
	observability.RegisterHealthRoutes(a.healthMux, observability.NewHealthChecker(a.db, a.redis, Version))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(a.healthMux, registry)
	}

	return a, nil
}

// close releases everything newApp acquired; safe on a partially built app
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("scheduler: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if err := observability.ShutdownOTel(ctx, a.otel, a.logger); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
