package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/table-reservation-service/internal/config"
	"github.com/iliyamo/table-reservation-service/internal/database"
	"github.com/iliyamo/table-reservation-service/internal/handler"
	"github.com/iliyamo/table-reservation-service/internal/logger"
	"github.com/iliyamo/table-reservation-service/internal/middleware"
	"github.com/iliyamo/table-reservation-service/internal/queue"
	"github.com/iliyamo/table-reservation-service/internal/repository"
	"github.com/iliyamo/table-reservation-service/internal/restaurant"
	"github.com/iliyamo/table-reservation-service/internal/router"
	"github.com/iliyamo/table-reservation-service/internal/service"
)

func main() {
	// .env is optional; real deployments pass the environment directly
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
	log.Info("server stopped")
}

func run(cfg config.Config, log *logrus.Logger) error {
	policy, err := service.ParseMatchPolicy(cfg.EnrichMatch)
	if err != nil {
		return err
	}
	if cfg.Tracing.Enabled {
		configureTracing(cfg.Tracing, log)
	}

	db, err := database.Open(database.Options{
		Driver: cfg.DBDriver,
		User:   cfg.DBUser,
		Pass:   cfg.DBPass,
		Host:   cfg.DBHost,
		Port:   cfg.DBPort,
		Name:   cfg.DBName,
		Trace:  cfg.Tracing.Enabled,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBDriver == "sqlite" {
		if err := database.Migrate(context.Background(), db); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and owner cache disabled")
	} else {
		defer rdb.Close()
	}

	httpClient := &http.Client{Timeout: cfg.RestaurantsTimeout}
	if cfg.Tracing.Enabled {
		httpClient = xray.Client(httpClient)
	}
	restaurants := restaurant.NewClient(cfg.RestaurantsService, cfg.RestaurantsTimeout, httpClient, log)
	var owners restaurant.OwnerLookup = restaurants
	if cacheCfg := config.LoadOwnerCacheConfig(); cacheCfg.Enabled {
		owners = restaurant.NewCachedOwnerLookup(restaurants, rdb, cacheCfg.TTL, cacheCfg.Prefix, log)
	}

	events, err := queue.NewPublisher(cfg.Events.Broker, cfg.Events.RabbitURL, cfg.Events.KafkaBrokers, cfg.Events.Topic)
	if err != nil {
		return err
	}
	defer events.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Events.AuditEnabled {
		startAuditConsumer(ctx, cfg.Events, log)
	}

	svc := service.NewReservationService(service.Options{
		Store:       repository.NewReservationRepo(db),
		Owners:      owners,
		Details:     restaurants.BulkDetails,
		Events:      events,
		Log:         log,
		Policy:      policy,
		StrictScope: cfg.StrictRestaurantScope,
	})

	e := newEcho(cfg, log)
	router.RegisterRoutes(e)
	router.RegisterReservations(e,
		handler.NewReservationHandler(svc, log),
		middleware.NewJWTResolver(cfg.JWTSecret),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
	)

	addr := ":" + cfg.Port
	log.WithFields(logrus.Fields{
		"addr":         addr,
		"env":          cfg.Env,
		"db":           cfg.DBDriver,
		"events":       cfg.Events.Broker,
		"enrich_match": policy,
		"strict_scope": cfg.StrictRestaurantScope,
	}).Info("listening")

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newEcho(cfg config.Config, log *logrus.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.HTTPErrorHandler(log)

	if cfg.Tracing.Enabled {
		namer := xray.NewFixedSegmentNamer("table-reservation-service")
		e.Use(echo.WrapMiddleware(func(next http.Handler) http.Handler { return xray.Handler(namer, next) }))
	}
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLog(log))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.BodyLimit("1M"))
	return e
}

func configureTracing(cfg config.TracingConfig, log *logrus.Logger) {
	// background work (the audit consumer, event publishing) runs outside a segment
	os.Setenv("AWS_XRAY_CONTEXT_MISSING", "LOG_ERROR")
	if err := xray.Configure(xray.Config{DaemonAddr: cfg.DaemonAddr, ServiceVersion: "1.0.0"}); err != nil {
		log.WithError(err).Warn("configure x-ray failed; using defaults")
		if err := xray.Configure(xray.Config{}); err != nil {
			log.WithError(err).Warn("default x-ray configuration failed")
		}
	}
}

func startAuditConsumer(ctx context.Context, cfg config.EventsConfig, log *logrus.Logger) {
	if cfg.Broker != "rabbitmq" && cfg.Broker != "amqp" {
		log.WithField("broker", cfg.Broker).Warn("audit consumer needs EVENTS_BROKER=rabbitmq; not started")
		return
	}
	consumer := queue.NewAuditConsumer(cfg.RabbitURL, cfg.Topic, cfg.AuditLogPath, log.WithField("component", "audit-consumer"))
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("audit consumer stopped")
		}
	}()
}
