package main // Entry point package

import (
	"context"
	"errors"
	"log" // used only before the zap logger exists
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/service-booking/internal/config"     // environment config
	"github.com/iliyamo/service-booking/internal/database"   // MySQL connection and schema
	"github.com/iliyamo/service-booking/internal/handler"    // HTTP handlers
	"github.com/iliyamo/service-booking/internal/middleware" // logging and cache middleware
	"github.com/iliyamo/service-booking/internal/queue"      // RabbitMQ publisher and audit consumer
	"github.com/iliyamo/service-booking/internal/repository" // MySQL unit of work
	"github.com/iliyamo/service-booking/internal/router"     // route registration
	"github.com/iliyamo/service-booking/internal/service"    // business logic
	"github.com/iliyamo/service-booking/internal/utils"      // logger construction
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load() // Load environment config

	logger, err := utils.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	uow := repository.NewUnitOfWork(db)

	users, err := service.NewUserService(uow, service.TokenSettings{
		Secret:         cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
	}, logger)
	if err != nil {
		return err
	}
	providers, err := service.NewProviderService(uow, users, logger)
	if err != nil {
		return err
	}
	offerings, err := service.NewServiceOfferingService(uow, logger)
	if err != nil {
		return err
	}

	publisher := queue.NewPublisher(cfg.RabbitURL, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("closing publisher", zap.Error(err))
		}
	}()

	bookings, err := service.NewBookingService(uow, publisher, logger)
	if err != nil {
		return err
	}

	// Redis is optional; a nil client turns the cache middleware into a passthrough.
	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))

	bookingHandler := handler.NewBookingHandler(bookings, logger)
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(users, logger), cfg.JWTSecret)
	router.RegisterCatalog(e, router.CatalogHandlers{
		Providers: handler.NewProviderHandler(providers, logger),
		Services:  handler.NewServiceOfferingHandler(offerings, logger),
		Bookings:  bookingHandler,
	}, cfg.JWTSecret,
		middleware.NewRedisCache(cacheCfg, rdb, logger),
		middleware.PurgeCache(cacheCfg, rdb, logger),
	)
	router.RegisterBookings(e, bookingHandler, cfg.JWTSecret)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.AuditConsumerEnabled {
		consumer := queue.NewAuditConsumer(cfg.RabbitURL, cfg.AuditLogPath, logger)
		g.Go(func() error {
			if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(sctx)
	})

	return g.Wait()
}
