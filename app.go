package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"printshop/internal/database"
	"printshop/internal/handlers"
	"printshop/internal/middleware"
	"printshop/internal/notify"
	"printshop/internal/repositories"
	"printshop/internal/services"
	"printshop/internal/storage"
	"printshop/pkg/rabbitmq"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App is the wired HTTP application and the resources it owns.
type App struct {
	Fiber   *fiber.App
	logger  *zap.Logger
	closers []func() error
	cancel  context.CancelFunc
}

// NewApp builds repositories, services and handlers from cfg.
func NewApp(cfg Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{logger: logger, cancel: cancel}

	repo, err := a.orderRepository(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	repo = a.withCache(ctx, cfg, repo)

	var events services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, logger)
		if err != nil {
			logger.Warn("order events disabled", zap.Error(err))
		} else {
			a.closers = append(a.closers, mq.Close)
			events = mq
			if err := mq.ConsumeOrderEvents(ctx, rabbitmq.LogOrderEvent(logger)); err != nil {
				logger.Warn("failed to start order event consumer", zap.Error(err))
			}
		}
	}

	var notifier notify.Notifier = notify.NewLogNotifier(logger)
	if cfg.EmailEnabled() {
		notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.EmailHost,
			Port:     cfg.EmailPort,
			Username: cfg.EmailUser,
			Password: cfg.EmailPass,
		})
	} else {
		logger.Warn("EMAIL_USER/EMAIL_PASS not set, order emails will not be sent")
	}

	files := storage.NewLocalFileStore(cfg.UploadDir, "design")
	orderService := services.NewOrderService(repo, files, notifier, events, logger,
		services.WithOperatorEmail(cfg.AdminEmail),
		services.WithSupportEmail(cfg.SupportEmail),
	)
	authService := services.NewAuthService(cfg.OperatorPasswordHash, cfg.JWTSecret)

	app := fiber.New(fiber.Config{
		AppName:      "printshop",
		BodyLimit:    cfg.BodyLimit,
		Immutable:    true,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: handlers.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	api := app.Group("/api")
	handlers.NewOrderHandler(orderService, logger).RegisterRoutes(api, middleware.OperatorRequired(authService, logger))
	handlers.NewCatalogHandler(orderService).RegisterRoutes(api)
	handlers.NewAuthHandler(authService, logger).RegisterRoutes(api)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":       "healthy",
			"time":         time.Now().Format(time.RFC3339),
			"store":        cfg.OrderStore,
			"events":       events != nil,
			"emailEnabled": cfg.EmailEnabled(),
			"operatorAuth": authService.Enabled(),
		})
	})

	a.Fiber = app
	return a, nil
}

func (a *App) orderRepository(cfg Config) (repositories.OrderRepository, error) {
	switch cfg.OrderStore {
	case "memory":
		return repositories.NewMemoryOrderRepository(), nil
	case "file":
		repo, err := repositories.NewFileOrderRepository(cfg.OrdersFile, repositories.DefaultStartID)
		if err != nil {
			return nil, fmt.Errorf("failed to load orders file: %w", err)
		}
		return repo, nil
	case "sqlite", "postgres", "mysql":
		db, err := database.Open(database.Config{Driver: cfg.OrderStore, DSN: cfg.DatabaseDSN})
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
		repo := repositories.NewGORMOrderRepository(db, repositories.DefaultStartID)
		if err := repo.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate order tables: %w", err)
		}
		return repo, nil
	}
	return nil, fmt.Errorf("unknown ORDER_STORE %q", cfg.OrderStore)
}

// withCache puts a Redis read cache in front of repo when Redis is reachable.
func (a *App) withCache(ctx context.Context, cfg Config, repo repositories.OrderRepository) repositories.OrderRepository {
	if cfg.RedisAddr == "" {
		return repo
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		a.logger.Warn("redis unavailable, order cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		rdb.Close()
		return repo
	}

	a.closers = append(a.closers, rdb.Close)
	return repositories.NewCachedOrderRepository(repo, rdb, cfg.RedisCacheTTL, a.logger)
}

// Close releases everything NewApp opened, in reverse order.
func (a *App) Close() error {
	a.cancel()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
