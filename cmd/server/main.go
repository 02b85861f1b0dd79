package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/example/licenseportal/internal/auth"
	"github.com/example/licenseportal/internal/config"
	"github.com/example/licenseportal/internal/database"
	"github.com/example/licenseportal/internal/events"
	"github.com/example/licenseportal/internal/handlers"
	"github.com/example/licenseportal/internal/logger"
	"github.com/example/licenseportal/internal/middleware"
	"github.com/example/licenseportal/internal/notify"
	"github.com/example/licenseportal/internal/otp"
	"github.com/example/licenseportal/internal/routes"
	"github.com/example/licenseportal/internal/services"
	"github.com/example/licenseportal/internal/store"
	"github.com/example/licenseportal/internal/throttle"
)

const appName = "License Portal"

func main() {
	cfg := config.Load()

	zlog, err := logger.New(cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	accounts, closeStore := openStore(cfg, zlog)
	defer closeStore()

	var mailer services.Mailer
	simulated := !cfg.MailConfigured()
	if simulated {
		zlog.Warn("mail transport not configured, code emails will be simulated")
		mailer = services.NewSimulatedMailer(zlog)
	} else {
		host, port, _ := cfg.SMTPAddress()
		mailer = services.NewSMTPMailer(services.SMTPConfig{
			Host:               host,
			Port:               port,
			Username:           cfg.MailUser,
			Password:           cfg.MailPassword,
			From:               cfg.Sender(),
			BreakerMaxFailures: cfg.MailBreakerMaxFailures,
			BreakerTimeout:     cfg.MailBreakerTimeout,
		}, zlog)
	}

	var limiter throttle.Limiter = throttle.Noop{}
	if cfg.RedisAddr != "" {
		rdb, err := database.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, zlog)
		if err != nil {
			zlog.Fatal("redis unavailable", zap.Error(err))
		}
		defer rdb.Close()
		limiter = throttle.NewRedisLimiter(rdb, cfg.OTPRequestsPerHour, time.Hour, zlog)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		zlog.Info("publishing account events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	defer publisher.Close()

	queue := notify.NewQueue(cfg.NotifyWorkers, cfg.NotifyQueueSize, 30*time.Second, zlog)

	svc := auth.NewService(auth.Options{
		Store:     accounts,
		Codes:     otp.NewDispatcher(mailer, simulated, appName, cfg.FrontendURL, zlog),
		Limiter:   limiter,
		Queue:     queue,
		Events:    publisher,
		Alerts:    services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, zlog),
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenExpires,
		Log:       zlog,
	})

	app := fiber.New(fiber.Config{
		AppName:      appName,
		ErrorHandler: handlers.ErrorHandler(zlog),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(zlog))

	routes.Register(app, routes.Deps{
		Auth:      svc,
		Store:     accounts,
		JWTSecret: cfg.JWTSecret,
	})

	go func() {
		zlog.Info("starting server", zap.String("port", cfg.AppPort), zap.String("store", cfg.StoreDriver))
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			zlog.Fatal("fiber.Listen error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zlog.Error("server shutdown", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := queue.Close(ctx); err != nil {
		zlog.Warn("notification queue did not drain", zap.Error(err))
	}
}

// openStore builds the Account Record Store selected by STORE_DRIVER.
func openStore(cfg *config.Config, zlog *zap.Logger) (store.AccountStore, func()) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		zlog.Warn("using in-memory account store, data is lost on restart")
		return store.NewMemoryStore(cfg.AdminCollections), func() {}

	case config.DriverMongo:
		client, db, err := database.ConnectMongo(cfg.MongoURI, cfg.MongoDatabase, zlog)
		if err != nil {
			zlog.Fatal("mongo unavailable", zap.Error(err))
		}
		s := store.NewMongoStore(db, cfg.AdminCollections, zlog)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.EnsureIndexes(ctx); err != nil {
			zlog.Fatal("mongo index setup failed", zap.Error(err))
		}
		return s, func() { _ = client.Disconnect(context.Background()) }

	default:
		db, err := database.Connect(cfg.DatabaseURL, store.Models(), zlog)
		if err != nil {
			zlog.Fatal("postgres unavailable", zap.Error(err))
		}
		return store.NewGormStore(db, cfg.AdminCollections, zlog), func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
	}
}
