package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/account-service/internal/cache"
	"github.com/iliyamo/account-service/internal/config"
	"github.com/iliyamo/account-service/internal/database"
	"github.com/iliyamo/account-service/internal/handler"
	"github.com/iliyamo/account-service/internal/logging"
	"github.com/iliyamo/account-service/internal/media"
	"github.com/iliyamo/account-service/internal/middleware"
	"github.com/iliyamo/account-service/internal/queue"
	"github.com/iliyamo/account-service/internal/repository"
	"github.com/iliyamo/account-service/internal/router"
	"github.com/iliyamo/account-service/internal/service"
	"github.com/iliyamo/account-service/internal/utils"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	users, checks, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open user store")
	}
	defer closeStore()

	rdb, err := config.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.WithError(err).WithField("addr", cfg.Redis.Addr).Warn("redis unavailable; profile cache disabled")
	} else {
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	profiles := cache.NewProfileCache(cfg.ProfileCache, rdb, log)

	uploader, err := media.NewS3Uploader(ctx, cfg.Media, log)
	if err != nil {
		log.WithError(err).Fatal("init media uploader")
	}

	var events queue.Publisher = queue.NopPublisher{}
	if cfg.Events.Enabled {
		events = queue.NewRabbitPublisher(cfg.Events.URL, cfg.Events.Queue, log)
		consumer := queue.NewAuditConsumer(cfg.Events.URL, cfg.Events.Queue, filepath.Join(".", "logs"), log)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("audit consumer stopped")
			}
		}()
	}

	codec := utils.NewTokenCodec(cfg.Tokens)
	hasher := utils.NewPasswordHasher(cfg.BcryptCost)
	accounts := service.NewAccountService(users, uploader, hasher, profiles, events, log)
	sessions := service.NewSessionService(users, codec, hasher, profiles, events, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Use(middleware.RequestLogger(log), metrics.Middleware())

	router.RegisterRoutes(e, checks, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	router.RegisterUsers(e,
		handler.NewAuthHandler(accounts, sessions, cfg.UploadDir, log),
		middleware.JWTAuth(codec, users, profiles))

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "db": cfg.DBDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

// openStore connects the credential store selected by DB_DRIVER and
// returns it with its health check and a close function.
func openStore(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (repository.UserStore, map[string]handler.Check, func(), error) {
	checks := map[string]handler.Check{}
	switch cfg.DBDriver {
	case config.DriverMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, nil, nil, err
		}
		if cfg.DBMigrate {
			if err := database.Migrate(db); err != nil {
				_ = db.Close()
				return nil, nil, nil, err
			}
		}
		checks["mysql"] = db.PingContext
		return repository.NewUserRepo(db), checks, func() { _ = db.Close() }, nil

	case config.DriverMongo:
		client, mdb, err := database.OpenMongo(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, nil, err
		}
		repo := repository.NewMongoUserRepo(mdb)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, nil, err
		}
		checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		return repo, checks, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		log.Warn("using in-memory user store; data is lost on restart")
		return repository.NewMemoryUserRepo(), checks, func() {}, nil
	}
}
