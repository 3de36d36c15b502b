package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/task-manager/internal/config"
	"github.com/iliyamo/task-manager/internal/database"
	"github.com/iliyamo/task-manager/internal/handler"
	"github.com/iliyamo/task-manager/internal/logging"
	"github.com/iliyamo/task-manager/internal/middleware"
	"github.com/iliyamo/task-manager/internal/queue"
	"github.com/iliyamo/task-manager/internal/repository"
	"github.com/iliyamo/task-manager/internal/repository/memstore"
	"github.com/iliyamo/task-manager/internal/router"
	"github.com/iliyamo/task-manager/internal/service"
	"github.com/iliyamo/task-manager/internal/utils"
)

func main() {
	os.Exit(run())
}

// stores bundles the two stores of whichever backend is configured.
type stores struct {
	users interface {
		service.UserStore
		middleware.UserLookup
	}
	tasks service.TaskStore
	close func()
}

func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (stores, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		return stores{users: memstore.NewUsers(), tasks: memstore.NewTasks(), close: func() {}}, nil
	}
	db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return stores{}, err
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return stores{}, err
		}
	}
	log.Info("mysql connected", "host", cfg.DBHost, "db", cfg.DBName)
	return stores{
		users: repository.NewUserRepo(db),
		tasks: repository.NewTaskRepo(db),
		close: func() { _ = db.Close() },
	}, nil
}

func run() int {
	_ = godotenv.Load() // a missing .env is fine

	cfg, err := config.Load()
	log := logging.New(os.Stdout, cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Error("invalid configuration", "err", err)
		return 1
	}
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("open storage", "err", err)
		return 1
	}
	defer st.close()

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and response cache disabled")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	var events service.Publisher = queue.Nop{}
	if cfg.RabbitURL != "" {
		pub := queue.NewPublisher(cfg.RabbitURL, cfg.TaskEventsQueue, log)
		defer func() { _ = pub.Close() }()
		events = pub
	}

	tokens := utils.NewTokenService(utils.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	})
	auth := service.NewAuthService(st.users, tokens, cfg.BcryptCost, log)
	tasks := service.NewTaskService(st.tasks, events, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(log)
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(logging.RequestLogger(log))
	e.Use(echomw.Secure())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "X-Requested-With"},
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit("10K"))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))

	session := middleware.SessionAuth(tokens, st.users)
	router.RegisterRoutes(e, cfg.Env)
	router.RegisterAuth(e, handler.NewAuthHandler(auth, handler.NewCookies(cfg.IsProduction())), session,
		middleware.NewTokenBucket(config.LoadAuthRateLimitConfig(), rdb, log))
	router.RegisterTasks(e, handler.NewTaskHandler(tasks), session,
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log), cfg.LegacyRoutes)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", addr, "env", cfg.Env, "storage", cfg.Storage)
		errCh <- e.Start(addr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			shutdown(e, log)
			return 1
		}
	}
	shutdown(e, log)
	return 0
}

func shutdown(e *echo.Echo, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error("shutdown", "err", err)
	}
}
