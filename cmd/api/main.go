package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/auth"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/call"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/command"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/config"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/httpapi"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/identity"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/presence"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/push"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/pkg/logger"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

func main() {
	// .env is a local convenience; deployed environments inject real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Logger config isn't trustworthy yet; plain stderr is fine here.
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres open failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis open failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	authMgr, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth manager init failed", "err", err)
		os.Exit(1)
	}

	hub, err := presence.NewHub(ctx, presence.NewRedisBus(rdb, log), log)
	if err != nil {
		log.Error("presence hub init failed", "err", err)
		os.Exit(1)
	}

	identitySvc := identity.NewService(identity.NewPostgresStore(db))
	commandSvc := command.NewService(command.NewPostgresRepo(db))
	// The typed-nil check matters: handing a nil *HTTPSender straight to
	// NewService would defeat its sender==nil disabled-mode test.
	var sender push.Sender
	if s := push.NewHTTPSender(cfg.Push); s != nil {
		sender = s
	}
	pushSvc := push.NewService(push.NewPostgresTokenStore(db), sender, log)
	callSvc := call.NewService(
		call.NewPostgresRepo(db),
		identitySvc,
		hub,
		pushSvc,
		call.NewRedisLimiter(rdb, log),
		log,
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.Middleware(log), gin.Recovery())
	registerRoutes(router, routeDeps{
		db:        db,
		authMgr:   authMgr,
		identity:  httpapi.NewIdentityHandler(identitySvc),
		queue:     httpapi.NewQueueHandler(commandSvc, hub, pushSvc),
		calls:     httpapi.NewCallHandler(callSvc),
		devices:   httpapi.NewDeviceHandler(pushSvc),
		tokens:    httpapi.NewTokenHandler(authMgr),
		websocket: httpapi.NewWSHandler(hub, log),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("relay listening", "addr", srv.Addr, "env", cfg.App.Env)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown incomplete", "err", err)
	}
}
