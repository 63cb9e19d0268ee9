package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ae97/panel/internal/config"
	"github.com/ae97/panel/internal/database"
	"github.com/ae97/panel/internal/handler"
	"github.com/ae97/panel/internal/logger"
	"github.com/ae97/panel/internal/mail"
	"github.com/ae97/panel/internal/middleware"
	"github.com/ae97/panel/internal/queue"
	"github.com/ae97/panel/internal/repository"
	"github.com/ae97/panel/internal/router"
	"github.com/ae97/panel/internal/service"
	"github.com/ae97/panel/internal/session"
	"github.com/ae97/panel/internal/view"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.Init(logger.Config{Level: cfg.Log.Level, Dev: cfg.Log.Dev, File: cfg.Log.File})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	sugar := zl.Sugar()

	db, err := database.Open(cfg.DB)
	if err != nil {
		sugar.Fatalw("database open failed", "driver", cfg.DB.Driver, "err", err)
	}
	defer func() { _ = db.Close() }()
	if err := database.EnsureSchema(context.Background(), db); err != nil {
		sugar.Fatalw("schema setup failed", "err", err)
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	renderer, err := view.New()
	if err != nil {
		sugar.Fatalw("templates failed to parse", "err", err)
	}

	users := repository.NewUserRepo(db)
	sessions := repository.NewSessionRepo(db)
	authSvc := service.NewAuthService(
		users,
		sessions,
		repository.NewVerificationRepo(db),
		repository.NewResetRepo(db),
		mailSender(cfg, sugar),
		service.AuthConfig{
			SiteURL:    cfg.SiteURL,
			MailDomain: cfg.Mail.Domain,
			MailFrom:   cfg.Mail.From,
			BcryptCost: cfg.BcryptCost,
			Admins:     cfg.Admins,
		},
		sugar,
	)
	cache := middleware.NewResponseCache(cfg.Cache, rdb, sugar)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, router.Deps{
		Health:    handler.HealthHandler{DB: db},
		Auth:      handler.NewAuthHandler(authSvc, sugar),
		Factoids:  handler.NewFactoidHandler(repository.NewFactoidRepo(db, sugar), cache, sugar),
		Users:     handler.NewUserHandler(users, sessions, sugar),
		Sessions:  session.NewStore(cfg.Session),
		Verifier:  authSvc,
		Renderer:  renderer,
		RateLimit: middleware.NewTokenBucket(cfg.RateLimit, rdb, sugar),
		Cache:     cache,
		WebRoot:   cfg.WebRoot,
		Log:       sugar,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		sugar.Infow("listening", "addr", ":"+cfg.Port, "env", cfg.Env)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("http server failed", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")
	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(doneCtx); err != nil {
		sugar.Warnw("http server shutdown failed", "err", err)
	}
}

func mailSender(cfg config.Config, log *zap.SugaredLogger) mail.Sender {
	switch cfg.Mail.Transport {
	case "smtp":
		return mail.SMTPSender{Host: cfg.Mail.SMTPHost, Port: cfg.Mail.SMTPPort, Username: cfg.Mail.SMTPUser, Password: cfg.Mail.SMTPPass}
	case "queue":
		return queue.Publisher{URL: cfg.AMQPURL, Log: log}
	default:
		return mail.LogSender{Log: log}
	}
}
