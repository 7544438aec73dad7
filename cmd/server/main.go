package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/pathlab-auth/internal/config"
	"github.com/iliyamo/pathlab-auth/internal/database"
	"github.com/iliyamo/pathlab-auth/internal/handler"
	"github.com/iliyamo/pathlab-auth/internal/middleware"
	"github.com/iliyamo/pathlab-auth/internal/observability"
	"github.com/iliyamo/pathlab-auth/internal/queue"
	"github.com/iliyamo/pathlab-auth/internal/repository"
	"github.com/iliyamo/pathlab-auth/internal/router"
	"github.com/iliyamo/pathlab-auth/internal/service"
	"github.com/iliyamo/pathlab-auth/internal/utils"
)

func main() {
	_ = godotenv.Load() // a local .env is optional
	cfg := config.Load()
	log := observability.NewLogger(cfg.LogLevel)

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Env); err != nil {
		log.WithError(err).Warn("sentry disabled")
	}
	defer observability.FlushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.WithError(err).Fatal("migrate database")
	}

	rdb, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		log.WithError(err).Fatal("connect redis")
	}
	defer rdb.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	// Repositories
	principals := repository.NewPrincipalRepo(db)
	admins := repository.NewAdminRepo(db)
	tokens := repository.NewTokenRepo(db)
	pending := repository.NewOnboardingCache(rdb)

	if err := seedKeyAdmin(ctx, cfg, principals); err != nil {
		log.WithError(err).Fatal("seed key admin")
	}

	// Services
	publisher := queue.NewPublisher(cfg.AMQPURL, cfg.Onboarding.OTPTTL, log)
	defer publisher.Close()
	limiter := service.NewAttemptLimiter(rdb, cfg.RateLimits, log, metrics)
	tokenSvc := service.NewTokenService(cfg.Auth, tokens, log)
	authSvc := service.NewAuthService(cfg.Auth, tokenSvc, principals, limiter, log, metrics)
	onboardSvc := service.NewOnboardingService(cfg.Onboarding, cfg.Auth.BcryptCost, admins, pending, publisher, limiter, log, metrics)

	go func() {
		if err := queue.StartOTPConsumer(ctx, cfg.AMQPURL, queue.LogMailer{Log: log}, log); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("otp consumer stopped")
		}
	}()

	cookies := middleware.CookieWriter{
		Secure:     cfg.SecureCookies(),
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	}
	gate := middleware.NewGate(authSvc, cookies, cfg.Security, log, metrics)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Use(echomw.Recover())
	e.Use(gate.Middleware())

	router.RegisterRoutes(e, &handler.HealthHandler{DB: db, Redis: rdb, Log: log}, metrics.Handler())
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc, cookies))
	router.RegisterOnboarding(e, handler.NewOnboardHandler(onboardSvc, cfg.Security.MaxOTPBodyBytes, log))
	router.RegisterPages(e)

	addr := ":" + cfg.Port
	log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
	go func() {
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

// seedKeyAdmin creates or updates the platform operator from
// KEY_ADMIN_EMAIL / KEY_ADMIN_PASSWORD when both are set.
func seedKeyAdmin(ctx context.Context, cfg config.Config, principals *repository.PrincipalRepo) error {
	b := cfg.Bootstrap
	if b.KeyAdminEmail == "" || b.KeyAdminPassword == "" {
		return nil
	}
	hash, err := utils.NewHasher(cfg.Auth.BcryptCost).Hash(b.KeyAdminPassword)
	if err != nil {
		return err
	}
	return principals.UpsertKeyAdmin(ctx, b.KeyAdminName, b.KeyAdminEmail, hash)
}
