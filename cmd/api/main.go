package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rezom-platform/internal/audit"
	"rezom-platform/internal/auth"
	"rezom-platform/internal/config"
	"rezom-platform/internal/credential"
	"rezom-platform/internal/httpapi"
	"rezom-platform/internal/identity"
	"rezom-platform/internal/mail"
	"rezom-platform/internal/pwreset"
	"rezom-platform/internal/session"
	"rezom-platform/pkg/logger"
	"rezom-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// .env is optional; real deployments inject env directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	tokenManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	users := identity.NewPostgresRepo(db)
	sessions := session.NewPostgresStore(db)
	resets := pwreset.NewRedisStore(rdb, pwreset.DefaultTTL)
	mailer := mail.NewResendMailer(cfg.Mail.ResendAPIKey, cfg.Mail.FromEmail, cfg.Mail.AppURL)
	audits := audit.NewService(audit.NewPostgresRepo(db))

	credentials := credential.NewService(
		users, sessions, tokenManager, resets, mailer, audits, log, cfg.Auth.RefreshSessionTTL,
	)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	handlers := httpapi.Handlers{Credentials: credentials, Cookies: cfg.Cookie}
	loginLimiter := &httpapi.LoginLimiter{
		RDB:    rdb,
		Limit:  cfg.Auth.LoginAttemptLimit,
		Window: cfg.Auth.LoginAttemptWindow,
	}
	registerRoutes(r, handlers, auth.RequireAccessToken(tokenManager), loginLimiter, sessions)

	// Cookie auth across origins needs credentialed CORS with an explicit
	// origin list; rs/cors wraps the whole engine.
	corsMW := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", cfg.Cookie.CSRFName},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           corsMW.Handler(r),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}
