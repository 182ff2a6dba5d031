package main

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"checkindesk/internal/attendance"
	"checkindesk/internal/config"
	"checkindesk/internal/handler"
	"checkindesk/internal/httpmiddleware"
	"checkindesk/internal/ledger"
	"checkindesk/internal/logging"
	"checkindesk/internal/roster"
	"checkindesk/internal/session"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.Env)
	defer logger.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg config.App, logger *zap.Logger) error {
	// The service is useless without a roster; refuse to start.
	if _, err := os.Stat(cfg.RosterPath); err != nil {
		logger.Fatal("roster file not found; create it with student data",
			zap.String("path", cfg.RosterPath), zap.Error(err))
	}

	ledgerStore := ledger.NewStore(cfg.LedgerPath)
	if err := ledgerStore.EnsureFile(); err != nil {
		logger.Fatal("failed to ensure attendance file", zap.Error(err))
	}

	rosterStore := roster.NewStore(cfg.RosterPath, cfg.RosterTTL, nil)
	svc := attendance.NewService(rosterStore, ledgerStore, nil)
	sessions := session.NewStore(cfg.AuthUsername, cfg.AuthPassword, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sessions.StartSweeper(ctx, func(removed int) {
		if removed > 0 {
			logger.Info("swept expired sessions", zap.Int("removed", removed))
		}
	})

	r := gin.New()
	r.Use(httpmiddleware.Recovery(logger, cfg.IsProduction()))
	r.Use(httpmiddleware.RequestLogger(logger, "/api/health", "/metrics"))
	r.Use(httpmiddleware.Metrics())
	r.Use(httpmiddleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(httpmiddleware.BlockRestrictedPaths(logger))
	r.Use(httpmiddleware.NewWindowLimiter(cfg.RateLimitMax, cfg.RateLimitSpan, nil).GinMiddleware())
	r.Use(cors.New(corsConfig(cfg, logger)))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handler.New(sessions, svc, ledgerStore, logger, cfg.Env, cfg.ExportPassword)
	h.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("addr", cfg.Addr()), zap.String("environment", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
	return nil
}

// corsConfig mirrors the browser policy: configured origins always pass, a
// same-hostname origin passes in production, and anything else is allowed in
// development with a log line so misconfigured frontends are visible.
func corsConfig(cfg config.App, logger *zap.Logger) cors.Config {
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowed[o] = struct{}{}
	}

	return cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if origin == "" {
				return true
			}
			if _, ok := allowed[origin]; ok {
				return true
			}
			if !cfg.IsProduction() {
				logger.Info("allowing unlisted origin in development", zap.String("origin", origin))
				return true
			}
			if u, err := url.Parse(origin); err == nil && u.Hostname() == cfg.Host {
				return true
			}
			logger.Warn("rejected origin", zap.String("origin", origin))
			return false
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "Accept", "Origin"},
		ExposeHeaders:    []string{"X-New-Session-ID"},
		AllowCredentials: true,
		MaxAge:           time.Hour,
	}
}
