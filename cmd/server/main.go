package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/collabhub/gateway/internal/adapter/store"
	"github.com/collabhub/gateway/internal/auth"
	"github.com/collabhub/gateway/internal/handler"
	"github.com/collabhub/gateway/internal/middleware"
	"github.com/collabhub/gateway/internal/proxy"
	"github.com/collabhub/gateway/internal/session"
	"github.com/collabhub/gateway/pkg/config"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"
)

func main() {
	// ── Load .env file ───────────────────────────────────────────────────
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	// ── Configuration ────────────────────────────────────────────────────
	cfg := config.Load()

	slog.Info("🚀 Starting CollabHub Gateway",
		"port", cfg.Port,
		"backend", cfg.BackendBaseURL,
		"env", cfg.AppEnv,
		"refresh_enabled", cfg.RefreshEnabled,
	)

	// ── Database ─────────────────────────────────────────────────────────
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()

	// ── Session & auth ───────────────────────────────────────────────────
	codec := &session.Codec{Secret: cfg.SessionSecret, MaxAge: cfg.SessionMaxAge}

	exchanger := auth.NewExchanger(auth.Config{
		BackendBaseURL: cfg.BackendBaseURL,
		ClientAPIKey:   cfg.ClientAPIKey,
		GuestToken:     cfg.GuestToken,
		GuestEmail:     cfg.GuestEmail,
		GuestPassword:  cfg.GuestPassword,
	}, &http.Client{Timeout: 15 * time.Second})

	// ── Proxy gateway ────────────────────────────────────────────────────
	gateway := proxy.New(proxy.Config{
		BackendBaseURL: cfg.BackendBaseURL,
		ClientAPIKey:   cfg.ClientAPIKey,
		Timeout:        cfg.ProxyTimeout,
		Production:     cfg.IsProduction(),
	}, &http.Client{}, pgStore)

	// ── Fiber App ────────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowCredentials: true,
	}))
	app.Use(middleware.SessionMiddleware(middleware.SessionConfig{
		Codec:    codec,
		Registry: pgStore,
	}))

	// ── Routes ───────────────────────────────────────────────────────────
	authHandler := handler.NewAuthHandler(exchanger, codec, pgStore, handler.AuthConfig{
		CookieMaxAge:   cfg.SessionMaxAge,
		CookieSecure:   cfg.IsProduction(),
		RefreshEnabled: cfg.RefreshEnabled,
	})
	authHandler.Register(app)

	proxyHandler := handler.NewProxyHandler(gateway)
	proxyHandler.Register(app)

	auditHandler := handler.NewAuditHandler(pgStore)
	auditHandler.Register(app)

	// Health check
	app.Get("/api/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"app":    cfg.AppName,
		})
	})

	// ── Start ────────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("🌐 Fiber listening", "port", cfg.Port)
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
