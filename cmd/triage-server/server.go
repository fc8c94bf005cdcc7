package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/triage/triage/internal/config"
	"github.com/triage/triage/internal/domain/triage"
	"github.com/triage/triage/internal/platform/auth"
	"github.com/triage/triage/internal/platform/db"
	"github.com/triage/triage/internal/platform/middleware"
	"github.com/triage/triage/internal/platform/websocket"
)

// newServer builds the HTTP surface. pool may be nil when the turn log is
// disabled.
func newServer(cfg *config.Config, logger zerolog.Logger, svc *triage.Service, hub *websocket.Hub, pool *pgxpool.Pool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
	}))
	e.Use(middleware.BodyLimit("64K"))

	// Auth middleware
	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthSigningKey),
		Skipper:    auth.AuthSkipper,
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"version":  version,
			"turn_log": svc.TurnLogEnabled(),
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// API group
	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	apiV1.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	upgrader := websocket.NewUpgrader(cfg.CORSOrigins)
	triage.NewHandler(svc, upgrader).RegisterRoutes(apiV1)

	feed := apiV1.Group("", auth.RequireRole(auth.RoleClinician))
	websocket.NewFeedHandler(hub, upgrader).RegisterRoutes(feed)

	return e
}

// sweepIdle removes idle sessions until ctx is done. The sweep runs at a
// fraction of ttl, capped to once a minute.
func sweepIdle(ctx context.Context, svc *triage.Service, ttl time.Duration, logger zerolog.Logger) {
	interval := ttl / 4
	if interval > time.Minute || interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.SweepIdle(ctx, ttl); err != nil {
				logger.Error().Err(err).Msg("sweep idle sessions")
			}
		}
	}
}
