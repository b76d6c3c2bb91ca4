package http

import (
	"context"

	"github.com/aurora-ops/realtime/internal/adapters/signal"
	"github.com/aurora-ops/realtime/internal/app"
	"github.com/aurora-ops/realtime/internal/app/orch"
	"github.com/aurora-ops/realtime/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

const sessionName = "AuroraSession"

// Deps are the application services the router exposes.
type Deps struct {
	Orch          *orch.Orchestrator
	Auth          *app.Authenticator
	Tasks         *app.TaskService
	Notifications *app.NotificationService
	Limiter       *signal.RateLimiter
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))

	ctrl := signal.NewSignalWSController(deps.Orch, deps.Auth, deps.Tasks, deps.Notifications, deps.Limiter, signal.Options{
		ReadLimit:          cfg.ReadLimit,
		PingPeriod:         cfg.PingPeriod,
		PongWait:           cfg.PongWait,
		WriteWait:          cfg.WriteWait,
		SendBuffer:         cfg.SendBuffer,
		NotificationsLimit: cfg.NotificationsLimit,
		TasksLimit:         cfg.TasksLimit,
		AllowedOrigins:     cfg.AllowedOrigins,
	})
	r.GET("/ws", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	h := &apiHandlers{deps: deps, validate: validator.New()}
	api := r.Group("/api")
	api.GET("/health", h.health)
	api.GET("/stats", h.stats)

	authed := api.Group("", h.requireIdentity)
	authed.GET("/tasks", h.listTasks)
	authed.PATCH("/tasks/:id", h.updateTask)
	authed.GET("/presence", h.presence)
	authed.PUT("/session/organization", h.setOrganization)

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")
	return r
}
