package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/rmorel/userhub/internal/auth"
	"github.com/rmorel/userhub/internal/cache"
	"github.com/rmorel/userhub/internal/config"
	"github.com/rmorel/userhub/internal/domain/user"
	"github.com/rmorel/userhub/internal/http/handlers"
	"github.com/rmorel/userhub/internal/http/middlewares"
	"github.com/rmorel/userhub/internal/observability"
	"github.com/rmorel/userhub/internal/security"
)

const maxRequestBody = 1 << 20 // 1 MiB

// UsersStore is everything the HTTP layer needs from persistence. Both
// repo/postgres and repo/memory satisfy it.
type UsersStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	Update(ctx context.Context, u user.User) (user.User, error)
	UpdateStatus(ctx context.Context, id, status string) (user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetLastLogin(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, offset, limit int) ([]user.User, error)
	Count(ctx context.Context) (int, error)
}

type RouterDeps struct {
	Log    *slog.Logger
	Cfg    config.Config
	Store  UsersStore
	JWT    *auth.Manager
	Hasher *security.Hasher

	// Prom is optional; tests leave it nil.
	Prom *observability.Prom

	// Ping is the readiness probe, usually pgxpool.Pool.Ping.
	Ping func(ctx context.Context) error
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("userhub"))
	r.Use(RequestID())
	r.Use(RequestLogger(deps.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(deps.Cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxRequestBody))
	r.Use(middlewares.RequireJSON())

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// health

	health := handlers.NewHealthHandler(deps.Ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	// wire up handlers

	authHandler := handlers.NewAuthHandler(
		deps.Store, deps.Store, deps.Store,
		deps.JWT, deps.Hasher, deps.Log,
	)

	if deps.Prom != nil {
		authHandler = authHandler.WithMetrics(deps.Prom)
	}

	userHandler := handlers.NewUserHandler(deps.Store, deps.Hasher, deps.Log)
	adminHandler := handlers.NewAdminHandler(deps.Store, cache.New(5*time.Second), deps.Log)

	gate := middlewares.NewAuthMiddleware(deps.JWT, deps.Store)

	api := r.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.POST("/signup", authHandler.SignUp)
	authRoutes.POST("/login", authHandler.Login)
	authRoutes.GET("/me", gate.RequireAuth(), authHandler.Me)

	userRoutes := api.Group("/user", gate.RequireAuth())
	userRoutes.GET("/profile", userHandler.GetProfile)
	userRoutes.PUT("/profile", userHandler.UpdateProfile)
	userRoutes.PUT("/change-password", userHandler.ChangePassword)

	adminRoutes := api.Group("/admin", gate.RequireAuth(), gate.RequireAdmin())
	adminRoutes.GET("/users", adminHandler.ListUsers)
	adminRoutes.PATCH("/users/:id/activate", adminHandler.ActivateUser)
	adminRoutes.PATCH("/users/:id/deactivate", adminHandler.DeactivateUser)

	return r
}
