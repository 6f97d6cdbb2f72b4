package http

import (
	"fmt"
	"log/slog"

	"github.com/geocoder89/userauth/internal/auth"
	"github.com/geocoder89/userauth/internal/config"
	"github.com/geocoder89/userauth/internal/http/handlers"
	"github.com/geocoder89/userauth/internal/http/middlewares"
	"github.com/geocoder89/userauth/internal/observability"
	"github.com/geocoder89/userauth/internal/security"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Store is everything the HTTP layer needs from a credential store. Both
// repo/postgres and repo/memory satisfy it.
type Store interface {
	handlers.CredentialStore
	handlers.UserStore
	handlers.Pinger
}

type Deps struct {
	Config config.Config
	Log    *slog.Logger
	Store  Store
	Tokens *auth.Manager
	Hasher *security.PasswordHasher
	Prom   *observability.Prom
}

func NewRouter(d Deps) (*gin.Engine, error) {
	policy, err := middlewares.ParseAccessPolicy(d.Config.AuthzPolicy)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	if d.Log == nil {
		d.Log = slog.Default()
	}
	if d.Prom == nil {
		d.Prom = observability.NewProm()
	}

	if !d.Config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(d.Config.ServiceName))
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(d.Prom.GinHandleMiddleware())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORS(d.Config.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(d.Config.MaxBodyBytes))

	// ops
	health := handlers.NewHealthHandler(d.Store)
	if d.Config.APIPrefix != "/" {
		r.GET("/", handlers.Welcome)
	}
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)
	r.GET("/metrics", gin.WrapH(d.Prom.Handler()))

	authMw := middlewares.NewAuthMiddleware(d.Tokens, d.Log, d.Prom)
	authHandler := handlers.NewAuthHandler(d.Store, d.Tokens, d.Hasher, d.Log, d.Prom)
	usersHandler := handlers.NewUsersHandler(d.Store, d.Log)

	jsonOnly := middlewares.RequireJSON()

	api := r.Group(d.Config.APIPrefix)
	{
		api.POST("/register", jsonOnly, authHandler.Register)
		api.POST("/login", jsonOnly, authHandler.Login)

		protected := api.Group("")
		protected.Use(authMw.RequireAuth())
		{
			protected.GET("", usersHandler.ListUsers)

			owned := protected.Group("/:id")
			owned.Use(authMw.RequireAccess(policy, "id"))
			{
				owned.GET("", usersHandler.GetUserByID)
				owned.PUT("", jsonOnly, usersHandler.UpdateUser)
				owned.DELETE("", usersHandler.DeleteUser)
			}
		}
	}

	return r, nil
}
