package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/autocabinet/internal/auth"
	"github.com/geocoder89/autocabinet/internal/config"
	"github.com/geocoder89/autocabinet/internal/http/handlers"
	"github.com/geocoder89/autocabinet/internal/http/middlewares"
	"github.com/geocoder89/autocabinet/internal/observability"
	"github.com/geocoder89/autocabinet/internal/orders"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	maxBodyBytes  = 1 << 20
	authRateLimit = 20
	crmRateLimit  = 60
	rateWindow    = time.Minute
)

// UserStore is what the auth and profile handlers need from a credential store.
type UserStore interface {
	handlers.UserReader
	handlers.UserWriter
	handlers.UserProfileStore
}

type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Prom     *observability.Prom
	Metrics  http.Handler
	Users    UserStore
	Ping     func(ctx context.Context) error
	Tokens   *auth.Manager
	Contacts handlers.ContactSyncer
	Payments handlers.PaymentsService
	Orders   *orders.Catalog
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" && d.Config.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}

	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(observability.ServiceName))
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Config.CORSAllowedOrigins))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))

	// health
	h := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	// docs
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	// Wire up handlers
	authHandler := handlers.NewAuthHandler(d.Users, d.Users, d.Tokens, d.Contacts, log)
	usersHandler := handlers.NewUsersHandler(d.Users, log)
	paymentsHandler := handlers.NewPaymentsHandler(d.Payments, log)
	ordersHandler := handlers.NewOrdersHandler(d.Orders)

	authMiddleware := middlewares.NewAuthMiddleware(d.Tokens)
	authLimiter := middlewares.NewRateLimiter(authRateLimit, rateWindow)
	crmLimiter := middlewares.NewRateLimiter(crmRateLimit, rateWindow)

	api := r.Group("/api")
	api.Use(middlewares.RequireJSON())

	// public
	authGroup := api.Group("/auth", authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	// everything below needs a bearer token
	protected := api.Group("", authMiddleware.RequireAuth())

	protected.GET("/user/:id", authMiddleware.RequireSelf("id"), usersHandler.Get)
	protected.PUT("/user/:id", authMiddleware.RequireSelf("id"), usersHandler.Update)

	// each dashboard view costs several portal calls; Bitrix24 throttles per webhook
	bitrix := protected.Group("/bitrix", crmLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))
	bitrix.GET("/payments", paymentsHandler.Payments)
	bitrix.GET("/deals", paymentsHandler.Deals)
	bitrix.POST("/deals/:id/pay", paymentsHandler.Pay)

	protected.GET("/orders", ordersHandler.List)

	return r
}
