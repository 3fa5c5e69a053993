// Package router assembles the HTTP surface: middleware chain, routes and CORS.
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"linkly-api/internal/config"
	"linkly-api/internal/controllers"
	"linkly-api/internal/jwt"
	"linkly-api/internal/metrics"
	"linkly-api/internal/middleware"
	"linkly-api/internal/models"
	"linkly-api/internal/service"
)

const (
	msgRouteNotFound   = "Route not found"
	healthCheckTimeout = 2 * time.Second
)

// Dependencies are the collaborators the HTTP surface needs.
type Dependencies struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	JWT         *jwt.JWTService
	URLService  service.URLService
	AuthService service.AuthService
	QRService   service.QRCodeService

	// PingDB reports store health. Nil means the in-memory store is in use.
	PingDB func(ctx context.Context) error
}

// Router is the assembled HTTP handler.
type Router struct {
	handler  http.Handler
	limiters []*middleware.RateLimiter
}

// New builds the gin engine and wraps it with CORS.
func New(d Dependencies) *Router {
	cfg := d.Config
	exposeDetails := !cfg.IsProduction()

	r := &Router{}
	limiter := func(rps float64, burst int) gin.HandlerFunc {
		rl := middleware.NewRateLimiter(rate.Limit(rps), burst)
		r.limiters = append(r.limiters, rl)
		return rl.LimitMiddleware()
	}

	generalLimit := limiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	authLimit := limiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst)
	shortenLimit := limiter(cfg.RateLimitShortenRPS, cfg.RateLimitShortenBurst)
	redirectLimit := limiter(cfg.RateLimitRedirectRPS, cfg.RateLimitRedirectBurst)

	authController := controllers.NewAuthController(d.AuthService, exposeDetails)
	shortenerController := controllers.NewShortenerController(d.URLService, d.JWT, exposeDetails)
	qrcodeController := controllers.NewQRCodeController(d.QRService, exposeDetails)

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		middleware.Recovery(d.Logger, exposeDetails),
		middleware.Metrics(d.Metrics),
	)

	engine.GET("/health", healthHandler(d.PingDB))
	if d.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	api := engine.Group("/api")
	api.Use(generalLimit)
	{
		auth := api.Group("/auth")
		auth.Use(authLimit)
		{
			auth.POST("/register", authController.Register)
			auth.POST("/login", authController.Login)
		}

		api.POST("/shorten", shortenLimit, shortenerController.Shorten)
		api.GET("/links/my-links", middleware.RequireAuth(d.JWT), shortenerController.MyLinks)
		api.GET("/qrcode/:code", qrcodeController.GenerateQRCode)
	}

	engine.GET("/:code", redirectLimit, shortenerController.Redirect)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: msgRouteNotFound})
	})

	r.handler = cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "x-auth-token"},
		ExposedHeaders:   []string{middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	})(engine)

	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// Stop releases the rate limiter janitors.
func (r *Router) Stop() {
	for _, rl := range r.limiters {
		rl.Stop()
	}
}

func healthHandler(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		database := "memory"
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
			defer cancel()

			database = "connected"
			if err := ping(ctx); err != nil {
				database = "disconnected"
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"database":  database,
		})
	}
}
