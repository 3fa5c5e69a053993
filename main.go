package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkly-api/internal/cache"
	"linkly-api/internal/config"
	"linkly-api/internal/database"
	"linkly-api/internal/jwt"
	"linkly-api/internal/metrics"
	"linkly-api/internal/repository"
	"linkly-api/internal/router"
	"linkly-api/internal/service"
)

const shutdownTimeout = 10 * time.Second

func newLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet: the environment decides which one to build.
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err := newLogger(cfg.IsProduction())
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		urlRepo  repository.URLRepository
		userRepo repository.UserRepository
		pingDB   func(context.Context) error
	)
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set, using the in-memory store")
		urlRepo = repository.NewMemoryURLRepository()
		userRepo = repository.NewMemoryUserRepository()
	} else {
		db, err := database.NewConnection(ctx, cfg.DatabaseURL, cfg.StoreTimeout)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := database.RunMigrations(ctx, db); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Connected to PostgreSQL")

		urlRepo = repository.NewURLRepository(db, cfg.StoreTimeout)
		userRepo = repository.NewUserRepository(db, cfg.StoreTimeout)
		pingDB = db.PingContext
	}

	// Redis is optional, QR images are rendered on every request without it
	var cacheClient cache.Cache
	if cfg.RedisURL != "" {
		cacheClient, err = cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Failed to connect to Redis, continuing without cache", zap.Error(err))
			cacheClient = nil
		} else {
			defer cacheClient.Close()
			logger.Info("Connected to Redis cache")
		}
	}

	m := metrics.New()
	jwtService := jwt.NewJWTService(cfg.JWTSecret, cfg.JWTTTL)

	urlService := service.NewURLService(urlRepo, cfg.BaseURL, logger, m)
	authService := service.NewAuthService(userRepo, jwtService, logger, m)
	qrService := service.NewQRCodeService(urlService, cacheClient, logger)

	handler := router.New(router.Dependencies{
		Config:      cfg,
		Logger:      logger,
		Metrics:     m,
		JWT:         jwtService,
		URLService:  urlService,
		AuthService: authService,
		QRService:   qrService,
		PingDB:      pingDB,
	})
	defer handler.Stop()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			zap.String("addr", srv.Addr),
			zap.String("base_url", cfg.BaseURL),
			zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			logger.Fatal("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
