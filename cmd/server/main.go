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

	"github.com/labstack/echo/v4"

	_ "weatherlog/docs" // swagger docs

	"weatherlog/internal/auth"
	"weatherlog/internal/cache"
	"weatherlog/internal/config"
	"weatherlog/internal/db"
	"weatherlog/internal/gateway"
	"weatherlog/internal/handler"
	"weatherlog/internal/logging"
	"weatherlog/internal/ratelimit"
	"weatherlog/internal/repository"
	"weatherlog/internal/router"
	"weatherlog/internal/service"
)

const shutdownTimeout = 10 * time.Second

// @title Weather Log API
// @version 1.0
// @description Weather forecast records with JWT authentication, per-user storage and export.
// @host localhost:5000
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	gormDB, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close(gormDB, logger)

	if err := db.Prepare(gormDB, cfg, logger); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cacheClient.Close() }()
	if cacheClient.Enabled() {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := cacheClient.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable, continuing without cache", slog.Any("error", err))
		}
		cancel()
	} else {
		logger.Info("REDIS_ADDR not set: token revocation and shared rate limits are disabled")
	}

	if cfg.WeatherAPIKey == "" {
		logger.Warn("WEATHER_API_KEY not set: weather lookups will fail")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	recordRepo := repository.NewRecordRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiry)
	tokenStore := auth.NewTokenStore(cacheClient)

	weatherGateway := gateway.NewOpenWeatherGateway(gateway.Options{
		APIKey:         cfg.WeatherAPIKey,
		WeatherBaseURL: cfg.WeatherAPIBaseURL,
		GeocodeBaseURL: cfg.GeocodeAPIBaseURL,
		Client:         &http.Client{Timeout: cfg.WeatherHTTPTimeout},
		AllowDegraded:  cfg.GeocodeAllowDegraded,
	})

	// Initialize services
	userService := service.NewUserService(userRepo, cacheClient)
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, userService)
	recordService := service.NewRecordService(recordRepo)
	pipeline := service.NewRecordPipeline(recordRepo, weatherGateway, logger, nil)
	weatherService := service.NewWeatherService(weatherGateway)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	router.Register(e, cfg, logger,
		auth.Middleware(jwtService, tokenStore),
		ratelimit.NewStore(cacheClient, cfg.RateLimitMax, cfg.RateLimitWindow, logger),
		router.Handlers{
			Auth:    handler.NewAuthHandler(authService),
			User:    handler.NewUserHandler(userService),
			Record:  handler.NewRecordHandler(pipeline, recordService),
			Weather: handler.NewWeatherHandler(weatherService),
			Export:  handler.NewExportHandler(recordService),
			Health:  handler.NewHealthHandler(cfg.Environment),
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.ServerPort
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.String("addr", addr),
			slog.String("environment", cfg.Environment),
			slog.String("swagger", "/swagger/index.html"),
		)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
