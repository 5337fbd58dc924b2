package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"weatherlog/internal/auth"
	"weatherlog/internal/cache"
	"weatherlog/internal/config"
	"weatherlog/internal/db"
	apperrors "weatherlog/internal/errors"
	"weatherlog/internal/gateway"
	"weatherlog/internal/logging"
	"weatherlog/internal/repository"
	"weatherlog/internal/service"
)

const (
	demoUsername = "demo"
	demoEmail    = "demo@example.com"
	demoPassword = "demo1234"
)

var demoLocations = []string{"London", "Paris", "Tokyo", "New York", "Sydney"}

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.Environment, cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("seed failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting seed")

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

	userRepo := repository.NewUserRepository(gormDB)
	recordRepo := repository.NewRecordRepository(gormDB)
	authService := service.NewAuthService(
		userRepo,
		auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiry),
		auth.NewTokenStore(cacheClient),
		service.NewUserService(userRepo, cacheClient),
	)
	pipeline := service.NewRecordPipeline(recordRepo, gateway.NewOpenWeatherGateway(gateway.Options{
		APIKey:         cfg.WeatherAPIKey,
		WeatherBaseURL: cfg.WeatherAPIBaseURL,
		GeocodeBaseURL: cfg.GeocodeAPIBaseURL,
		Client:         &http.Client{Timeout: cfg.WeatherHTTPTimeout},
		AllowDegraded:  cfg.GeocodeAllowDegraded,
	}), logger, nil)

	ctx := context.Background()

	session, err := demoSession(ctx, authService)
	if err != nil {
		return err
	}
	logger.Info("demo user ready", slog.String("username", session.User.Username))

	created, failed := seedRecords(ctx, pipeline, session, time.Now().UTC(), logger)
	logger.Info("seed completed", slog.Int("records_created", created), slog.Int("records_failed", failed))
	return nil
}

// demoSession registers the demo user, or signs in when it already exists.
func demoSession(ctx context.Context, authService service.AuthService) (*service.Session, error) {
	session, err := authService.Register(ctx, demoUsername, demoEmail, demoPassword)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, apperrors.ErrUserAlreadyExists) {
		return nil, fmt.Errorf("register demo user: %w", err)
	}
	session, err = authService.Login(ctx, demoUsername, demoPassword)
	if err != nil {
		return nil, fmt.Errorf("login demo user: %w", err)
	}
	return session, nil
}

// seedRecords creates one record per demo location covering today and the next two days.
// Failures are logged and skipped so a missing API key still leaves a usable account.
func seedRecords(ctx context.Context, pipeline service.RecordPipeline, session *service.Session, now time.Time, logger *slog.Logger) (created, failed int) {
	start := now.Format(time.DateOnly)
	end := now.AddDate(0, 0, 2).Format(time.DateOnly)

	for _, location := range demoLocations {
		_, err := pipeline.Submit(ctx, service.SubmitInput{
			UserID:    session.User.ID,
			Location:  location,
			StartDate: start,
			EndDate:   end,
			Mode:      service.ModeCreate,
		})
		if err != nil {
			logger.Warn("skipping demo record", slog.String("location", location), slog.Any("error", err))
			failed++
			continue
		}
		created++
	}
	return created, failed
}
