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
	"github.com/rs/zerolog"

	"membership/internal/api"
	"membership/internal/app"
	"membership/internal/auth"
	"membership/internal/cloudinary"
	"membership/internal/config"
	"membership/internal/httpmiddleware"
	"membership/internal/logger"
	"membership/internal/metrics"
	"membership/internal/paymongo"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Component("api")

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App, log zerolog.Logger) error {
	ctx := context.Background()

	backend, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	m := metrics.New()
	opts := app.Options{Metrics: m}
	switch {
	case cfg.PayMongoSkip:
		opts.Gateway = paymongo.New(cfg.PayMongoBaseURL, "", true)
		log.Warn().Msg("paymongo in skip mode, checkout links are mocked")
	case cfg.PayMongoSecretKey != "":
		opts.Gateway = paymongo.New(cfg.PayMongoBaseURL, cfg.PayMongoSecretKey, false)
	default:
		log.Info().Msg("paymongo not configured, online checkout disabled")
	}

	if cfg.CloudinaryConfigured() {
		opts.Uploader = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Info().Str("cloud", cfg.CloudinaryCloudName).Msg("cloudinary configured")
	} else {
		log.Info().Msg("cloudinary not configured, receipt uploads disabled")
	}

	svc := backend.Services(cfg, log, opts)

	var limiter httpmiddleware.Limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(backend.Redis.Client, "membership:ratelimit", cfg.RateLimitPerMin)
	}

	checks := map[string]api.HealthCheck{}
	if backend.DB != nil {
		checks["db"] = backend.DB.Healthy
	}
	if backend.Redis != nil {
		checks["redis"] = backend.Redis.Healthy
	}

	r := api.NewRouter(api.Deps{
		Students:   svc.Students,
		Events:     svc.Events,
		Attendance: svc.Attendance,
		Sanctions:  svc.Sanctions,
		Recomputer: svc.Aggregator,
		Payments:   svc.Payments,
		Signer:     auth.NewSigner(cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL),
		Metrics:    m,
		Limiter:    limiter,
		Queue:      backend.Queue,
		Checks:     checks,
		Log:        logger.Component("http"),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("storage", cfg.StorageBackend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}
	log.Info().Msg("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced shutdown")
	}

	log.Info().Msg("server exited")
	return nil
}
