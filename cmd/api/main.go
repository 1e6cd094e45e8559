package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rast-auth-api/internal/config"
	"github.com/rast-auth-api/internal/infrastructure/dynamo"
	"github.com/rast-auth-api/internal/infrastructure/google"
	jwtinfra "github.com/rast-auth-api/internal/infrastructure/jwt"
	"github.com/rast-auth-api/internal/infrastructure/recaptcha"
	redisinfra "github.com/rast-auth-api/internal/infrastructure/redis"
	"github.com/rast-auth-api/internal/infrastructure/smtp"
	transporthttp "github.com/rast-auth-api/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	if err := dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables); err != nil {
		return err
	}

	otpStore, err := newOTPStore(ctx, cfg, dynamoClient)
	if err != nil {
		return err
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return err
	}

	mailer := smtp.NewMailer(cfg)
	verifyCtx, cancel := context.WithTimeout(ctx, cfg.ExternalCallTimeout)
	if err := mailer.Verify(verifyCtx); err != nil {
		slog.Warn("smtp server not reachable at startup", "host", cfg.SMTPHost, "err", err)
	}
	cancel()

	deps := &transporthttp.Deps{
		UserRepo:    dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		OTPStore:    otpStore,
		Mailer:      mailer,
		JWTProvider: jwtProvider,
	}
	if cfg.RecaptchaEnabled() {
		deps.Challenge = recaptcha.NewVerifier(cfg.RecaptchaSecret)
	} else {
		slog.Warn("RECAPTCHA_SECRET_KEY not set, challenge gate disabled")
	}
	if cfg.GoogleClientID != "" {
		deps.Google = google.NewVerifier(cfg.GoogleClientID)
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "otp_backend", cfg.OTPBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

func newOTPStore(ctx context.Context, cfg *config.Config, dynamoClient dynamo.API) (transporthttp.OTPRepository, error) {
	if cfg.OTPBackend == config.OTPBackendRedis {
		rdb, err := redisinfra.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return redisinfra.NewOTPStore(rdb), nil
	}
	return dynamo.NewOTPRepo(dynamoClient, cfg.DynamoTables.OTPs), nil
}

func setupLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}
