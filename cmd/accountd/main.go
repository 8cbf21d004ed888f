// Command accountd serves the account API backed by MongoDB and Redis.
//
// Configuration comes from the environment, optionally preloaded from a
// .env file in the working directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/httpapi"
	"github.com/MrEthical07/goAccount/mailer"
	"github.com/MrEthical07/goAccount/metrics/export/prometheus"
	"github.com/MrEthical07/goAccount/mongostore"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn().Err(err).Msg("could not read .env")
	}

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger = logger.Level(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("accountd stopped")
	}
}

func run(ctx context.Context, cfg config, logger zerolog.Logger) error {
	mongoClient, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := mongoClient.Ping(startCtx, nil); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	store := mongostore.New(mongoClient.Database(cfg.MongoDatabase), mongostore.DefaultCollection)
	if err := store.EnsureIndexes(startCtx); err != nil {
		return err
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURI)
	if err != nil {
		return fmt.Errorf("parse REDIS_URI: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(startCtx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	var mail goAccount.Mailer
	if cfg.EmailUser == "" {
		logger.Warn().Msg("EMAIL_USER not set, verification codes are logged instead of mailed")
		mail = mailer.NewLogMailer(logger)
	} else {
		smtpMailer, err := mailer.NewSMTP(mailer.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.EmailUser,
			Password: cfg.EmailPass,
		})
		if err != nil {
			return fmt.Errorf("smtp mailer: %w", err)
		}
		mail = smtpMailer
	}

	engine, err := goAccount.New().
		WithConfig(cfg.engineConfig()).
		WithRedis(rdb).
		WithUserStore(store).
		WithMailer(mail).
		WithAuditSink(goAccount.NewLogSink(logger.With().Str("component", "audit").Logger())).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	apiCfg := httpapi.Config{
		APIVersion:   cfg.APIVersion,
		CORSOrigin:   cfg.CORSOrigin,
		CookieSecure: cfg.CookieSecure,
		Logger:       logger,
	}
	if cfg.MetricsEnabled {
		apiCfg.Metrics = prometheus.New(engine).Handler()
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(cfg.Port)),
		Handler:           httpapi.NewHandler(engine, apiCfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server is running")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
