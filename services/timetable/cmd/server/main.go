package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"srik/pkg/logging"
	"srik/services/timetable/internal/auth"
	"srik/services/timetable/internal/clients"
	"srik/services/timetable/internal/config"
	"srik/services/timetable/internal/db"
	internalhttp "srik/services/timetable/internal/http"
	"srik/services/timetable/internal/jobs"
	"srik/services/timetable/internal/live"
	"srik/services/timetable/internal/operations"
	"srik/services/timetable/internal/scheduling"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := logging.New("timetable", cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connection failed", zap.Error(err))
	}
	defer pool.Close()
	store := db.NewStore(pool)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancel()
			logger.Fatal("redis ping failed", zap.Error(err))
		}
		cancel()
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
	}

	hub := live.NewHub(redisClient, cfg.LiveChannel, logger)
	go hub.Run(ctx)

	var sso internalhttp.SSOVerifier
	switch {
	case cfg.IdentityGRPCAddr != "":
		identity, err := clients.NewIdentity(ctx, cfg.IdentityGRPCAddr, cfg.ServiceAuthToken, cfg.GRPCDialTimeout)
		if err != nil {
			logger.Fatal("grpc dial failed", zap.Error(err))
		}
		defer identity.Close()
		sso = identity
	case cfg.SSOSecret != "":
		sso = auth.LocalSSO{Secret: cfg.SSOSecret, Issuer: cfg.SSOIssuer, Audience: cfg.SSOAudience}
	default:
		logger.Warn("sso disabled: neither IDENTITY_GRPC_ADDR nor SSO_SECRET is set")
	}

	lock := func(ctx context.Context, termID int, fn func(operations.Queries) error) error {
		return store.WithTermLock(ctx, termID, func(q *db.Queries) error { return fn(q) })
	}
	service := operations.NewService(store.Queries, lock, hub, logger, operations.Options{
		AllowBreakSlots: cfg.AllowBreakSlots,
		Generator: scheduling.Options{
			FillFreeSlots:      cfg.FillFreeSlots,
			MaxDailyPerSubject: cfg.MaxDailyPerSubject,
		},
	})

	rollover := jobs.StartTermRolloverJob(ctx, jobs.TermRolloverConfig{
		Enabled:  cfg.TermRolloverEnabled,
		Interval: cfg.TermRolloverInterval,
		Timeout:  cfg.TermRolloverTimeout,
	}, store.Queries, logger, time.Now)

	server := internalhttp.NewServer(cfg, service, sso, hub, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("timetable http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	<-rollover
}
