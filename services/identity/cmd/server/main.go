package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	identityv1 "srik/pkg/identity/v1"
	"srik/pkg/logging"
	"srik/services/identity/internal/auth"
	"srik/services/identity/internal/cache"
	"srik/services/identity/internal/config"
	"srik/services/identity/internal/db"
	identitygrpc "srik/services/identity/internal/grpc"
	internalhttp "srik/services/identity/internal/http"
	"srik/services/identity/internal/jobs"
	"srik/services/identity/internal/repository"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := logging.New("identity", cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Production() && (cfg.JWTSecret == "dev-secret" || cfg.SSOSecret == "dev-sso-secret") {
		logger.Fatal("JWT_SECRET and SSO_SECRET must be set in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connection failed", zap.Error(err))
	}
	defer pool.Close()
	store := repository.NewStore(pool)

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
	} else {
		logger.Info("redis not configured: session cache and token blacklist disabled")
	}
	sessions := cache.New(redisClient, cfg.UserCacheTTL)

	purge, err := jobs.StartSessionPurgeJob(ctx, jobs.SessionPurgeConfig{
		Schedule:   cfg.SessionPurgeSchedule,
		Timeout:    cfg.SessionPurgeTimeout,
		RunOnStart: true,
	}, store, logger, time.Now)
	if err != nil {
		logger.Fatal("session purge job init failed", zap.Error(err))
	}

	var grpcServer *grpc.Server
	if cfg.ServiceAuthToken != "" {
		interceptor, err := identitygrpc.NewServiceAuthUnaryInterceptor(cfg.ServiceAuthToken, logger)
		if err != nil {
			logger.Fatal("grpc service auth init failed", zap.Error(err))
		}
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(interceptor))
		identityv1.RegisterIdentityServiceServer(grpcServer, identitygrpc.NewIdentityServer(auth.SSOConfig{
			Secret:   cfg.SSOSecret,
			Issuer:   cfg.SSOIssuer,
			Audience: cfg.SSOAudience,
			TTL:      cfg.SSOTokenTTL,
		}, logger))

		listener, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.Fatal("grpc listen error", zap.Error(err))
		}
		go func() {
			logger.Info("identity grpc listening", zap.String("addr", cfg.GRPCAddr))
			if err := grpcServer.Serve(listener); err != nil {
				logger.Fatal("grpc server error", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("grpc disabled: SERVICE_AUTH_TOKEN is not set")
	}

	server := internalhttp.NewServer(cfg, store, sessions, logger)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("identity http listening", zap.String("addr", cfg.HTTPAddr))
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
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	<-purge
}
