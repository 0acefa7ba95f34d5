package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"filetree-service/internal/MinIO"
	"filetree-service/internal/config"
	"filetree-service/internal/handler"
	"filetree-service/internal/migrations"
	"filetree-service/internal/repository/BlackListRepo"
	"filetree-service/internal/repository/demoFileRepo"
	"filetree-service/internal/repository/fileRepo"
	"filetree-service/internal/repository/folderRepo"
	"filetree-service/internal/repository/sessionCache"
	"filetree-service/internal/repository/sessionRepo"
	"filetree-service/internal/repository/userRepo"
	"filetree-service/internal/server"
	"filetree-service/internal/service/authService"
	"filetree-service/internal/service/demoService"
	"filetree-service/internal/service/fileService"
	"filetree-service/internal/storage/s3Store"
	"filetree-service/pkg/database/postgres"
	"filetree-service/pkg/database/redis"
	"filetree-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type objectStore interface {
	fileService.ObjectStore
	Ping(ctx context.Context) error
}

func main() {
	ctx, err := logger.New(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.GetLogger(ctx)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	pool, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := migrations.RunPool(ctx, pool); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("cannot connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialise object store", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}

	demoSessions := sessionCache.New(redisClient, sessionRepo.New(pool))
	authServ := authService.New(userRepo.New(pool), demoSessions, BlackListRepo.NewBlackListRepo(redisClient), authService.Config{
		JWTSecret:      cfg.JWTSecret,
		TokenTTL:       cfg.TokenTTL,
		DemoSessionTTL: cfg.DemoSessionTTL,
		BcryptCost:     cfg.BcryptCost,
	})
	fileServ := fileService.New(folderRepo.New(pool), fileRepo.New(pool), objects)
	demoServ := demoService.New(authServ, demoFileRepo.New(pool), demoSessions, cfg.DemoPurgeGrace)

	health := handler.NewHealth(map[string]handler.Check{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		"objects":  objects.Ping,
	})

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.Services{
		Auth:   authServ,
		Files:  fileServ,
		Demo:   demoServ,
		Health: health,
	}, server.Options{
		Logger:         log,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateBurst:  cfg.AuthRateBurst,
		CORSOrigins:    cfg.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Fatal("failed to listen", zap.String("port", cfg.GRPCPort), zap.Error(err))
	}
	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, health.Server())

	go health.Run(ctx, 15*time.Second)
	go demoServ.Run(ctx, cfg.DemoPurgeInterval)

	go func() {
		log.Info("grpc health server started", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("grpc server stopped", zap.Error(err))
		}
	}()
	go func() {
		log.Info("http server started", zap.String("port", cfg.HTTPPort), zap.String("storage", cfg.StorageBackend))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	log.Info("server stopped")
}

func newObjectStore(ctx context.Context, cfg *config.Config) (objectStore, error) {
	if cfg.StorageBackend == config.StorageS3 {
		store, err := s3Store.New(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	client, err := MinIO.New(ctx, cfg.MinIO)
	if err != nil {
		return nil, err
	}
	return client, nil
}
