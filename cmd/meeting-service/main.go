package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oklog/run"
	"go.uber.org/zap"

	meetingHandler "meetdesk-backend/internal/handler/http/meeting"
	wsHandler "meetdesk-backend/internal/handler/ws"
	"meetdesk-backend/internal/middleware"
	"meetdesk-backend/internal/repository/cockroach"
	redisRepo "meetdesk-backend/internal/repository/redis"
	"meetdesk-backend/internal/service/meeting"
	"meetdesk-backend/internal/service/recording"
	"meetdesk-backend/internal/service/video"
	"meetdesk-backend/pkg/audit"
	"meetdesk-backend/pkg/cache"
	"meetdesk-backend/pkg/config"
	"meetdesk-backend/pkg/constants"
	"meetdesk-backend/pkg/database"
	"meetdesk-backend/pkg/env"
	"meetdesk-backend/pkg/jwt"
	"meetdesk-backend/pkg/logger"
	"meetdesk-backend/pkg/metrics"
	"meetdesk-backend/pkg/resilience"
)

func main() {
	if err := env.Load(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		FilePath:    cfg.Log.FilePath,
		ServiceName: cfg.Server.ServiceName,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := serve(cfg); err != nil {
		logger.Fatal("Meeting service stopped", zap.Error(err))
	}
	logger.Info("Meeting service shut down")
}

func serve(cfg *config.Config) error {
	ctx := context.Background()

	// 1. CockroachDB holds the created meetings
	db, err := database.ConnectCockroachDB(ctx, &database.CockroachConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	}, constants.DatabaseConnectRetries)
	if err != nil {
		return err
	}
	defer db.Close()

	meetingRepo := cockroach.NewMeetingRepository(db.Pool)
	if err := meetingRepo.EnsureSchema(ctx); err != nil {
		return err
	}

	// 2. Redis holds desks, creation locks and notice channels
	redisDB := database.NewRedisDB(&database.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
		Timeout:  cfg.Redis.Timeout,
	})
	defer redisDB.Close()
	if err := redisDB.HealthCheck(ctx); err != nil {
		logger.Warn("Redis unavailable at startup, running degraded", zap.Error(err))
	}

	deskRepo := redisRepo.NewDeskRepository(redisDB.Client)
	lockRepo := redisRepo.NewLockRepository(redisDB.Client, cfg.Meeting.LockTTL)
	noticeRepo := redisRepo.NewNoticeRepository(redisDB.Client)

	// 3. MinIO holds recordings
	minioClient, err := recording.NewMinioClient(ctx,
		cfg.MinIO.Endpoint,
		cfg.MinIO.AccessKey,
		cfg.MinIO.SecretKey,
		cfg.MinIO.Bucket,
		cfg.MinIO.UseSSL)
	if err != nil {
		return err
	}

	// 4. Services
	appMetrics := metrics.NewMetrics(cfg.Server.ServiceName)
	meetingCache := cache.NewMemoryCache(10*time.Minute, 10000)
	stopCleanup := meetingCache.StartCleanup(time.Minute)
	defer stopCleanup()
	videoSvc := video.NewService(meetingRepo, meetingCache)
	deskSvc := meeting.NewService(deskRepo, meeting.Config{
		Identity: middleware.ContextIdentity{},
		Video:    videoSvc,
		Guard:    lockRepo,
		Recorder: appMetrics,
		Logger:   logger.Log,
		BaseURL:  cfg.Meeting.BaseURL,
	}, cfg.Meeting.SessionTTL)
	storageBreaker := resilience.NewCircuitBreaker("minio", resilience.DefaultConfig(), appMetrics)
	recordingSvc := recording.NewService(minioClient, videoSvc, cfg.MinIO.Bucket, cfg.MinIO.URLExpiry, storageBreaker)

	// 5. Handlers
	jwtManager := jwt.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	revocationChecker := middleware.NewRedisRevocationChecker(redisDB.Client)
	auditLogger := audit.NewAuditLogger(redisDB.Client, constants.AuditLogRetention)
	handler := meetingHandler.NewHandler(deskSvc, videoSvc, recordingSvc, noticeRepo, appMetrics, auditLogger, cfg.Meeting.BaseURL)
	noticeHub := wsHandler.NewNoticeHub(noticeRepo, appMetrics, constants.MaxWebSocketConnections,
		middleware.AllowOrigin(cfg.Server.AllowedOrigins))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.HealthCheck(cfg.Server.ServiceName, map[string]middleware.HealthChecker{
		"redis": redisDB,
	}))
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.NewPrometheusMiddleware(appMetrics).Handler())

	router.GET("/metrics", middleware.MetricsHandler(appMetrics))

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(jwtManager, revocationChecker))
	handler.RegisterRoutes(v1)
	v1.GET("/desk/ws", noticeHub.ServeWS)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 6. Run until a signal arrives or an actor fails
	var g run.Group

	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	g.Add(func() error {
		logger.Info("🚀 Meeting service starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down HTTP server", zap.Error(err))
		}
	})

	hubCtx, stopHub := context.WithCancel(ctx)
	g.Add(func() error {
		return ignoreCanceled(noticeHub.Run(hubCtx))
	}, func(error) {
		stopHub()
	})

	healthCtx, stopHealth := context.WithCancel(ctx)
	g.Add(func() error {
		return ignoreCanceled(redisDB.RunHealthCheck(healthCtx, constants.RedisHealthCheckInterval))
	}, func(error) {
		stopHealth()
	})

	err = g.Run()
	var signalErr run.SignalError
	if errors.As(err, &signalErr) {
		logger.Info("Received signal", zap.String("signal", signalErr.Signal.String()))
		return nil
	}
	return err
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
