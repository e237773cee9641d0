package main

import (
	"context"
	"fmt"
	"os"

	"meetdesk-backend/internal/cli"
	"meetdesk-backend/internal/middleware"
	"meetdesk-backend/internal/repository/cockroach"
	redisRepo "meetdesk-backend/internal/repository/redis"
	"meetdesk-backend/internal/service/meeting"
	"meetdesk-backend/internal/service/video"
	"meetdesk-backend/pkg/config"
	"meetdesk-backend/pkg/database"
	"meetdesk-backend/pkg/env"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := env.Load(".env"); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	deps := &cli.Dependencies{
		Config: cfg,
		Out:    os.Stdout,
		Connect: func(ctx context.Context) (*cli.Backend, error) {
			return connect(ctx, cfg)
		},
	}

	return cli.NewRootCmd(deps).Execute()
}

func connect(ctx context.Context, cfg *config.Config) (*cli.Backend, error) {
	db, err := database.NewCockroachDB(ctx, &database.CockroachConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: 2,
		MinConns: 1,
	})
	if err != nil {
		return nil, err
	}

	redisDB := database.NewRedisDB(&database.RedisConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: 2,
		Timeout:  cfg.Redis.Timeout,
	})
	if err := redisDB.HealthCheck(ctx); err != nil {
		db.Close()
		redisDB.Close()
		return nil, err
	}

	meetingRepo := cockroach.NewMeetingRepository(db.Pool)
	if err := meetingRepo.EnsureSchema(ctx); err != nil {
		db.Close()
		redisDB.Close()
		return nil, err
	}

	videoSvc := video.NewService(meetingRepo, nil)
	desks := meeting.NewService(redisRepo.NewDeskRepository(redisDB.Client), meeting.Config{
		Identity: middleware.ContextIdentity{},
		Video:    videoSvc,
		Guard:    redisRepo.NewLockRepository(redisDB.Client, cfg.Meeting.LockTTL),
		BaseURL:  cfg.Meeting.BaseURL,
	}, cfg.Meeting.SessionTTL)

	return &cli.Backend{
		Desks: desks,
		Video: videoSvc,
		Close: func() {
			redisDB.Close()
			db.Close()
		},
	}, nil
}
