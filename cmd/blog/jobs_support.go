package main

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/blog-forge/internal/config"
	"github.com/yourusername/blog-forge/internal/jobs"
	"github.com/yourusername/blog-forge/internal/notify"
	"github.com/yourusername/blog-forge/internal/storage"
)

// setupJobs はコメント通知ジョブの依存を組み立てます。返す関数で後片付けします。
func setupJobs(cfg *config.Config, store *storage.Store, logger *logrus.Logger) (*jobs.Manager, func(), error) {
	opt, err := redis.ParseURL(cfg.QueueRedisURL)
	if err != nil {
		return nil, nil, err
	}

	redisClient := redis.NewClient(opt)
	ttlMinutes := cfg.JobExpireMinutes
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	records := jobs.NewStore(redisClient, time.Duration(ttlMinutes)*time.Minute)

	sender, err := notify.NewSender(cfg, logger)
	if err != nil {
		_ = redisClient.Close()
		return nil, nil, err
	}

	manager, err := jobs.NewManager(cfg, records, store, sender, logger)
	if err != nil {
		_ = redisClient.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := manager.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("failed to stop job manager")
		}
		_ = redisClient.Close()
	}
	return manager, cleanup, nil
}
