package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/yaron8/lossreport-infra/config"
	"github.com/yaron8/lossreport-infra/dao"
	"github.com/yaron8/lossreport-infra/logi"
	"github.com/yaron8/lossreport-infra/pipeline"
	"github.com/yaron8/lossreport-infra/service"
)

type Bootstrap struct {
	config      *config.Config
	redisClient *redis.Client
	dao         *dao.DAOReports
	logger      *slog.Logger
}

// NewBootstrap initialises logging and, when needed, the Redis client.
// The Redis client is created when publishing is enabled or when
// withStore is set (the HTTP API always needs it).
func NewBootstrap(cfg *config.Config, withStore bool) (*Bootstrap, error) {
	level, err := logi.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger, err := logi.NewLog(&logi.Config{
		LogDir: cfg.Log.Dir,
		Level:  level,
		Stderr: cfg.Log.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialise logger: %w", err)
	}

	b := &Bootstrap{
		config: cfg,
		logger: logger,
	}

	if withStore || cfg.Redis.Enabled {
		b.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: "", // no password set
			DB:       0,  // use default DB
			Protocol: 2,
		})
		b.dao = dao.NewDAOReports(b.redisClient, cfg.Redis.TTL)
	}
	return b, nil
}

// Pipeline returns a report pipeline that publishes to Redis when enabled.
func (b *Bootstrap) Pipeline() (*pipeline.Pipeline, error) {
	if b.config.Redis.Enabled {
		return pipeline.NewPipeline(b.config, b.dao)
	}
	return pipeline.NewPipeline(b.config, nil)
}

// APIServer returns the HTTP API backed by the Redis result store.
func (b *Bootstrap) APIServer(ctx context.Context) (*service.APIServer, error) {
	if b.dao == nil {
		return nil, fmt.Errorf("result store not configured")
	}
	if err := b.dao.Ping(ctx); err != nil {
		b.logger.Warn("Redis not reachable yet", "addr", b.config.RedisAddr(), "error", err)
	}
	return service.NewAPIServer(b.config, b.dao), nil
}

// Close releases the Redis connection.
func (b *Bootstrap) Close() error {
	if b.redisClient == nil {
		return nil
	}
	return b.redisClient.Close()
}
