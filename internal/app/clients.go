package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nomisafe/nomisafe-backend/internal/pkg/logger"
	"github.com/nomisafe/nomisafe-backend/internal/platform/gemini"
	"github.com/nomisafe/nomisafe-backend/internal/services"
)

type Clients struct {
	Redis        *redis.Client
	GcsBucket    services.BucketService
	GeminiClient gemini.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	bucket, err := services.NewBucketService(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init bucket client: %w", err)
	}

	geminiClient, err := gemini.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init gemini client: %w", err)
	}

	return Clients{
		Redis:        rdb,
		GcsBucket:    bucket,
		GeminiClient: geminiClient,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
