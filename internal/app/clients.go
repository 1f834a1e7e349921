package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/questline-backend/internal/data/cache"
	"github.com/yungbote/questline-backend/internal/data/db"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

type Clients struct {
	DB    *gorm.DB
	Redis goredis.UniversalClient
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	theDB, err := db.Open(log, cfg.DB)
	if err != nil {
		return Clients{}, fmt.Errorf("init db: %w", err)
	}

	// Redis is optional; without it the quiz cache and leaderboard read the database.
	rdb, err := cache.NewRedisClient(log, cfg.RedisAddr)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}

	return Clients{DB: theDB, Redis: rdb}, nil
}

func (c Clients) Close() {
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
