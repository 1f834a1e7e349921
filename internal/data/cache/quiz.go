package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	types "github.com/yungbote/questline-backend/internal/domain"
	"github.com/yungbote/questline-backend/internal/observability"
	"github.com/yungbote/questline-backend/internal/platform/logger"
)

const DefaultQuizTTL = 5 * time.Minute

// QuizLoader reads a quiz with its questions from the source of truth.
// It returns (nil, nil) when the quiz does not exist.
type QuizLoader func(ctx context.Context, quizID uuid.UUID) (*types.Quiz, error)

// QuizCache serves quiz snapshots for scoring. Concurrent misses for the same
// quiz share one load.
type QuizCache interface {
	Get(ctx context.Context, quizID uuid.UUID, load QuizLoader) (*types.Quiz, error)
	Invalidate(ctx context.Context, quizID uuid.UUID) error
}

type quizCache struct {
	rdb     goredis.UniversalClient
	ttl     time.Duration
	log     *logger.Logger
	metrics *observability.Metrics
	group   singleflight.Group
}

// NewQuizCache returns a cache backed by rdb. With a nil client every Get goes
// to the loader, still collapsed per quiz.
func NewQuizCache(rdb goredis.UniversalClient, ttl time.Duration, log *logger.Logger, metrics *observability.Metrics) QuizCache {
	if ttl <= 0 {
		ttl = DefaultQuizTTL
	}
	return &quizCache{
		rdb:     rdb,
		ttl:     ttl,
		log:     log.With("cache", "QuizCache"),
		metrics: metrics,
	}
}

func quizKey(quizID uuid.UUID) string {
	return keyPrefix + "quiz:" + quizID.String()
}

func (c *quizCache) Get(ctx context.Context, quizID uuid.UUID, load QuizLoader) (*types.Quiz, error) {
	if load == nil {
		return nil, errors.New("quiz loader required")
	}
	key := quizKey(quizID)
	if q, ok := c.read(ctx, key); ok {
		c.metrics.IncCacheLookup("quiz", true)
		return q, nil
	}
	c.metrics.IncCacheLookup("quiz", false)

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		q, err := load(ctx, quizID)
		if err != nil || q == nil {
			return q, err
		}
		c.write(ctx, key, q)
		return q, nil
	})
	if err != nil {
		return nil, err
	}
	q, _ := v.(*types.Quiz)
	return q, nil
}

func (c *quizCache) Invalidate(ctx context.Context, quizID uuid.UUID) error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Del(ctx, quizKey(quizID)).Err()
}

func (c *quizCache) read(ctx context.Context, key string) (*types.Quiz, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("quiz cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var q types.Quiz
	if err := json.Unmarshal(raw, &q); err != nil {
		c.log.Warn("quiz cache entry unreadable", "key", key, "error", err)
		return nil, false
	}
	return &q, true
}

func (c *quizCache) write(ctx context.Context, key string, q *types.Quiz) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(q)
	if err != nil {
		c.log.Warn("quiz cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("quiz cache write failed", "key", key, "error", err)
	}
}
