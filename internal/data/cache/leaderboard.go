package cache

import (
	"context"
	"strings"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/questline-backend/internal/platform/logger"
)

const leaderboardKey = keyPrefix + "leaderboard:xp"

type LeaderboardEntry struct {
	UserID uuid.UUID
	XP     int64
}

// Leaderboard mirrors total XP into a sorted set. It is a read model only:
// the user table stays authoritative and Enabled reports whether a sorted
// set is available at all.
type Leaderboard interface {
	Enabled() bool
	Record(ctx context.Context, userID uuid.UUID, xp int64) error
	Top(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	Rank(ctx context.Context, userID uuid.UUID) (int64, bool, error)
}

type redisLeaderboard struct {
	rdb goredis.UniversalClient
	log *logger.Logger
}

// NewLeaderboard returns a sorted-set leaderboard, or a disabled one when rdb is nil.
func NewLeaderboard(rdb goredis.UniversalClient, log *logger.Logger) Leaderboard {
	if rdb == nil {
		return noopLeaderboard{}
	}
	return &redisLeaderboard{rdb: rdb, log: log.With("cache", "Leaderboard")}
}

func (l *redisLeaderboard) Enabled() bool { return true }

func (l *redisLeaderboard) Record(ctx context.Context, userID uuid.UUID, xp int64) error {
	if userID == uuid.Nil {
		return nil
	}
	return l.rdb.ZAdd(ctx, leaderboardKey, goredis.Z{Score: float64(xp), Member: userID.String()}).Err()
}

func (l *redisLeaderboard) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.rdb.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(rows))
	for _, z := range rows {
		member, _ := z.Member.(string)
		id, err := uuid.Parse(strings.TrimSpace(member))
		if err != nil {
			l.log.Warn("leaderboard member is not a uuid", "member", member)
			continue
		}
		out = append(out, LeaderboardEntry{UserID: id, XP: int64(z.Score)})
	}
	return out, nil
}

// Rank returns the 1-based position of userID.
func (l *redisLeaderboard) Rank(ctx context.Context, userID uuid.UUID) (int64, bool, error) {
	r, err := l.rdb.ZRevRank(ctx, leaderboardKey, userID.String()).Result()
	if err == goredis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return r + 1, true, nil
}

type noopLeaderboard struct{}

func (noopLeaderboard) Enabled() bool                                        { return false }
func (noopLeaderboard) Record(context.Context, uuid.UUID, int64) error       { return nil }
func (noopLeaderboard) Top(context.Context, int) ([]LeaderboardEntry, error) { return nil, nil }
func (noopLeaderboard) Rank(context.Context, uuid.UUID) (int64, bool, error) { return 0, false, nil }
