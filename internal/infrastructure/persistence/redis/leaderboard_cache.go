// Package redis implements Redis-backed caching for the LearnSphere
// progression engine.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/learnsphere/learnsphere-backend/internal/domain/leaderboard"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// Architecture:
//   - Sorted set "leaderboard:xp" stores userID -> totalXP
//   - Hash "leaderboard:info" stores userID -> Entry JSON
//
// Rank lookups are O(log N), range queries O(log N + M). The cache is
// a materialized view: the progress table stays the source of truth
// and a background job rebuilds the view periodically.
// ══════════════════════════════════════════════════════════════════════════════

const (
	keyLeaderboardXP   = "leaderboard:xp"
	keyLeaderboardInfo = "leaderboard:info"
)

// LeaderboardCache implements leaderboard.Cache on Redis sorted sets.
type LeaderboardCache struct {
	cache *Cache
}

// NewLeaderboardCache creates a new LeaderboardCache.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

// Top returns a page of the ranking, best first.
func (lc *LeaderboardCache) Top(ctx context.Context, limit, offset int) ([]leaderboard.Entry, error) {
	ids, err := lc.cache.Client().ZRevRange(ctx, keyLeaderboardXP,
		int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: range query failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	raw, err := lc.cache.Client().HMGet(ctx, keyLeaderboardInfo, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard_cache: info lookup failed: %w", err)
	}

	entries := make([]leaderboard.Entry, 0, len(ids))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			// Нет info-записи - отдаём минимум из ZSET
			score, _ := lc.cache.Client().ZScore(ctx, keyLeaderboardXP, ids[i]).Result()
			entries = append(entries, leaderboard.Entry{
				Rank:    offset + i + 1,
				UserID:  ids[i],
				TotalXP: int(score),
			})
			continue
		}

		var e leaderboard.Entry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
		}
		e.Rank = offset + i + 1
		entries = append(entries, e)
	}
	return entries, nil
}

// Rank returns the 1-based position of a user (0 if absent).
func (lc *LeaderboardCache) Rank(ctx context.Context, userID string) (int, error) {
	rank, err := lc.cache.Client().ZRevRank(ctx, keyLeaderboardXP, userID).Result()
	if err != nil {
		if err == goredis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("leaderboard_cache: rank lookup failed: %w", err)
	}
	return int(rank) + 1, nil
}

// Rebuild atomically replaces the ranking with a fresh snapshot. The
// new view is built under temporary keys and swapped in with RENAME so
// readers never observe a half-built ranking.
func (lc *LeaderboardCache) Rebuild(ctx context.Context, entries []leaderboard.Entry, ttl time.Duration) error {
	client := lc.cache.Client()

	tmpXP := keyLeaderboardXP + ":rebuild"
	tmpInfo := keyLeaderboardInfo + ":rebuild"

	pipe := client.TxPipeline()
	pipe.Del(ctx, tmpXP, tmpInfo)

	for _, e := range entries {
		pipe.ZAdd(ctx, tmpXP, goredis.Z{Score: float64(e.TotalXP), Member: e.UserID})

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
		}
		pipe.HSet(ctx, tmpInfo, e.UserID, data)
	}

	if len(entries) > 0 {
		pipe.Rename(ctx, tmpXP, keyLeaderboardXP)
		pipe.Rename(ctx, tmpInfo, keyLeaderboardInfo)
		if ttl > 0 {
			pipe.Expire(ctx, keyLeaderboardXP, ttl)
			pipe.Expire(ctx, keyLeaderboardInfo, ttl)
		}
	} else {
		pipe.Del(ctx, keyLeaderboardXP, keyLeaderboardInfo)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("leaderboard_cache: rebuild failed: %w", err)
	}
	return nil
}

// UpdateScore bumps a user's XP in the ranking after a credit, keeping
// the view warm between rebuilds.
func (lc *LeaderboardCache) UpdateScore(ctx context.Context, userID string, totalXP int) error {
	err := lc.cache.Client().ZAdd(ctx, keyLeaderboardXP, goredis.Z{
		Score:  float64(totalXP),
		Member: userID,
	}).Err()
	if err != nil {
		return fmt.Errorf("leaderboard_cache: score update failed: %w", err)
	}
	return nil
}
