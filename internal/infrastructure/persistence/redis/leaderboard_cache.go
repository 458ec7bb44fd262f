// Package redis implements Redis caching for CloudQuest.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudquest-hub/cloudquest/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardCache caches ranked leaderboard pages keyed by their limit.
// It implements query.LeaderboardCache for reads and the evaluator's cache
// invalidator for writes: every successful scoring drops all cached pages,
// so the next read rebuilds from the ledger.
type LeaderboardCache struct {
	cache *Cache
}

// keyLeaderboardTop is the key prefix for cached top-N pages.
const keyLeaderboardTop = PrefixLeaderboard + "top:"

// NewLeaderboardCache creates a new LeaderboardCache instance.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

func topKey(limit int) string {
	return fmt.Sprintf("%s%d", keyLeaderboardTop, limit)
}

// Get returns the cached page for the given limit.
// A miss is (nil, false, nil), not an error.
func (l *LeaderboardCache) Get(ctx context.Context, limit int) ([]query.LeaderboardEntry, bool, error) {
	var entries []query.LeaderboardEntry
	err := l.cache.Get(ctx, topKey(limit), &entries)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return entries, true, nil
}

// Set caches the page for the given limit with the default TTL.
func (l *LeaderboardCache) Set(ctx context.Context, limit int, entries []query.LeaderboardEntry) error {
	return l.cache.Set(ctx, topKey(limit), entries, TTLLeaderboard)
}

// Invalidate drops every cached leaderboard page. Called after each
// successful completion so stale totals never outlive a scoring write by
// more than the in-flight reads.
func (l *LeaderboardCache) Invalidate(ctx context.Context) error {
	return l.cache.DeleteByPattern(ctx, keyLeaderboardTop+"*")
}
