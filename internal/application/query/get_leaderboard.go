// Package query contains the read side of the engine: leaderboard
// aggregation over the progress ledger.
package query

import (
	"context"
	"fmt"

	"github.com/cloudquest-hub/cloudquest/internal/domain/progress"
	"github.com/cloudquest-hub/cloudquest/pkg/logger"
)

// DefaultLeaderboardLimit bounds an unspecified limit.
const DefaultLeaderboardLimit = 10

// MaxLeaderboardLimit bounds how many rows a single query may request.
const MaxLeaderboardLimit = 100

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	Username   string `json:"username"`
	TotalScore int    `json:"total_score"`
}

// LeaderboardCache is an optional read-through cache in front of the ledger.
// A miss returns (nil, false, nil). Consistency is eventual: a concurrent
// scoring write may or may not be reflected in a given read.
type LeaderboardCache interface {
	Get(ctx context.Context, limit int) ([]LeaderboardEntry, bool, error)
	Set(ctx context.Context, limit int, entries []LeaderboardEntry) error
}

// GetLeaderboardHandler ranks learners by summed score.
type GetLeaderboardHandler struct {
	ledger progress.Ledger
	cache  LeaderboardCache // optional
	log    *logger.Logger
}

// NewGetLeaderboardHandler creates a new handler. cache may be nil.
func NewGetLeaderboardHandler(ledger progress.Ledger, cache LeaderboardCache, log *logger.Logger) *GetLeaderboardHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetLeaderboardHandler{
		ledger: ledger,
		cache:  cache,
		log:    log.With(logger.Component("leaderboard")),
	}
}

// TopN returns up to n learners ranked by total score descending. Ties are
// broken by learner ID ascending in the ledger query, so the order is
// deterministic. Ranks are 1-based and dense in request order.
func (h *GetLeaderboardHandler) TopN(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	if n <= 0 {
		n = DefaultLeaderboardLimit
	}
	if n > MaxLeaderboardLimit {
		n = MaxLeaderboardLimit
	}

	if h.cache != nil {
		entries, hit, err := h.cache.Get(ctx, n)
		if err != nil {
			// Cache trouble degrades to the ledger read.
			h.log.Warn("leaderboard cache read failed", logger.Err(err))
		} else if hit {
			return entries, nil
		}
	}

	totals, err := h.ledger.RankedTotals(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: ranked totals: %w", err)
	}

	entries := make([]LeaderboardEntry, 0, len(totals))
	for i, t := range totals {
		entries = append(entries, LeaderboardEntry{
			Rank:       i + 1,
			Username:   t.Username,
			TotalScore: t.TotalScore,
		})
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, n, entries); err != nil {
			h.log.Warn("leaderboard cache write failed", logger.Err(err))
		}
	}

	return entries, nil
}
