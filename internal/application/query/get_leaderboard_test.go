package query

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudquest-hub/cloudquest/internal/domain/challenge"
	"github.com/cloudquest-hub/cloudquest/internal/domain/learner"
	"github.com/cloudquest-hub/cloudquest/internal/domain/progress"
)

// rankedLedger is a fixed-data ledger implementing only what the handler uses.
type rankedLedger struct {
	totals []progress.RankedTotal
	err    error
	calls  int
}

func (r *rankedLedger) HasCompleted(context.Context, learner.ID, challenge.ID) (bool, error) {
	return false, nil
}

func (r *rankedLedger) RecordCompletion(context.Context, learner.ID, challenge.ID, int) (*progress.CompletionRecord, error) {
	return nil, nil
}

func (r *rankedLedger) TotalScore(context.Context, learner.ID) (int, error) {
	return 0, nil
}

func (r *rankedLedger) RankedTotals(_ context.Context, limit int) ([]progress.RankedTotal, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	// Mirror the SQL ordering: score desc, learner id asc, LIMIT n.
	out := make([]progress.RankedTotal, len(r.totals))
	copy(out, r.totals)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalScore != out[j].TotalScore {
			return out[i].TotalScore > out[j].TotalScore
		}
		return out[i].LearnerID < out[j].LearnerID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type mapCache struct {
	data map[int][]LeaderboardEntry
	err  error
}

func (c *mapCache) Get(_ context.Context, limit int) ([]LeaderboardEntry, bool, error) {
	if c.err != nil {
		return nil, false, c.err
	}
	entries, ok := c.data[limit]
	return entries, ok, nil
}

func (c *mapCache) Set(_ context.Context, limit int, entries []LeaderboardEntry) error {
	if c.err != nil {
		return c.err
	}
	c.data[limit] = entries
	return nil
}

func TestTopN_Determinism(t *testing.T) {
	ledger := &rankedLedger{totals: []progress.RankedTotal{
		{LearnerID: "id-b", Username: "bob", TotalScore: 30},
		{LearnerID: "id-c", Username: "carol", TotalScore: 50},
		{LearnerID: "id-a", Username: "alice", TotalScore: 30},
	}}
	h := NewGetLeaderboardHandler(ledger, nil, nil)

	want := []LeaderboardEntry{
		{Rank: 1, Username: "carol", TotalScore: 50},
		{Rank: 2, Username: "alice", TotalScore: 30},
		{Rank: 3, Username: "bob", TotalScore: 30},
	}

	// The tie between alice and bob resolves by learner ID every time.
	for i := 0; i < 5; i++ {
		got, err := h.TopN(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestTopN_LimitClamping(t *testing.T) {
	ledger := &rankedLedger{totals: []progress.RankedTotal{
		{LearnerID: "id-a", Username: "alice", TotalScore: 10},
	}}
	h := NewGetLeaderboardHandler(ledger, nil, nil)

	got, err := h.TopN(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = h.TopN(context.Background(), -5)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = h.TopN(context.Background(), MaxLeaderboardLimit+1)
	require.NoError(t, err)
}

func TestTopN_EmptyLedger(t *testing.T) {
	h := NewGetLeaderboardHandler(&rankedLedger{}, nil, nil)

	got, err := h.TopN(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTopN_CacheHitSkipsLedger(t *testing.T) {
	ledger := &rankedLedger{totals: []progress.RankedTotal{
		{LearnerID: "id-a", Username: "alice", TotalScore: 10},
	}}
	cache := &mapCache{data: map[int][]LeaderboardEntry{}}
	h := NewGetLeaderboardHandler(ledger, cache, nil)

	first, err := h.TopN(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.calls)

	second, err := h.TopN(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.calls, "second read served from cache")
	assert.Equal(t, first, second)
}

func TestTopN_CacheFailureDegradesToLedger(t *testing.T) {
	ledger := &rankedLedger{totals: []progress.RankedTotal{
		{LearnerID: "id-a", Username: "alice", TotalScore: 10},
	}}
	cache := &mapCache{err: errors.New("redis: connection refused")}
	h := NewGetLeaderboardHandler(ledger, cache, nil)

	got, err := h.TopN(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
