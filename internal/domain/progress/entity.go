// Package progress contains the progress ledger domain model: durable
// completion records, total-score aggregation, and achievement thresholds.
package progress

import (
	"context"
	"time"

	"github.com/cloudquest-hub/cloudquest/internal/domain/challenge"
	"github.com/cloudquest-hub/cloudquest/internal/domain/learner"
	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
)

// CompletionRecord is durable proof that a learner solved a challenge.
// At most one record exists per (learner, challenge) pair - this is the
// linchpin invariant of the engine, enforced by a composite unique
// constraint at the storage layer. Records are immutable once created and
// never deleted by normal operation.
type CompletionRecord struct {
	ID            string
	LearnerID     learner.ID
	ChallengeID   challenge.ID
	AwardedPoints int
	CompletedAt   time.Time
}

// Validate checks the record for structural correctness.
func (r *CompletionRecord) Validate() error {
	if r.ID == "" {
		return shared.ErrInvalidID
	}
	if !r.LearnerID.IsValid() || !r.ChallengeID.IsValid() {
		return shared.ErrInvalidID
	}
	if r.AwardedPoints < 0 {
		return shared.ErrNegativePoints
	}
	return nil
}

// RankedTotal is one leaderboard row: a learner and their summed score.
type RankedTotal struct {
	LearnerID  learner.ID
	Username   string
	TotalScore int
}

// Ledger defines the storage capability the engine needs for progress.
// Either a relational engine (unique index) or a key-value store
// (conditional put on a composite key) can implement it, as long as
// RecordCompletion is atomic with respect to the uniqueness invariant.
type Ledger interface {
	// HasCompleted reports whether a record exists for the pair.
	HasCompleted(ctx context.Context, learnerID learner.ID, challengeID challenge.ID) (bool, error)

	// RecordCompletion inserts a completion record. Exactly one concurrent
	// caller succeeds for a given pair; the rest receive
	// shared.ErrAlreadyCompleted, mapped from the storage layer's own
	// duplicate-key rejection - never from a prior read.
	RecordCompletion(ctx context.Context, learnerID learner.ID, challengeID challenge.ID, points int) (*CompletionRecord, error)

	// TotalScore sums awarded points across the learner's records.
	// Returns 0 for a learner with none.
	TotalScore(ctx context.Context, learnerID learner.ID) (int, error)

	// RankedTotals returns learners ordered by summed score descending,
	// ties broken by learner ID ascending for deterministic output.
	RankedTotals(ctx context.Context, limit int) ([]RankedTotal, error)
}
