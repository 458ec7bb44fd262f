// Package postgres implements the PostgreSQL persistence layer for CloudQuest.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cloudquest-hub/cloudquest/internal/domain/challenge"
	"github.com/cloudquest-hub/cloudquest/internal/domain/learner"
	"github.com/cloudquest-hub/cloudquest/internal/domain/progress"
	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS LEDGER IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Ledger for PostgreSQL.
// The UNIQUE(learner_id, challenge_id) constraint on completions is the
// single serialization point for concurrent submissions: the insert either
// lands or comes back as a unique violation, and the violation is the
// only source of the already-completed answer.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

// HasCompleted reports whether a record exists for the pair.
func (r *ProgressRepository) HasCompleted(ctx context.Context, learnerID learner.ID, challengeID challenge.ID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM completions
			WHERE learner_id = $1 AND challenge_id = $2
		)
	`

	var exists bool
	err := r.conn.QueryRow(ctx, query, string(learnerID), challengeID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check completion: %w", err)
	}

	return exists, nil
}

// RecordCompletion inserts a completion record. A duplicate pair is
// reported as shared.ErrAlreadyCompleted, straight from the constraint.
func (r *ProgressRepository) RecordCompletion(ctx context.Context, learnerID learner.ID, challengeID challenge.ID, points int) (*progress.CompletionRecord, error) {
	record := &progress.CompletionRecord{
		ID:            uuid.NewString(),
		LearnerID:     learnerID,
		ChallengeID:   challengeID,
		AwardedPoints: points,
		CompletedAt:   time.Now().UTC(),
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO completions (id, learner_id, challenge_id, awarded_points, completed_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.conn.Exec(ctx, query,
		record.ID,
		string(record.LearnerID),
		record.ChallengeID.String(),
		record.AwardedPoints,
		record.CompletedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, shared.ErrAlreadyCompleted
		}
		if IsForeignKeyViolation(err) {
			return nil, shared.ErrLearnerNotFound
		}
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}

	return record, nil
}

// TotalScore sums awarded points across the learner's records.
func (r *ProgressRepository) TotalScore(ctx context.Context, learnerID learner.ID) (int, error) {
	query := `
		SELECT COALESCE(SUM(awarded_points), 0)
		FROM completions
		WHERE learner_id = $1
	`

	var total int
	err := r.conn.QueryRow(ctx, query, string(learnerID)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum score: %w", err)
	}

	return total, nil
}

// RankedTotals returns learners ordered by summed score descending,
// ties broken by learner ID ascending.
func (r *ProgressRepository) RankedTotals(ctx context.Context, limit int) ([]progress.RankedTotal, error) {
	query := `
		SELECT c.learner_id, l.username, SUM(c.awarded_points) AS total
		FROM completions c
		JOIN learners l ON l.id = c.learner_id
		GROUP BY c.learner_id, l.username
		ORDER BY total DESC, c.learner_id ASC
		LIMIT $1
	`

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranked totals: %w", err)
	}
	defer rows.Close()

	var totals []progress.RankedTotal
	for rows.Next() {
		var (
			id       string
			username string
			total    int
		)
		if err := rows.Scan(&id, &username, &total); err != nil {
			return nil, fmt.Errorf("failed to scan ranked total: %w", err)
		}
		totals = append(totals, progress.RankedTotal{
			LearnerID:  learner.ID(id),
			Username:   username,
			TotalScore: total,
		})
	}

	return totals, rows.Err()
}
