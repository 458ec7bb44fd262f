// Package postgres implements the PostgreSQL persistence layer for CloudQuest.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cloudquest-hub/cloudquest/internal/domain/challenge"
	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ChallengeRepository implements challenge.Repository for PostgreSQL.
type ChallengeRepository struct {
	conn *Connection
}

// NewChallengeRepository creates a new ChallengeRepository.
func NewChallengeRepository(conn *Connection) *ChallengeRepository {
	return &ChallengeRepository{conn: conn}
}

const challengeColumns = `
	id, name, description, solution_pattern, requires_argument, points, created_at
`

// Create inserts a new challenge.
func (r *ChallengeRepository) Create(ctx context.Context, c *challenge.Challenge) error {
	query := `
		INSERT INTO challenges (
			id, name, description, solution_pattern, requires_argument, points, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.conn.Exec(ctx, query,
		c.ID.String(),
		c.Name,
		c.Description,
		c.SolutionPattern,
		c.RequiresArgument,
		c.Points,
		c.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrDuplicateName
		}
		return fmt.Errorf("failed to create challenge: %w", err)
	}

	return nil
}

// GetByID returns a challenge by ID.
func (r *ChallengeRepository) GetByID(ctx context.Context, id challenge.ID) (*challenge.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id.String())
	return r.scanChallenge(row)
}

// GetByName returns a challenge by its unique name.
func (r *ChallengeRepository) GetByName(ctx context.Context, name string) (*challenge.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE name = $1`

	row := r.conn.QueryRow(ctx, query, name)
	return r.scanChallenge(row)
}

// GetAll returns the full catalog ordered by creation time.
func (r *ChallengeRepository) GetAll(ctx context.Context) ([]*challenge.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges ORDER BY created_at, name`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenges: %w", err)
	}
	defer rows.Close()

	var challenges []*challenge.Challenge
	for rows.Next() {
		c, err := r.scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}

	return challenges, rows.Err()
}

// ExistingNames returns the set of challenge names already present.
func (r *ChallengeRepository) ExistingNames(ctx context.Context) (map[string]bool, error) {
	rows, err := r.conn.Query(ctx, `SELECT name FROM challenges`)
	if err != nil {
		return nil, fmt.Errorf("failed to query challenge names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan challenge name: %w", err)
		}
		names[name] = true
	}

	return names, rows.Err()
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *ChallengeRepository) scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	var (
		c  challenge.Challenge
		id string
	)

	err := row.Scan(
		&id,
		&c.Name,
		&c.Description,
		&c.SolutionPattern,
		&c.RequiresArgument,
		&c.Points,
		&c.CreatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to scan challenge: %w", err)
	}

	c.ID = challenge.ID(id)
	return &c, nil
}
