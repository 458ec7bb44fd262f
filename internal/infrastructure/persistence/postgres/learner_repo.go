// Package postgres implements the PostgreSQL persistence layer for CloudQuest.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/cloudquest-hub/cloudquest/internal/domain/learner"
	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LearnerRepository implements learner.Repository for PostgreSQL.
type LearnerRepository struct {
	conn *Connection
}

// NewLearnerRepository creates a new LearnerRepository.
func NewLearnerRepository(conn *Connection) *LearnerRepository {
	return &LearnerRepository{conn: conn}
}

const learnerColumns = `
	id, username, email, credential_hash,
	reset_token, reset_token_expires_at, created_at, updated_at
`

// Create inserts a new learner.
func (r *LearnerRepository) Create(ctx context.Context, l *learner.Learner) error {
	query := `
		INSERT INTO learners (
			id, username, email, credential_hash,
			reset_token, reset_token_expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.conn.Exec(ctx, query,
		string(l.ID),
		string(l.Username),
		nullableEmail(l.Email),
		l.CredentialHash,
		nullableToken(l.ResetToken),
		l.ResetTokenExpiresAt,
		l.CreatedAt,
		l.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrLearnerAlreadyExists
		}
		return fmt.Errorf("failed to create learner: %w", err)
	}

	return nil
}

// GetByID returns a learner by internal ID.
func (r *LearnerRepository) GetByID(ctx context.Context, id learner.ID) (*learner.Learner, error) {
	query := `SELECT ` + learnerColumns + ` FROM learners WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, string(id))
	return r.scanLearner(row)
}

// GetByUsername returns a learner by username, case-insensitively.
func (r *LearnerRepository) GetByUsername(ctx context.Context, username learner.Username) (*learner.Learner, error) {
	query := `SELECT ` + learnerColumns + ` FROM learners WHERE LOWER(username) = $1`

	row := r.conn.QueryRow(ctx, query, username.Normalized())
	return r.scanLearner(row)
}

// GetByEmail returns a learner by email. Learners without one are stored
// with a NULL email and can never match.
func (r *LearnerRepository) GetByEmail(ctx context.Context, email learner.Email) (*learner.Learner, error) {
	if email == "" {
		return nil, shared.ErrLearnerNotFound
	}

	query := `SELECT ` + learnerColumns + ` FROM learners WHERE email = $1`

	row := r.conn.QueryRow(ctx, query, string(email))
	return r.scanLearner(row)
}

// GetByResetToken returns the learner holding the given reset token.
// Expiry is the caller's concern; this is a pure lookup.
func (r *LearnerRepository) GetByResetToken(ctx context.Context, token string) (*learner.Learner, error) {
	if token == "" {
		return nil, shared.ErrLearnerNotFound
	}

	query := `SELECT ` + learnerColumns + ` FROM learners WHERE reset_token = $1`

	row := r.conn.QueryRow(ctx, query, token)
	return r.scanLearner(row)
}

// Update persists learner mutations.
func (r *LearnerRepository) Update(ctx context.Context, l *learner.Learner) error {
	query := `
		UPDATE learners SET
			username = $1,
			email = $2,
			credential_hash = $3,
			reset_token = $4,
			reset_token_expires_at = $5
		WHERE id = $6
	`

	result, err := r.conn.Exec(ctx, query,
		string(l.Username),
		nullableEmail(l.Email),
		l.CredentialHash,
		nullableToken(l.ResetToken),
		l.ResetTokenExpiresAt,
		string(l.ID),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrLearnerAlreadyExists
		}
		return fmt.Errorf("failed to update learner: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrLearnerNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *LearnerRepository) scanLearner(row pgx.Row) (*learner.Learner, error) {
	var (
		l          learner.Learner
		id         string
		username   string
		email      *string
		resetToken *string
	)

	err := row.Scan(
		&id,
		&username,
		&email,
		&l.CredentialHash,
		&resetToken,
		&l.ResetTokenExpiresAt,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrLearnerNotFound
		}
		return nil, fmt.Errorf("failed to scan learner: %w", err)
	}

	l.ID = learner.ID(id)
	l.Username = learner.Username(username)
	if email != nil {
		l.Email = learner.Email(*email)
	}
	if resetToken != nil {
		l.ResetToken = *resetToken
	}

	return &l, nil
}

// nullableToken maps the empty string to SQL NULL so the partial unique
// index on reset_token never collides on learners without a live token.
func nullableToken(token string) *string {
	if token == "" {
		return nil
	}
	return &token
}

// nullableEmail maps an absent email to SQL NULL so the partial unique
// index on email never collides on learners without one.
func nullableEmail(email learner.Email) *string {
	if email == "" {
		return nil
	}
	s := string(email)
	return &s
}
