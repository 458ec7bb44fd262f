package learner

import (
	"context"
)

// Repository defines persistence operations for learners.
// Implemented by infrastructure/persistence/postgres.
type Repository interface {
	// GetByID returns a learner by internal ID.
	// Returns shared.ErrLearnerNotFound if absent.
	GetByID(ctx context.Context, id ID) (*Learner, error)

	// GetByUsername returns a learner by username (case-insensitive).
	GetByUsername(ctx context.Context, username Username) (*Learner, error)

	// GetByEmail returns a learner by email.
	GetByEmail(ctx context.Context, email Email) (*Learner, error)

	// GetByResetToken returns the learner holding the given reset token.
	// Returns shared.ErrLearnerNotFound when no learner holds it; expiry
	// is checked by the caller against the entity, not here.
	GetByResetToken(ctx context.Context, token string) (*Learner, error)

	// Create inserts a new learner.
	// Returns shared.ErrLearnerAlreadyExists on username/email conflict.
	Create(ctx context.Context, l *Learner) error

	// Update persists learner mutations (credential hash, reset-token pair).
	// Returns shared.ErrLearnerNotFound if the row is gone.
	Update(ctx context.Context, l *Learner) error
}
