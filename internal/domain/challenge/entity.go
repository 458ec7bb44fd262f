// Package challenge contains the challenge catalog domain model and the
// command validator. This is core business logic - no external dependencies.
package challenge

import (
	"context"
	"time"

	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
)

// DefaultPoints is awarded for a challenge without an explicit point value.
const DefaultPoints = 10

// ID represents the stable unique identifier of a challenge.
type ID string

// IsValid checks that the ID is not empty.
func (id ID) IsValid() bool {
	return len(id) > 0
}

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}

// Challenge is a single command-line exercise with an expected solution
// pattern and point value. Catalog entries are seeded once at startup and
// immutable from the engine's perspective.
type Challenge struct {
	ID          ID
	Name        string
	Description string

	// SolutionPattern is the minimal command the learner must type.
	// Matching is prefix-based after normalization, so trailing flags and
	// arguments beyond the pattern are tolerated.
	SolutionPattern string

	// RequiresArgument marks challenges whose pattern ends in a flag that
	// needs a caller-supplied value (e.g. "--user-name <name>"). For these
	// the submission must carry at least one token beyond the pattern.
	RequiresArgument bool

	Points    int
	CreatedAt time.Time
}

// Validate checks the challenge for structural correctness.
func (c *Challenge) Validate() error {
	if !c.ID.IsValid() {
		return shared.ErrInvalidID
	}
	if c.Name == "" {
		return shared.ErrEmptyValue
	}
	if c.SolutionPattern == "" {
		return shared.ErrInvalidPattern
	}
	if c.Points <= 0 {
		return shared.ErrInvalidPoints
	}
	return nil
}

// Definition describes a challenge to be seeded into the catalog.
type Definition struct {
	Name             string
	Description      string
	SolutionPattern  string
	RequiresArgument bool
	Points           int
}

// Repository defines persistence operations for the challenge catalog.
type Repository interface {
	// GetByID returns a challenge by ID.
	// Returns shared.ErrChallengeNotFound if absent.
	GetByID(ctx context.Context, id ID) (*Challenge, error)

	// GetByName returns a challenge by its unique name.
	GetByName(ctx context.Context, name string) (*Challenge, error)

	// GetAll returns the full catalog.
	GetAll(ctx context.Context) ([]*Challenge, error)

	// Create inserts a new challenge.
	// Returns shared.ErrDuplicateName on a name conflict.
	Create(ctx context.Context, c *Challenge) error

	// ExistingNames returns the set of challenge names already present.
	// Used by idempotent catalog seeding.
	ExistingNames(ctx context.Context) (map[string]bool, error)
}
