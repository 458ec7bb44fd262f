package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cloudquest-hub/cloudquest/internal/domain/challenge"
	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
	"github.com/cloudquest-hub/cloudquest/pkg/logger"
)

// SeedCatalogHandler loads the fixed challenge catalog at startup.
// Seeding is idempotent: only definitions whose name is not already present
// are inserted, and an existing definition's points or pattern is never
// overwritten.
type SeedCatalogHandler struct {
	challenges challenge.Repository
	log        *logger.Logger
}

// NewSeedCatalogHandler creates the handler.
func NewSeedCatalogHandler(challenges challenge.Repository, log *logger.Logger) *SeedCatalogHandler {
	if log == nil {
		log = logger.Default()
	}
	return &SeedCatalogHandler{
		challenges: challenges,
		log:        log.With(logger.Component("catalog_seed")),
	}
}

// EnsureChallengesExist inserts the missing definitions.
func (h *SeedCatalogHandler) EnsureChallengesExist(ctx context.Context, defs []challenge.Definition) error {
	existing, err := h.challenges.ExistingNames(ctx)
	if err != nil {
		return fmt.Errorf("catalog_seed: list existing: %w", err)
	}

	inserted := 0
	for _, def := range defs {
		if existing[def.Name] {
			continue
		}

		points := def.Points
		if points <= 0 {
			points = challenge.DefaultPoints
		}

		ch := &challenge.Challenge{
			ID:               challenge.ID(uuid.NewString()),
			Name:             def.Name,
			Description:      def.Description,
			SolutionPattern:  def.SolutionPattern,
			RequiresArgument: def.RequiresArgument,
			Points:           points,
			CreatedAt:        time.Now().UTC(),
		}
		if err := ch.Validate(); err != nil {
			return fmt.Errorf("catalog_seed: definition %q: %w", def.Name, err)
		}

		if err := h.challenges.Create(ctx, ch); err != nil {
			// Another instance seeded this name between our read and
			// write; that is the idempotency we want.
			if errors.Is(err, shared.ErrAlreadyExists) {
				continue
			}
			return fmt.Errorf("catalog_seed: insert %q: %w", def.Name, err)
		}
		inserted++
	}

	h.log.Info("catalog seeded",
		logger.Int("definitions", len(defs)),
		logger.Int("inserted", inserted),
	)
	return nil
}
