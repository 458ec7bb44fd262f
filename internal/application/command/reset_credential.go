package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/cloudquest-hub/cloudquest/internal/domain/learner"
	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
	"github.com/cloudquest-hub/cloudquest/pkg/logger"
)

// minCredentialLength is the shortest credential the flow accepts.
const minCredentialLength = 8

// ResetCredentialHandler consumes a reset token: re-validates it, hashes the
// new credential, and clears the token pair in the same update so the token
// is single-use even if the learner resubmits the confirmation form.
type ResetCredentialHandler struct {
	learners learner.Repository
	now      func() time.Time
	log      *logger.Logger
}

// NewResetCredentialHandler creates the handler.
func NewResetCredentialHandler(learners learner.Repository, log *logger.Logger) *ResetCredentialHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ResetCredentialHandler{
		learners: learners,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.With(logger.Component("password_reset")),
	}
}

// Handle sets a new credential for the learner holding the token.
// Returns shared.ErrInvalidResetToken for an absent, expired, or already
// consumed token; the three cases are indistinguishable to the caller.
func (h *ResetCredentialHandler) Handle(ctx context.Context, token, newCredential string) error {
	if len(newCredential) < minCredentialLength {
		return shared.WrapError("learner", "ResetCredential", shared.ErrInvalidInput,
			fmt.Sprintf("credential must be at least %d characters", minCredentialLength), nil)
	}

	l, err := h.learners.GetByResetToken(ctx, token)
	if err != nil {
		if shared.IsNotFound(err) {
			return shared.ErrInvalidResetToken
		}
		return fmt.Errorf("password_reset: lookup by token: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newCredential), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("password_reset: hash credential: %w", err)
	}

	if err := l.ConsumeResetToken(string(hash), h.now()); err != nil {
		if errors.Is(err, shared.ErrInvalidResetToken) {
			return shared.ErrInvalidResetToken
		}
		return err
	}

	if err := h.learners.Update(ctx, l); err != nil {
		return fmt.Errorf("password_reset: persist credential: %w", err)
	}

	h.log.Info("credential reset", logger.LearnerID(l.ID.String()))
	return nil
}
