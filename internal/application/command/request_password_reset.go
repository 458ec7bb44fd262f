// Package command contains the write-side use cases of the engine that sit
// outside the scoring path: the reset-token flows and catalog seeding.
package command

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cloudquest-hub/cloudquest/internal/domain/learner"
	"github.com/cloudquest-hub/cloudquest/internal/domain/notification"
	"github.com/cloudquest-hub/cloudquest/pkg/logger"
)

// resetTokenBytes is the entropy of a reset token before encoding.
const resetTokenBytes = 32

// RequestPasswordResetHandler issues a reset token and hands the reset link
// to the notification dispatcher.
type RequestPasswordResetHandler struct {
	learners   learner.Repository
	dispatcher notification.Dispatcher
	baseURL    string
	now        func() time.Time
	log        *logger.Logger
}

// NewRequestPasswordResetHandler creates the handler. baseURL is the public
// address reset links are built against, e.g. "https://cloudquest.example.com".
func NewRequestPasswordResetHandler(
	learners learner.Repository,
	dispatcher notification.Dispatcher,
	baseURL string,
	log *logger.Logger,
) *RequestPasswordResetHandler {
	if log == nil {
		log = logger.Default()
	}
	return &RequestPasswordResetHandler{
		learners:   learners,
		dispatcher: dispatcher,
		baseURL:    baseURL,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log.With(logger.Component("password_reset")),
	}
}

// Handle issues a fresh token for the learner owning the email. A prior
// unconsumed token is overwritten: only one live token per learner.
// Returns shared.ErrLearnerNotFound for an unknown email; callers decide
// whether to reveal that.
func (h *RequestPasswordResetHandler) Handle(ctx context.Context, email learner.Email) error {
	l, err := h.learners.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("password_reset: generate token: %w", err)
	}

	l.IssueResetToken(token, h.now())
	if err := h.learners.Update(ctx, l); err != nil {
		return fmt.Errorf("password_reset: store token: %w", err)
	}

	n := &notification.Notification{
		ID:        uuid.NewString(),
		Kind:      notification.KindPasswordReset,
		LearnerID: l.ID.String(),
		Username:  l.Username.String(),
		Email:     l.Email.String(),
		ResetLink: fmt.Sprintf("%s/reset-password/%s", h.baseURL, token),
		CreatedAt: h.now(),
	}

	// The token is durably stored at this point; delivery is best-effort
	// and a failure here must not roll it back.
	if err := h.dispatcher.Dispatch(ctx, n); err != nil {
		h.log.Warn("reset mail dispatch failed",
			logger.LearnerID(l.ID.String()), logger.Err(err))
	}

	h.log.Info("reset token issued", logger.LearnerID(l.ID.String()))
	return nil
}

// generateResetToken returns a cryptographically random URL-safe token.
func generateResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
