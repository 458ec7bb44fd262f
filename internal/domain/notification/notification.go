// Package notification contains the notification domain model. Delivery
// mechanics are a boundary concern; this engine only decides when a
// notification is owed and hands it to a Dispatcher.
package notification

import (
	"context"
	"time"

	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
)

// Kind identifies what a notification is about.
type Kind string

const (
	// KindAchievementUnlocked celebrates a newly crossed score threshold.
	KindAchievementUnlocked Kind = "achievement_unlocked"

	// KindPasswordReset carries a reset link to the learner.
	KindPasswordReset Kind = "password_reset"
)

// IsValid checks the kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindAchievementUnlocked, KindPasswordReset:
		return true
	default:
		return false
	}
}

// Notification is a single message owed to a learner.
type Notification struct {
	ID        string
	Kind      Kind
	LearnerID string
	Username  string
	Email     string

	// Achievement is set for KindAchievementUnlocked.
	Achievement string
	TotalScore  int

	// ResetLink is set for KindPasswordReset.
	ResetLink string

	CreatedAt time.Time
}

// Validate checks the notification for structural correctness.
func (n *Notification) Validate() error {
	if !n.Kind.IsValid() {
		return shared.ErrInvalidInput
	}
	if n.Email == "" {
		return shared.ErrInvalidRecipient
	}
	switch n.Kind {
	case KindAchievementUnlocked:
		if n.Achievement == "" {
			return shared.ErrInvalidInput
		}
	case KindPasswordReset:
		if n.ResetLink == "" {
			return shared.ErrInvalidInput
		}
	}
	return nil
}

// Dispatcher delivers notifications to learners. Implementations are
// best-effort: a dispatch failure must never invalidate an already-committed
// ledger write, so callers log and move on.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *Notification) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, n *Notification) error

// Dispatch implements Dispatcher.
func (f DispatcherFunc) Dispatch(ctx context.Context, n *Notification) error {
	return f(ctx, n)
}
