// Package mail implements SMTP delivery of CloudQuest notifications.
package mail

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/cloudquest-hub/cloudquest/internal/domain/notification"
	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
	"github.com/cloudquest-hub/cloudquest/pkg/logger"
)

// dispatchTimeout bounds a single delivery attempt chain. Event handlers
// run detached from any request context.
const dispatchTimeout = 30 * time.Second

// AchievementSubscriber turns achievement events into badge mail.
// Register it on the bus for shared.EventAchievementUnlocked.
type AchievementSubscriber struct {
	dispatcher notification.Dispatcher
	log        *logger.Logger
}

// NewAchievementSubscriber creates a new AchievementSubscriber.
func NewAchievementSubscriber(dispatcher notification.Dispatcher, log *logger.Logger) *AchievementSubscriber {
	if log == nil {
		log = logger.Default()
	}
	return &AchievementSubscriber{
		dispatcher: dispatcher,
		log:        log.With(logger.Component("achievement_mail")),
	}
}

// Handle is a shared.EventHandler. Events of other types are ignored.
func (s *AchievementSubscriber) Handle(event shared.Event) error {
	unlocked, ok := event.(shared.AchievementUnlockedEvent)
	if !ok {
		return nil
	}

	n := &notification.Notification{
		ID:          uuid.NewString(),
		Kind:        notification.KindAchievementUnlocked,
		LearnerID:   unlocked.LearnerID,
		Username:    unlocked.Username,
		Email:       unlocked.Email,
		Achievement: unlocked.Achievement,
		TotalScore:  unlocked.TotalScore,
		CreatedAt:   time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	if err := s.dispatcher.Dispatch(ctx, n); err != nil {
		s.log.Warn("badge mail not delivered",
			logger.LearnerID(unlocked.LearnerID),
			logger.Achievement(unlocked.Achievement),
			logger.Err(err),
		)
		return err
	}

	return nil
}
