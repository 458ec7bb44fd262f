// Package submission implements the scoring and achievement evaluator: it
// judges a submitted command, records the completion exactly once, and
// detects newly crossed achievement thresholds.
package submission

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudquest-hub/cloudquest/internal/domain/challenge"
	"github.com/cloudquest-hub/cloudquest/internal/domain/learner"
	"github.com/cloudquest-hub/cloudquest/internal/domain/progress"
	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
	"github.com/cloudquest-hub/cloudquest/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// OUTCOME
// ══════════════════════════════════════════════════════════════════════════════

// Status classifies the result of a submission.
type Status string

const (
	// StatusChallengeNotFound - the challenge ID is unknown.
	StatusChallengeNotFound Status = "challenge_not_found"

	// StatusAlreadyCompleted - the ledger already has a record for the
	// pair. Benign; no state change, no events.
	StatusAlreadyCompleted Status = "already_completed"

	// StatusIncomplete - the command prefix matched but a required
	// argument is missing.
	StatusIncomplete Status = "incomplete"

	// StatusIncorrect - the command does not match.
	StatusIncorrect Status = "incorrect"

	// StatusCorrect - the completion was recorded.
	StatusCorrect Status = "correct"
)

// Outcome is the result of evaluating one submission.
type Outcome struct {
	Status        Status
	ChallengeName string

	// TotalScore is the learner's new cumulative score. Set for
	// StatusCorrect only.
	TotalScore int

	// Achievements lists threshold names newly crossed by this submission.
	Achievements []string

	// Help carries study material for StatusIncorrect outcomes.
	Help *challenge.HelpReference
}

// ══════════════════════════════════════════════════════════════════════════════
// EVALUATOR
// ══════════════════════════════════════════════════════════════════════════════

// EventPublisher publishes domain events after state has durably committed.
type EventPublisher interface {
	Publish(event shared.Event) error
}

// CacheInvalidator drops derived read models after a scoring write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Evaluator orchestrates validator, ledger, and threshold table.
type Evaluator struct {
	challenges challenge.Repository
	ledger     progress.Ledger
	learners   learner.Repository
	events     EventPublisher
	cache      CacheInvalidator // optional
	log        *logger.Logger
}

// NewEvaluator creates a new Evaluator. events and cache may be nil.
func NewEvaluator(
	challenges challenge.Repository,
	ledger progress.Ledger,
	learners learner.Repository,
	events EventPublisher,
	cache CacheInvalidator,
	log *logger.Logger,
) *Evaluator {
	if log == nil {
		log = logger.Default()
	}
	return &Evaluator{
		challenges: challenges,
		ledger:     ledger,
		learners:   learners,
		events:     events,
		cache:      cache,
		log:        log.With(logger.Component("evaluator")),
	}
}

// Submit judges the submitted command for the learner and challenge.
//
// Business outcomes (wrong command, already completed, unknown challenge)
// are represented in the Outcome, never as errors; only infrastructure
// failures propagate as errors.
func (e *Evaluator) Submit(ctx context.Context, learnerID learner.ID, challengeID challenge.ID, submitted string) (*Outcome, error) {
	ch, err := e.challenges.GetByID(ctx, challengeID)
	if err != nil {
		if shared.IsNotFound(err) {
			return &Outcome{Status: StatusChallengeNotFound}, nil
		}
		return nil, fmt.Errorf("evaluator: load challenge: %w", err)
	}

	switch challenge.Validate(submitted, ch) {
	case challenge.MatchIncomplete:
		return &Outcome{Status: StatusIncomplete, ChallengeName: ch.Name}, nil
	case challenge.MatchWrong:
		help := challenge.HelpFor(ch.Name)
		return &Outcome{Status: StatusIncorrect, ChallengeName: ch.Name, Help: &help}, nil
	}

	// Read the prior total strictly before attempting the insert; the
	// crossing computation depends on it.
	priorTotal, err := e.ledger.TotalScore(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("evaluator: prior total: %w", err)
	}

	record, err := e.ledger.RecordCompletion(ctx, learnerID, challengeID, ch.Points)
	if err != nil {
		// The duplicate-key rejection is the expected signal when two
		// correct submissions race: only the winner proceeds.
		if errors.Is(err, shared.ErrAlreadyCompleted) {
			return &Outcome{Status: StatusAlreadyCompleted, ChallengeName: ch.Name}, nil
		}
		return nil, fmt.Errorf("evaluator: record completion: %w", err)
	}

	newTotal := priorTotal + ch.Points
	crossed := progress.Crossed(priorTotal, newTotal)

	names := make([]string, 0, len(crossed))
	for _, t := range crossed {
		names = append(names, t.Name)
	}

	e.log.Info("challenge completed",
		logger.LearnerID(learnerID.String()),
		logger.ChallengeName(ch.Name),
		logger.Points(ch.Points),
		logger.TotalScore(newTotal),
	)

	// The ledger write has committed; everything below is best-effort and
	// must not surface as a failure of the submission.
	e.afterCommit(ctx, record, ch, learnerID, newTotal, crossed)

	return &Outcome{
		Status:        StatusCorrect,
		ChallengeName: ch.Name,
		TotalScore:    newTotal,
		Achievements:  names,
	}, nil
}

// afterCommit invalidates derived reads and publishes events. Failures are
// logged, never returned: the ledger, not the notification, is the
// correctness-critical invariant.
func (e *Evaluator) afterCommit(
	ctx context.Context,
	record *progress.CompletionRecord,
	ch *challenge.Challenge,
	learnerID learner.ID,
	newTotal int,
	crossed []progress.Threshold,
) {
	if e.cache != nil {
		if err := e.cache.Invalidate(ctx); err != nil {
			e.log.Warn("leaderboard cache invalidation failed", logger.Err(err))
		}
	}

	if e.events == nil {
		return
	}

	l, err := e.learners.GetByID(ctx, learnerID)
	if err != nil {
		e.log.Warn("learner lookup for events failed",
			logger.LearnerID(learnerID.String()), logger.Err(err))
		return
	}

	completed := shared.ChallengeCompletedEvent{
		BaseEvent:     shared.NewBaseEvent(shared.EventChallengeCompleted, learnerID.String()),
		LearnerID:     learnerID.String(),
		ChallengeID:   ch.ID.String(),
		ChallengeName: ch.Name,
		AwardedPoints: record.AwardedPoints,
		TotalScore:    newTotal,
	}
	if err := e.events.Publish(completed); err != nil {
		e.log.Warn("publish challenge completed failed", logger.Err(err))
	}

	for _, t := range crossed {
		unlocked := shared.AchievementUnlockedEvent{
			BaseEvent:   shared.NewBaseEvent(shared.EventAchievementUnlocked, learnerID.String()),
			LearnerID:   learnerID.String(),
			Username:    l.Username.String(),
			Email:       l.Email.String(),
			Achievement: t.Name,
			TotalScore:  newTotal,
		}
		if err := e.events.Publish(unlocked); err != nil {
			e.log.Warn("publish achievement unlocked failed",
				logger.Achievement(t.Name), logger.Err(err))
		}
	}
}
