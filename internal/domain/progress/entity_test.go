package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
)

func TestCompletionRecordValidate(t *testing.T) {
	record := func() CompletionRecord {
		return CompletionRecord{
			ID:            "rec-1",
			LearnerID:     "learner-1",
			ChallengeID:   "ch-1",
			AwardedPoints: 10,
			CompletedAt:   time.Now(),
		}
	}

	t.Run("valid", func(t *testing.T) {
		r := record()
		assert.NoError(t, r.Validate())
	})

	t.Run("zero points are allowed", func(t *testing.T) {
		r := record()
		r.AwardedPoints = 0
		assert.NoError(t, r.Validate())
	})

	t.Run("negative points are rejected", func(t *testing.T) {
		r := record()
		r.AwardedPoints = -1
		assert.ErrorIs(t, r.Validate(), shared.ErrNegativePoints)
	})

	t.Run("missing id", func(t *testing.T) {
		r := record()
		r.ID = ""
		assert.ErrorIs(t, r.Validate(), shared.ErrInvalidID)
	})
}
