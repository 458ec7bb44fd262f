package learner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
)

func newTestLearner() *Learner {
	return &Learner{
		ID:             ID("7ed99bd0-87b2-4dbb-a97b-596c3f29c49b"),
		Username:       Username("devon"),
		Email:          Email("devon@example.com"),
		CredentialHash: "$2a$10$abcdefghijklmnopqrstuv",
		CreatedAt:      time.Now().UTC(),
	}
}

func TestUsername_Normalized(t *testing.T) {
	assert.Equal(t, "devon", Username("Devon").Normalized())
	assert.Equal(t, "devon", Username("DEVON").Normalized())
}

func TestUsername_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		username Username
		want     bool
	}{
		{"ok", "devon", true},
		{"too short", "d", false},
		{"contains space", "dev on", false},
		{"contains newline", "dev\non", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.username.IsValid())
		})
	}
}

func TestLearner_IssueResetToken(t *testing.T) {
	l := newTestLearner()
	now := time.Now().UTC()

	l.IssueResetToken("token-one", now)

	require.NotNil(t, l.ResetTokenExpiresAt)
	assert.Equal(t, "token-one", l.ResetToken)
	assert.Equal(t, now.Add(ResetTokenTTL), *l.ResetTokenExpiresAt)

	// Issuing again overwrites the prior unconsumed token.
	later := now.Add(10 * time.Minute)
	l.IssueResetToken("token-two", later)
	assert.Equal(t, "token-two", l.ResetToken)
	assert.Equal(t, later.Add(ResetTokenTTL), *l.ResetTokenExpiresAt)
}

func TestLearner_ResetTokenValid(t *testing.T) {
	l := newTestLearner()
	now := time.Now().UTC()

	assert.False(t, l.ResetTokenValid(now), "no token issued")

	l.IssueResetToken("tok", now)
	assert.True(t, l.ResetTokenValid(now.Add(59*time.Minute)))
	assert.False(t, l.ResetTokenValid(now.Add(ResetTokenTTL)), "expiry boundary is exclusive")
	assert.False(t, l.ResetTokenValid(now.Add(2*time.Hour)))
}

func TestLearner_ConsumeResetToken(t *testing.T) {
	l := newTestLearner()
	now := time.Now().UTC()
	l.IssueResetToken("tok", now)

	err := l.ConsumeResetToken("$2a$10$newhash", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$newhash", l.CredentialHash)
	assert.Empty(t, l.ResetToken)
	assert.Nil(t, l.ResetTokenExpiresAt)

	// Second consume with the same token state fails: single-use.
	err = l.ConsumeResetToken("$2a$10$otherhash", now.Add(2*time.Minute))
	assert.ErrorIs(t, err, shared.ErrInvalidResetToken)
	assert.Equal(t, "$2a$10$newhash", l.CredentialHash)
}

func TestLearner_ConsumeResetToken_Expired(t *testing.T) {
	l := newTestLearner()
	now := time.Now().UTC()
	l.IssueResetToken("tok", now)

	err := l.ConsumeResetToken("$2a$10$newhash", now.Add(ResetTokenTTL+time.Second))
	assert.ErrorIs(t, err, shared.ErrInvalidResetToken)
	// The expired token is not cleared by a failed consume; it simply never validates.
	assert.Equal(t, "tok", l.ResetToken)
}

func TestLearner_Validate(t *testing.T) {
	l := newTestLearner()
	require.NoError(t, l.Validate())

	// Token without expiry is an inconsistent state.
	l.ResetToken = "tok"
	l.ResetTokenExpiresAt = nil
	assert.Error(t, l.Validate())
}
