package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudquest-hub/cloudquest/internal/domain/learner"
)

// Learners without an email or a live reset token are stored with NULL so
// the partial unique indexes never collide on absent values.

func TestNullableEmail(t *testing.T) {
	assert.Nil(t, nullableEmail(""))

	got := nullableEmail("gopher@example.com")
	require.NotNil(t, got)
	assert.Equal(t, "gopher@example.com", *got)
}

func TestNullableToken(t *testing.T) {
	assert.Nil(t, nullableToken(""))

	got := nullableToken("tok-abc")
	require.NotNil(t, got)
	assert.Equal(t, "tok-abc", *got)
}

var _ learner.Repository = (*LearnerRepository)(nil)
