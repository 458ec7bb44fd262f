// Package postgres implements the PostgreSQL persistence layer for CloudQuest.
package postgres

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_learners",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "create_challenges",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
		{
			Version: 3,
			Name:    "create_completions",
			UpSQL:   migration003Up,
			DownSQL: migration003Down,
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE LEARNERS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create learners table
-- Version: 001

CREATE TABLE IF NOT EXISTS learners (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    username VARCHAR(50) NOT NULL,
    email VARCHAR(255),
    credential_hash TEXT NOT NULL,
    reset_token TEXT,
    reset_token_expires_at TIMESTAMP WITH TIME ZONE,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- A reset token and its expiry travel together or not at all.
    CONSTRAINT reset_token_pair CHECK (
        (reset_token IS NULL) = (reset_token_expires_at IS NULL)
    )
);

-- Usernames are unique case-insensitively; email is optional and unique
-- when present; live reset tokens are unique as stored.
CREATE UNIQUE INDEX IF NOT EXISTS idx_learners_username_lower ON learners(LOWER(username));
CREATE UNIQUE INDEX IF NOT EXISTS idx_learners_email ON learners(email) WHERE email IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_learners_reset_token ON learners(reset_token) WHERE reset_token IS NOT NULL;

-- Updated_at trigger function for automatic timestamp updates
CREATE OR REPLACE FUNCTION update_updated_at_column()
RETURNS TRIGGER AS $$
BEGIN
    NEW.updated_at = NOW();
    RETURN NEW;
END;
$$ language 'plpgsql';

DROP TRIGGER IF EXISTS update_learners_updated_at ON learners;
CREATE TRIGGER update_learners_updated_at
    BEFORE UPDATE ON learners
    FOR EACH ROW
    EXECUTE FUNCTION update_updated_at_column();
`

const migration001Down = `
DROP TRIGGER IF EXISTS update_learners_updated_at ON learners;
DROP FUNCTION IF EXISTS update_updated_at_column();
DROP TABLE IF EXISTS learners;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE CHALLENGES
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create challenges catalog
-- Version: 002

CREATE TABLE IF NOT EXISTS challenges (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(255) NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    solution_pattern TEXT NOT NULL,
    requires_argument BOOLEAN NOT NULL DEFAULT FALSE,
    points INTEGER NOT NULL DEFAULT 10,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_points CHECK (points > 0)
);

CREATE INDEX IF NOT EXISTS idx_challenges_name ON challenges(name);
`

const migration002Down = `
DROP TABLE IF EXISTS challenges;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE COMPLETIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create completions ledger
-- Version: 003

-- One row per (learner, challenge) pair. The composite UNIQUE constraint
-- is what makes scoring exactly-once under concurrent submissions; the
-- application never checks-then-inserts, it inserts and maps 23505.
CREATE TABLE IF NOT EXISTS completions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    learner_id UUID NOT NULL REFERENCES learners(id) ON DELETE RESTRICT,
    challenge_id UUID NOT NULL REFERENCES challenges(id) ON DELETE RESTRICT,
    awarded_points INTEGER NOT NULL,
    completed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    UNIQUE(learner_id, challenge_id),
    CONSTRAINT valid_awarded_points CHECK (awarded_points >= 0)
);

CREATE INDEX IF NOT EXISTS idx_completions_learner ON completions(learner_id);
CREATE INDEX IF NOT EXISTS idx_completions_challenge ON completions(challenge_id);
CREATE INDEX IF NOT EXISTS idx_completions_recent ON completions(completed_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS completions;
`
