// Package learner contains the learner domain model for CloudQuest.
// This is core business logic - there are no external dependencies here.
package learner

import (
	"strings"
	"time"

	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ID represents the opaque unique identifier of a learner.
type ID string

// IsValid checks that the ID is not empty.
func (id ID) IsValid() bool {
	return len(id) > 0
}

// String returns the string representation of the ID.
func (id ID) String() string {
	return string(id)
}

// Username represents a learner's unique username.
// Usernames are compared case-insensitively.
type Username string

// IsValid checks the username for basic correctness.
func (u Username) IsValid() bool {
	s := string(u)
	return len(s) >= 2 && len(s) <= 80 && !strings.ContainsAny(s, " \t\n\r")
}

// Normalized returns the lower-cased form used for uniqueness comparison.
func (u Username) Normalized() string {
	return strings.ToLower(string(u))
}

// String returns the string representation of the username.
func (u Username) String() string {
	return string(u)
}

// Email represents a learner's email address. Optional, unique when present.
type Email string

// IsValid performs a minimal structural check.
func (e Email) IsValid() bool {
	s := string(e)
	at := strings.Index(s, "@")
	return at > 0 && at < len(s)-1 && len(s) <= 120
}

// String returns the string representation of the email.
func (e Email) String() string {
	return string(e)
}

// ResetTokenTTL is how long a password-reset token stays valid after issue.
const ResetTokenTTL = time.Hour

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Learner is a registered user of the platform. Created by the external
// registration collaborator; this engine mutates only the credential hash and
// the reset-token pair.
type Learner struct {
	ID             ID
	Username       Username
	Email          Email
	CredentialHash string

	// Reset-token state. Both fields are set together and cleared together:
	// ResetTokenExpiresAt is present iff ResetToken is present.
	ResetToken          string
	ResetTokenExpiresAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the learner for structural correctness.
func (l *Learner) Validate() error {
	if !l.ID.IsValid() {
		return shared.ErrInvalidID
	}
	if !l.Username.IsValid() {
		return shared.ErrInvalidUsername
	}
	if l.Email != "" && !l.Email.IsValid() {
		return shared.ErrInvalidEmail
	}
	if (l.ResetToken == "") != (l.ResetTokenExpiresAt == nil) {
		return shared.ErrInvalidState
	}
	return nil
}

// HasEmail reports whether the learner can receive email notifications.
func (l *Learner) HasEmail() bool {
	return l.Email != ""
}

// ─────────────────────────────────────────────────────────────────────────────
// Reset-token state machine: NoToken → TokenIssued → (Consumed | Expired)
// ─────────────────────────────────────────────────────────────────────────────

// IssueResetToken stores a freshly generated token with a one-hour expiry.
// Any prior unconsumed token is overwritten; only one live token per learner.
func (l *Learner) IssueResetToken(token string, now time.Time) {
	expiry := now.Add(ResetTokenTTL)
	l.ResetToken = token
	l.ResetTokenExpiresAt = &expiry
	l.UpdatedAt = now
}

// ResetTokenValid reports whether the learner holds a live token at the given
// instant. An absent token is never valid.
func (l *Learner) ResetTokenValid(now time.Time) bool {
	if l.ResetToken == "" || l.ResetTokenExpiresAt == nil {
		return false
	}
	return now.Before(*l.ResetTokenExpiresAt)
}

// ConsumeResetToken sets the new credential hash and clears the token pair in
// one mutation, making the token single-use. Returns ErrInvalidResetToken if
// the token is absent or expired; the caller cannot distinguish the two.
func (l *Learner) ConsumeResetToken(newCredentialHash string, now time.Time) error {
	if !l.ResetTokenValid(now) {
		return shared.ErrInvalidResetToken
	}
	l.CredentialHash = newCredentialHash
	l.ResetToken = ""
	l.ResetTokenExpiresAt = nil
	l.UpdatedAt = now
	return nil
}
