package challenge

import (
	"strings"
)

// MatchResult is the outcome of judging a submitted command against a
// challenge. The validator is pure and side-effect-free; it never touches
// stored progress.
type MatchResult int

const (
	// MatchWrong means the submission does not satisfy the pattern.
	MatchWrong MatchResult = iota

	// MatchIncomplete means the pattern prefix matched but the challenge
	// requires an argument the learner did not supply. Callers should give
	// a more specific hint than "incorrect".
	MatchIncomplete

	// MatchCorrect means the submission satisfies the challenge.
	MatchCorrect
)

// String returns a human-readable name for the result.
func (r MatchResult) String() string {
	switch r {
	case MatchCorrect:
		return "correct"
	case MatchIncomplete:
		return "incomplete"
	default:
		return "wrong"
	}
}

// Validate judges a submitted command against the challenge's solution
// pattern. Both sides are normalized by trimming surrounding whitespace and
// lower-casing. The policy is prefix match: anything the learner types after
// the minimal required command (extra flags, values) is tolerated.
func Validate(submitted string, c *Challenge) MatchResult {
	sub := normalize(submitted)
	pattern := normalize(c.SolutionPattern)

	if pattern == "" || !strings.HasPrefix(sub, pattern) {
		return MatchWrong
	}

	if c.RequiresArgument {
		// The learner must have supplied a value beyond the bare pattern:
		// "aws iam create-user --user-name" alone is not enough.
		if len(strings.Fields(sub)) <= len(strings.Fields(pattern)) {
			return MatchIncomplete
		}
	}

	return MatchCorrect
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
