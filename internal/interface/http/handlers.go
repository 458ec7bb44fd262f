package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cloudquest-hub/cloudquest/internal/application/query"
	"github.com/cloudquest-hub/cloudquest/internal/application/submission"
	"github.com/cloudquest-hub/cloudquest/internal/domain/challenge"
	"github.com/cloudquest-hub/cloudquest/internal/domain/learner"
	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
	"github.com/cloudquest-hub/cloudquest/pkg/logger"
)

// maxRequestBodyBytes bounds JSON request bodies.
const maxRequestBodyBytes = 1 << 16 // 64 KB

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot handles GET / requests.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "cloudquest",
		"status":  "running",
		"uptime":  s.Uptime().String(),
	})
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		return
	}

	ctx, cancel := requestContext(r, 5*time.Second)
	defer cancel()

	status := s.deps.HealthChecker.Check(ctx)
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// handleReady handles GET /ready requests (readiness probe).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		ctx, cancel := requestContext(r, 5*time.Second)
		defer cancel()

		if status := s.deps.HealthChecker.Check(ctx); !status.Ready {
			writeJSONError(w, http.StatusServiceUnavailable, "not_ready", status.Message)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles GET /live requests (liveness probe).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// CHALLENGE CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// challengeResponse is the API shape of a catalog entry. The solution
// pattern is deliberately not exposed.
type challengeResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	DocURL      string `json:"doc_url,omitempty"`
	VideoURL    string `json:"video_url,omitempty"`
}

// handleListChallenges handles GET /api/v1/challenges requests.
func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := s.deps.Challenges.GetAll(r.Context())
	if err != nil {
		s.logger.Error("failed to list challenges", logger.Err(err))
		writeJSONError(w, http.StatusServiceUnavailable, "storage_unavailable", "Could not load the challenge catalog, please retry")
		return
	}

	response := make([]challengeResponse, 0, len(challenges))
	for _, ch := range challenges {
		help := challenge.HelpFor(ch.Name)
		response = append(response, challengeResponse{
			ID:          ch.ID.String(),
			Name:        ch.Name,
			Description: ch.Description,
			Points:      ch.Points,
			DocURL:      help.DocURL,
			VideoURL:    help.VideoURL,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"challenges": response,
		"count":      len(response),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBMISSIONS
// ══════════════════════════════════════════════════════════════════════════════

type submitRequest struct {
	Command string `json:"command"`
}

type submitResponse struct {
	Status        string                 `json:"status"`
	ChallengeName string                 `json:"challenge_name,omitempty"`
	Message       string                 `json:"message"`
	TotalScore    int                    `json:"total_score,omitempty"`
	Achievements  []string               `json:"achievements,omitempty"`
	Help          *challengeHelpResponse `json:"help,omitempty"`
}

type challengeHelpResponse struct {
	DocURL   string `json:"doc_url,omitempty"`
	VideoURL string `json:"video_url,omitempty"`
}

// handleSubmit handles POST /api/v1/challenges/{id}/submissions requests.
//
// The learner is identified by the X-Learner-ID header set by the
// authenticating platform in front of this engine.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	learnerID := strings.TrimSpace(r.Header.Get("X-Learner-ID"))
	if learnerID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing_learner_id", "X-Learner-ID header is required")
		return
	}

	challengeID := r.PathValue("id")
	if challengeID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing_challenge_id", "Challenge ID is required")
		return
	}

	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON request body")
		return
	}

	outcome, err := s.deps.Evaluator.Submit(r.Context(), learner.ID(learnerID), challenge.ID(challengeID), req.Command)
	if err != nil {
		if shared.IsNotFound(err) {
			writeJSONError(w, http.StatusNotFound, "learner_not_found", "Learner not found")
			return
		}
		s.logger.Error("submission evaluation failed",
			logger.Err(err),
			logger.String("challenge_id", challengeID),
		)
		writeJSONError(w, http.StatusServiceUnavailable, "storage_unavailable", "Could not record the submission, please retry")
		return
	}

	s.writeOutcome(w, outcome)
}

// writeOutcome maps an evaluation outcome to an HTTP response.
func (s *Server) writeOutcome(w http.ResponseWriter, outcome *submission.Outcome) {
	switch outcome.Status {
	case submission.StatusChallengeNotFound:
		writeJSONError(w, http.StatusNotFound, "challenge_not_found", "Challenge not found")

	case submission.StatusAlreadyCompleted:
		writeJSON(w, http.StatusOK, submitResponse{
			Status:        string(outcome.Status),
			ChallengeName: outcome.ChallengeName,
			Message:       "You have already completed this challenge.",
		})

	case submission.StatusIncomplete:
		writeJSON(w, http.StatusOK, submitResponse{
			Status:        string(outcome.Status),
			ChallengeName: outcome.ChallengeName,
			Message:       "Almost there! This command needs an argument.",
			Help:          helpResponse(outcome.Help),
		})

	case submission.StatusIncorrect:
		writeJSON(w, http.StatusOK, submitResponse{
			Status:        string(outcome.Status),
			ChallengeName: outcome.ChallengeName,
			Message:       "Wrong answer. Check the study material and try again.",
			Help:          helpResponse(outcome.Help),
		})

	case submission.StatusCorrect:
		writeJSON(w, http.StatusCreated, submitResponse{
			Status:        string(outcome.Status),
			ChallengeName: outcome.ChallengeName,
			Message:       "Correct! Challenge completed.",
			TotalScore:    outcome.TotalScore,
			Achievements:  outcome.Achievements,
		})

	default:
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Unknown evaluation outcome")
	}
}

func helpResponse(ref *challenge.HelpReference) *challengeHelpResponse {
	if ref == nil {
		return nil
	}
	return &challengeHelpResponse{
		DocURL:   ref.DocURL,
		VideoURL: ref.VideoURL,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard handles GET /api/v1/leaderboard requests.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := getQueryParamInt(r, "limit", query.DefaultLeaderboardLimit)

	entries, err := s.deps.GetLeaderboard.TopN(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to get leaderboard", logger.Err(err))
		writeJSONError(w, http.StatusServiceUnavailable, "storage_unavailable", "Could not load the leaderboard, please retry")
		return
	}

	if entries == nil {
		entries = []query.LeaderboardEntry{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"leaderboard": entries,
		"count":       len(entries),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// PASSWORD RESET
// ══════════════════════════════════════════════════════════════════════════════

type requestResetRequest struct {
	Email string `json:"email"`
}

// handleRequestPasswordReset handles POST /api/v1/password-resets requests.
//
// The response is 202 for any syntactically valid email, whether or not a
// learner owns it. A distinguishable "no such email" answer would let a
// caller enumerate registered addresses.
func (s *Server) handleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON request body")
		return
	}

	email := learner.Email(strings.TrimSpace(req.Email))
	if !email.IsValid() {
		writeJSONError(w, http.StatusBadRequest, "invalid_email", "A valid email address is required")
		return
	}

	if err := s.deps.RequestPasswordReset.Handle(r.Context(), email); err != nil {
		if !shared.IsNotFound(err) {
			s.logger.Error("password reset request failed", logger.Err(err))
			writeJSONError(w, http.StatusServiceUnavailable, "storage_unavailable", "Could not process the reset request, please retry")
			return
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "If that email is registered, reset instructions have been sent.",
	})
}

type resetCredentialRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// handleResetCredential handles POST /api/v1/password-resets/{token} requests.
func (s *Server) handleResetCredential(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	var req resetCredentialRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON request body")
		return
	}

	if req.Password != req.ConfirmPassword {
		writeJSONError(w, http.StatusBadRequest, "password_mismatch", "Passwords do not match")
		return
	}

	err := s.deps.ResetCredential.Handle(r.Context(), token, req.Password)
	if err != nil {
		switch {
		case shared.IsValidation(err):
			writeJSONError(w, http.StatusBadRequest, "invalid_password", "Password must be at least 8 characters")
		case shared.IsNotFound(err):
			writeJSONError(w, http.StatusNotFound, "invalid_reset_token", "Reset token is invalid or has expired")
		default:
			s.logger.Error("credential reset failed", logger.Err(err))
			writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to reset password")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Your password has been updated. You can now log in.",
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeJSON decodes a bounded JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
