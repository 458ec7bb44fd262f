package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cloudquest-hub/cloudquest/internal/application/command"
	"github.com/cloudquest-hub/cloudquest/internal/application/query"
	"github.com/cloudquest-hub/cloudquest/internal/application/submission"
	"github.com/cloudquest-hub/cloudquest/internal/domain/challenge"
	"github.com/cloudquest-hub/cloudquest/internal/domain/learner"
	"github.com/cloudquest-hub/cloudquest/internal/domain/notification"
	"github.com/cloudquest-hub/cloudquest/internal/domain/progress"
	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type stubChallengeRepo struct {
	challenges map[challenge.ID]*challenge.Challenge
}

func newStubChallengeRepo(list ...*challenge.Challenge) *stubChallengeRepo {
	r := &stubChallengeRepo{challenges: make(map[challenge.ID]*challenge.Challenge)}
	for _, c := range list {
		r.challenges[c.ID] = c
	}
	return r
}

func (r *stubChallengeRepo) GetByID(_ context.Context, id challenge.ID) (*challenge.Challenge, error) {
	c, ok := r.challenges[id]
	if !ok {
		return nil, shared.ErrChallengeNotFound
	}
	return c, nil
}

func (r *stubChallengeRepo) GetByName(_ context.Context, name string) (*challenge.Challenge, error) {
	for _, c := range r.challenges {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, shared.ErrChallengeNotFound
}

func (r *stubChallengeRepo) GetAll(_ context.Context) ([]*challenge.Challenge, error) {
	all := make([]*challenge.Challenge, 0, len(r.challenges))
	for _, c := range r.challenges {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all, nil
}

func (r *stubChallengeRepo) Create(_ context.Context, c *challenge.Challenge) error {
	r.challenges[c.ID] = c
	return nil
}

func (r *stubChallengeRepo) ExistingNames(_ context.Context) (map[string]bool, error) {
	names := make(map[string]bool, len(r.challenges))
	for _, c := range r.challenges {
		names[c.Name] = true
	}
	return names, nil
}

type stubLedger struct {
	points map[learner.ID]map[challenge.ID]int
	names  map[learner.ID]string
}

func newStubLedger() *stubLedger {
	return &stubLedger{
		points: make(map[learner.ID]map[challenge.ID]int),
		names:  make(map[learner.ID]string),
	}
}

func (l *stubLedger) HasCompleted(_ context.Context, learnerID learner.ID, challengeID challenge.ID) (bool, error) {
	_, ok := l.points[learnerID][challengeID]
	return ok, nil
}

func (l *stubLedger) RecordCompletion(_ context.Context, learnerID learner.ID, challengeID challenge.ID, points int) (*progress.CompletionRecord, error) {
	if _, ok := l.points[learnerID][challengeID]; ok {
		return nil, shared.ErrAlreadyCompleted
	}
	if l.points[learnerID] == nil {
		l.points[learnerID] = make(map[challenge.ID]int)
	}
	l.points[learnerID][challengeID] = points
	return &progress.CompletionRecord{
		ID:            fmt.Sprintf("rec-%s-%s", learnerID, challengeID),
		LearnerID:     learnerID,
		ChallengeID:   challengeID,
		AwardedPoints: points,
		CompletedAt:   time.Now(),
	}, nil
}

func (l *stubLedger) TotalScore(_ context.Context, learnerID learner.ID) (int, error) {
	total := 0
	for _, p := range l.points[learnerID] {
		total += p
	}
	return total, nil
}

func (l *stubLedger) RankedTotals(ctx context.Context, limit int) ([]progress.RankedTotal, error) {
	totals := make([]progress.RankedTotal, 0, len(l.points))
	for id := range l.points {
		score, _ := l.TotalScore(ctx, id)
		totals = append(totals, progress.RankedTotal{
			LearnerID:  id,
			Username:   l.names[id],
			TotalScore: score,
		})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].TotalScore != totals[j].TotalScore {
			return totals[i].TotalScore > totals[j].TotalScore
		}
		return totals[i].LearnerID < totals[j].LearnerID
	})
	if len(totals) > limit {
		totals = totals[:limit]
	}
	return totals, nil
}

type stubLearnerRepo struct {
	byID map[learner.ID]*learner.Learner

	// failWith, when set, is returned by every lookup.
	failWith error
}

func newStubLearnerRepo(list ...*learner.Learner) *stubLearnerRepo {
	r := &stubLearnerRepo{byID: make(map[learner.ID]*learner.Learner)}
	for _, l := range list {
		r.byID[l.ID] = l
	}
	return r
}

func (r *stubLearnerRepo) GetByID(_ context.Context, id learner.ID) (*learner.Learner, error) {
	l, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrLearnerNotFound
	}
	cp := *l
	return &cp, nil
}

func (r *stubLearnerRepo) GetByUsername(_ context.Context, username learner.Username) (*learner.Learner, error) {
	for _, l := range r.byID {
		if l.Username == username {
			cp := *l
			return &cp, nil
		}
	}
	return nil, shared.ErrLearnerNotFound
}

func (r *stubLearnerRepo) GetByEmail(_ context.Context, email learner.Email) (*learner.Learner, error) {
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, l := range r.byID {
		if l.Email == email {
			cp := *l
			return &cp, nil
		}
	}
	return nil, shared.ErrLearnerNotFound
}

func (r *stubLearnerRepo) GetByResetToken(_ context.Context, token string) (*learner.Learner, error) {
	if token == "" {
		return nil, shared.ErrLearnerNotFound
	}
	for _, l := range r.byID {
		if l.ResetToken == token {
			cp := *l
			return &cp, nil
		}
	}
	return nil, shared.ErrLearnerNotFound
}

func (r *stubLearnerRepo) Create(_ context.Context, l *learner.Learner) error {
	cp := *l
	r.byID[l.ID] = &cp
	return nil
}

func (r *stubLearnerRepo) Update(_ context.Context, l *learner.Learner) error {
	if _, ok := r.byID[l.ID]; !ok {
		return shared.ErrLearnerNotFound
	}
	cp := *l
	r.byID[l.ID] = &cp
	return nil
}

type stubDispatcher struct {
	sent []*notification.Notification
}

func (d *stubDispatcher) Dispatch(_ context.Context, n *notification.Notification) error {
	d.sent = append(d.sent, n)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TEST SERVER SETUP
// ══════════════════════════════════════════════════════════════════════════════

type testEnv struct {
	server     *Server
	learners   *stubLearnerRepo
	dispatcher *stubDispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ec2 := &challenge.Challenge{
		ID:              "ch-ec2",
		Name:            "Launch an EC2 instance",
		Description:     "Use the AWS CLI to launch an EC2 instance.",
		SolutionPattern: "aws ec2 run-instances",
		Points:          10,
		CreatedAt:       time.Now(),
	}
	iam := &challenge.Challenge{
		ID:               "ch-iam",
		Name:             "Create an IAM User",
		Description:      "Use the AWS CLI to create a new IAM user.",
		SolutionPattern:  "aws iam create-user --user-name",
		RequiresArgument: true,
		Points:           15,
		CreatedAt:        time.Now(),
	}

	challenges := newStubChallengeRepo(ec2, iam)
	ledger := newStubLedger()
	ledger.names["learner-1"] = "gopher"
	learners := newStubLearnerRepo(&learner.Learner{
		ID:       "learner-1",
		Username: "gopher",
		Email:    "gopher@example.com",
	})
	dispatcher := &stubDispatcher{}

	deps := Dependencies{
		Evaluator:            submission.NewEvaluator(challenges, ledger, learners, nil, nil, nil),
		RequestPasswordReset: command.NewRequestPasswordResetHandler(learners, dispatcher, "https://cloudquest.example.com", nil),
		ResetCredential:      command.NewResetCredentialHandler(learners, nil),
		GetLeaderboard:       query.NewGetLeaderboardHandler(ledger, nil, nil),
		Challenges:           challenges,
	}

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0

	return &testEnv{
		server:     NewServer(cfg, deps),
		learners:   learners,
		dispatcher: dispatcher,
	}
}

func (e *testEnv) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_Health(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_Live(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/live", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBMISSIONS
// ══════════════════════════════════════════════════════════════════════════════

func submitHeaders() map[string]string {
	return map[string]string{"X-Learner-ID": "learner-1"}
}

func TestServer_Submit_Correct(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/challenges/ch-ec2/submissions",
		submitRequest{Command: "aws ec2 run-instances --image-id ami-123"}, submitHeaders())

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decodeBody(t, rec)
	assert.True(t, resp.Success)

	data, _ := json.Marshal(resp.Data)
	var out submitResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "correct", out.Status)
	assert.Equal(t, 10, out.TotalScore)
	assert.Contains(t, out.Achievements, "cloud-warrior")
}

func TestServer_Submit_Incorrect_IncludesHelp(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/challenges/ch-ec2/submissions",
		submitRequest{Command: "aws s3 ls"}, submitHeaders())

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)

	data, _ := json.Marshal(resp.Data)
	var out submitResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "incorrect", out.Status)
	require.NotNil(t, out.Help)
	assert.Contains(t, out.Help.DocURL, "docs.aws.amazon.com")
}

func TestServer_Submit_Incomplete(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/challenges/ch-iam/submissions",
		submitRequest{Command: "aws iam create-user --user-name"}, submitHeaders())

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)

	data, _ := json.Marshal(resp.Data)
	var out submitResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "incomplete", out.Status)
}

func TestServer_Submit_AlreadyCompleted(t *testing.T) {
	env := newTestEnv(t)
	body := submitRequest{Command: "aws ec2 run-instances"}

	first := env.do(http.MethodPost, "/api/v1/challenges/ch-ec2/submissions", body, submitHeaders())
	require.Equal(t, http.StatusCreated, first.Code)

	second := env.do(http.MethodPost, "/api/v1/challenges/ch-ec2/submissions", body, submitHeaders())
	require.Equal(t, http.StatusOK, second.Code)

	resp := decodeBody(t, second)
	data, _ := json.Marshal(resp.Data)
	var out submitResponse
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "already_completed", out.Status)
	assert.Zero(t, out.TotalScore)
}

func TestServer_Submit_UnknownChallenge(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/challenges/ch-nope/submissions",
		submitRequest{Command: "aws ec2 run-instances"}, submitHeaders())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeBody(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "challenge_not_found", resp.Error.Code)
}

func TestServer_Submit_MissingLearnerHeader(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/challenges/ch-ec2/submissions",
		submitRequest{Command: "aws ec2 run-instances"}, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_Submit_MalformedBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/challenges/ch-ec2/submissions",
		bytes.NewBufferString("{not json"))
	req.Header.Set("X-Learner-ID", "learner-1")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG & LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_ListChallenges(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/challenges", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody(t, rec)
	data, _ := json.Marshal(resp.Data)
	var out struct {
		Challenges []challengeResponse `json:"challenges"`
		Count      int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, 2, out.Count)

	for _, c := range out.Challenges {
		assert.NotEmpty(t, c.Name)
		assert.Greater(t, c.Points, 0)
	}
	// Solution patterns must never leak to clients.
	assert.NotContains(t, rec.Body.String(), "solution_pattern")
	assert.NotContains(t, rec.Body.String(), "aws ec2 run-instances")
}

func TestServer_Leaderboard(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/challenges/ch-ec2/submissions",
		submitRequest{Command: "aws ec2 run-instances"}, submitHeaders())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/leaderboard?limit=5", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody(t, rec)
	data, _ := json.Marshal(resp.Data)
	var out struct {
		Leaderboard []query.LeaderboardEntry `json:"leaderboard"`
		Count       int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, 1, out.Count)
	assert.Equal(t, "gopher", out.Leaderboard[0].Username)
	assert.Equal(t, 10, out.Leaderboard[0].TotalScore)
	assert.Equal(t, 1, out.Leaderboard[0].Rank)
}

func TestServer_Leaderboard_Empty(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/leaderboard", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"leaderboard":[]`)
}

// ══════════════════════════════════════════════════════════════════════════════
// PASSWORD RESET
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_RequestPasswordReset(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/password-resets",
		requestResetRequest{Email: "gopher@example.com"}, nil)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, env.dispatcher.sent, 1)
	assert.Equal(t, notification.KindPasswordReset, env.dispatcher.sent[0].Kind)
}

func TestServer_RequestPasswordReset_UnknownEmailIsIndistinguishable(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/password-resets",
		requestResetRequest{Email: "nobody@example.com"}, nil)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, env.dispatcher.sent)
}

func TestServer_RequestPasswordReset_StorageFault(t *testing.T) {
	env := newTestEnv(t)
	env.learners.failWith = errors.New("connection refused")

	rec := env.do(http.MethodPost, "/api/v1/password-resets",
		requestResetRequest{Email: "gopher@example.com"}, nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeBody(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "storage_unavailable", resp.Error.Code)
}

func TestServer_RequestPasswordReset_InvalidEmail(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/password-resets",
		requestResetRequest{Email: "not-an-email"}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ResetCredential(t *testing.T) {
	env := newTestEnv(t)

	existing, err := env.learners.GetByID(context.Background(), "learner-1")
	require.NoError(t, err)
	existing.IssueResetToken("tok-abc", time.Now())
	require.NoError(t, env.learners.Update(context.Background(), existing))

	rec := env.do(http.MethodPost, "/api/v1/password-resets/tok-abc",
		resetCredentialRequest{Password: "correct-horse-battery", ConfirmPassword: "correct-horse-battery"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated, err := env.learners.GetByID(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.Empty(t, updated.ResetToken)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.CredentialHash), []byte("correct-horse-battery")))

	// The token is single-use.
	rec = env.do(http.MethodPost, "/api/v1/password-resets/tok-abc",
		resetCredentialRequest{Password: "another-password", ConfirmPassword: "another-password"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ResetCredential_UnknownToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/v1/password-resets/tok-missing",
		resetCredentialRequest{Password: "correct-horse-battery", ConfirmPassword: "correct-horse-battery"}, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeBody(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "invalid_reset_token", resp.Error.Code)
}

func TestServer_ResetCredential_ShortPassword(t *testing.T) {
	env := newTestEnv(t)

	existing, err := env.learners.GetByID(context.Background(), "learner-1")
	require.NoError(t, err)
	existing.IssueResetToken("tok-abc", time.Now())
	require.NoError(t, env.learners.Update(context.Background(), existing))

	rec := env.do(http.MethodPost, "/api/v1/password-resets/tok-abc",
		resetCredentialRequest{Password: "short", ConfirmPassword: "short"}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_ResetCredential_Mismatch(t *testing.T) {
	env := newTestEnv(t)

	existing, err := env.learners.GetByID(context.Background(), "learner-1")
	require.NoError(t, err)
	existing.IssueResetToken("tok-abc", time.Now())
	require.NoError(t, env.learners.Update(context.Background(), existing))

	rec := env.do(http.MethodPost, "/api/v1/password-resets/tok-abc",
		resetCredentialRequest{Password: "correct-horse-battery", ConfirmPassword: "something-else"}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The token survives a mismatched confirmation.
	still, err := env.learners.GetByID(context.Background(), "learner-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", still.ResetToken)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

func TestServer_RateLimit(t *testing.T) {
	env := newTestEnv(t)

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 2
	limited := NewServer(cfg, env.server.deps)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/live", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		limited.Handler().ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func TestServer_RequestIDPropagated(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}
