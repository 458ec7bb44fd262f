package submission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudquest-hub/cloudquest/internal/domain/challenge"
	"github.com/cloudquest-hub/cloudquest/internal/domain/learner"
	"github.com/cloudquest-hub/cloudquest/internal/domain/progress"
	"github.com/cloudquest-hub/cloudquest/internal/domain/shared"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type memCatalog struct {
	byID map[challenge.ID]*challenge.Challenge
}

func newMemCatalog(chs ...*challenge.Challenge) *memCatalog {
	c := &memCatalog{byID: make(map[challenge.ID]*challenge.Challenge)}
	for _, ch := range chs {
		c.byID[ch.ID] = ch
	}
	return c
}

func (c *memCatalog) GetByID(_ context.Context, id challenge.ID) (*challenge.Challenge, error) {
	if ch, ok := c.byID[id]; ok {
		return ch, nil
	}
	return nil, shared.ErrChallengeNotFound
}

func (c *memCatalog) GetByName(_ context.Context, name string) (*challenge.Challenge, error) {
	for _, ch := range c.byID {
		if ch.Name == name {
			return ch, nil
		}
	}
	return nil, shared.ErrChallengeNotFound
}

func (c *memCatalog) GetAll(_ context.Context) ([]*challenge.Challenge, error) {
	out := make([]*challenge.Challenge, 0, len(c.byID))
	for _, ch := range c.byID {
		out = append(out, ch)
	}
	return out, nil
}

func (c *memCatalog) Create(_ context.Context, ch *challenge.Challenge) error {
	c.byID[ch.ID] = ch
	return nil
}

func (c *memCatalog) ExistingNames(_ context.Context) (map[string]bool, error) {
	names := make(map[string]bool, len(c.byID))
	for _, ch := range c.byID {
		names[ch.Name] = true
	}
	return names, nil
}

// memLedger enforces the composite uniqueness invariant the way a unique
// index does: the insert itself rejects duplicates atomically.
type memLedger struct {
	mu      sync.Mutex
	records map[string]*progress.CompletionRecord
}

func newMemLedger() *memLedger {
	return &memLedger{records: make(map[string]*progress.CompletionRecord)}
}

func pairKey(l learner.ID, c challenge.ID) string {
	return l.String() + "/" + c.String()
}

func (m *memLedger) HasCompleted(_ context.Context, l learner.ID, c challenge.ID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[pairKey(l, c)]
	return ok, nil
}

func (m *memLedger) RecordCompletion(_ context.Context, l learner.ID, c challenge.ID, points int) (*progress.CompletionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pairKey(l, c)
	if _, ok := m.records[key]; ok {
		return nil, shared.ErrAlreadyCompleted
	}

	rec := &progress.CompletionRecord{
		ID:            uuid.NewString(),
		LearnerID:     l,
		ChallengeID:   c,
		AwardedPoints: points,
		CompletedAt:   time.Now().UTC(),
	}
	m.records[key] = rec
	return rec, nil
}

func (m *memLedger) TotalScore(_ context.Context, l learner.ID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for _, rec := range m.records {
		if rec.LearnerID == l {
			total += rec.AwardedPoints
		}
	}
	return total, nil
}

func (m *memLedger) RankedTotals(_ context.Context, limit int) ([]progress.RankedTotal, error) {
	return nil, nil
}

type memLearners struct {
	byID map[learner.ID]*learner.Learner
}

func (m *memLearners) GetByID(_ context.Context, id learner.ID) (*learner.Learner, error) {
	if l, ok := m.byID[id]; ok {
		return l, nil
	}
	return nil, shared.ErrLearnerNotFound
}

func (m *memLearners) GetByUsername(_ context.Context, u learner.Username) (*learner.Learner, error) {
	return nil, shared.ErrLearnerNotFound
}

func (m *memLearners) GetByEmail(_ context.Context, e learner.Email) (*learner.Learner, error) {
	return nil, shared.ErrLearnerNotFound
}

func (m *memLearners) GetByResetToken(_ context.Context, token string) (*learner.Learner, error) {
	return nil, shared.ErrLearnerNotFound
}

func (m *memLearners) Create(_ context.Context, l *learner.Learner) error {
	m.byID[l.ID] = l
	return nil
}

func (m *memLearners) Update(_ context.Context, l *learner.Learner) error {
	m.byID[l.ID] = l
	return nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) byType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

const learnerAlice = learner.ID("learner-alice")

func testEvaluator(t *testing.T, chs ...*challenge.Challenge) (*Evaluator, *memLedger, *capturingPublisher) {
	t.Helper()

	learners := &memLearners{byID: map[learner.ID]*learner.Learner{
		learnerAlice: {
			ID:       learnerAlice,
			Username: "alice",
			Email:    "alice@example.com",
		},
	}}
	ledger := newMemLedger()
	pub := &capturingPublisher{}
	ev := NewEvaluator(newMemCatalog(chs...), ledger, learners, pub, nil, nil)
	return ev, ledger, pub
}

func vpcChallenge() *challenge.Challenge {
	return &challenge.Challenge{
		ID:              "ch-vpc",
		Name:            "Create a VPC",
		SolutionPattern: "aws ec2 create-vpc",
		Points:          10,
	}
}

func iamChallenge() *challenge.Challenge {
	return &challenge.Challenge{
		ID:               "ch-iam",
		Name:             "Create an IAM User",
		SolutionPattern:  "aws iam create-user --user-name",
		RequiresArgument: true,
		Points:           15,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestSubmit_ChallengeNotFound(t *testing.T) {
	ev, _, _ := testEvaluator(t)

	out, err := ev.Submit(context.Background(), learnerAlice, "missing", "aws s3 ls")
	require.NoError(t, err)
	assert.Equal(t, StatusChallengeNotFound, out.Status)
}

func TestSubmit_PrefixTolerance(t *testing.T) {
	ev, _, _ := testEvaluator(t, vpcChallenge())

	out, err := ev.Submit(context.Background(), learnerAlice, "ch-vpc",
		"aws ec2 create-vpc --cidr-block 10.0.0.0/16")
	require.NoError(t, err)
	assert.Equal(t, StatusCorrect, out.Status)
	assert.Equal(t, 10, out.TotalScore)
	assert.Equal(t, []string{"cloud-warrior"}, out.Achievements)
}

func TestSubmit_Incorrect_CarriesHelp(t *testing.T) {
	ev, ledger, _ := testEvaluator(t, vpcChallenge())

	out, err := ev.Submit(context.Background(), learnerAlice, "ch-vpc", "aws ec2 delete-vpc")
	require.NoError(t, err)
	assert.Equal(t, StatusIncorrect, out.Status)
	require.NotNil(t, out.Help)
	assert.Contains(t, out.Help.DocURL, "create-vpc")

	done, err := ledger.HasCompleted(context.Background(), learnerAlice, "ch-vpc")
	require.NoError(t, err)
	assert.False(t, done, "incorrect submission must not change state")
}

func TestSubmit_IncompleteDetection(t *testing.T) {
	ev, ledger, _ := testEvaluator(t, iamChallenge())

	out, err := ev.Submit(context.Background(), learnerAlice, "ch-iam",
		"aws iam create-user --user-name")
	require.NoError(t, err)
	assert.Equal(t, StatusIncomplete, out.Status)

	done, err := ledger.HasCompleted(context.Background(), learnerAlice, "ch-iam")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestSubmit_IdempotentScoring(t *testing.T) {
	ev, ledger, _ := testEvaluator(t, vpcChallenge())
	ctx := context.Background()

	first, err := ev.Submit(ctx, learnerAlice, "ch-vpc", "aws ec2 create-vpc")
	require.NoError(t, err)
	assert.Equal(t, StatusCorrect, first.Status)

	second, err := ev.Submit(ctx, learnerAlice, "ch-vpc", "aws ec2 create-vpc")
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadyCompleted, second.Status)

	total, err := ledger.TotalScore(ctx, learnerAlice)
	require.NoError(t, err)
	assert.Equal(t, 10, total, "exactly one record for the pair")
}

func TestSubmit_ConcurrentSubmissions_OneWinner(t *testing.T) {
	ev, ledger, pub := testEvaluator(t, vpcChallenge())
	ctx := context.Background()

	const n = 16
	outcomes := make([]Status, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := ev.Submit(ctx, learnerAlice, "ch-vpc", "aws ec2 create-vpc")
			if assert.NoError(t, err) {
				outcomes[i] = out.Status
			}
		}(i)
	}
	wg.Wait()

	correct, already := 0, 0
	for _, s := range outcomes {
		switch s {
		case StatusCorrect:
			correct++
		case StatusAlreadyCompleted:
			already++
		}
	}
	assert.Equal(t, 1, correct, "exactly one committed record")
	assert.Equal(t, n-1, already)

	total, err := ledger.TotalScore(ctx, learnerAlice)
	require.NoError(t, err)
	assert.Equal(t, 10, total)

	assert.Len(t, pub.byType(shared.EventChallengeCompleted), 1)
}

func TestSubmit_ThresholdCrossingFiresOnce(t *testing.T) {
	s3 := &challenge.Challenge{ID: "ch-s3", Name: "List S3 buckets", SolutionPattern: "aws s3 ls", Points: 8}
	ec2 := &challenge.Challenge{ID: "ch-ec2", Name: "Launch an EC2 instance", SolutionPattern: "aws ec2 run-instances", Points: 10}
	vpc := vpcChallenge()

	ev, _, pub := testEvaluator(t, s3, ec2, vpc)
	ctx := context.Background()

	// 0 -> 8: no threshold crossed yet.
	out, err := ev.Submit(ctx, learnerAlice, "ch-s3", "aws s3 ls")
	require.NoError(t, err)
	assert.Empty(t, out.Achievements)

	// 8 -> 18: crosses cloud-warrior [10, 50).
	out, err = ev.Submit(ctx, learnerAlice, "ch-ec2", "aws ec2 run-instances")
	require.NoError(t, err)
	assert.Equal(t, []string{"cloud-warrior"}, out.Achievements)

	// 18 -> 28: stays within the band; no re-announcement.
	out, err = ev.Submit(ctx, learnerAlice, "ch-vpc", "aws ec2 create-vpc")
	require.NoError(t, err)
	assert.Empty(t, out.Achievements)

	unlocked := pub.byType(shared.EventAchievementUnlocked)
	require.Len(t, unlocked, 1)
	evt := unlocked[0].(shared.AchievementUnlockedEvent)
	assert.Equal(t, "cloud-warrior", evt.Achievement)
	assert.Equal(t, "alice", evt.Username)
	assert.Equal(t, 18, evt.TotalScore)
}

func TestSubmit_SingleAwardCrossesMultipleThresholds(t *testing.T) {
	big := &challenge.Challenge{ID: "ch-big", Name: "Grand Tour", SolutionPattern: "aws ec2 describe-regions", Points: 60}
	ev, _, pub := testEvaluator(t, big)

	out, err := ev.Submit(context.Background(), learnerAlice, "ch-big", "aws ec2 describe-regions --all-regions")
	require.NoError(t, err)
	assert.Equal(t, []string{"cloud-warrior", "cloud-sorcerer"}, out.Achievements)
	assert.Len(t, pub.byType(shared.EventAchievementUnlocked), 2)
}
