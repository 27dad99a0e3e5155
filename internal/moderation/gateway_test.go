package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"memoria.io/portal/internal/counts"
	"memoria.io/portal/internal/domain"
	"memoria.io/portal/internal/notification"
	apperrors "memoria.io/portal/internal/pkg/errors"
	"memoria.io/portal/internal/pkg/logger"
	"memoria.io/portal/internal/refresh"
	"memoria.io/portal/internal/registry"
)

func init() {
	_ = logger.Init("error", "json")
}

type capturingNotifier struct {
	mu     sync.Mutex
	events []domain.DecisionEvent
	fail   bool
}

func (c *capturingNotifier) OnDecision(_ context.Context, ev domain.DecisionEvent, _ notification.Target) (*domain.Notification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, errors.New("inbox down")
	}
	c.events = append(c.events, ev)
	return &domain.Notification{}, nil
}

type capturingRefresher struct {
	mu    sync.Mutex
	kicks []refresh.Topic
}

func (c *capturingRefresher) Kick(topic refresh.Topic, _, _ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.kicks = append(c.kicks, topic)
}

func newFixture(t *testing.T) (*Gateway, *registry.MemoryRegistry, *capturingNotifier, *capturingRefresher) {
	t.Helper()
	reg := registry.NewMemoryRegistry()
	notifier := &capturingNotifier{}
	refresher := &capturingRefresher{}
	g := NewGateway(reg, counts.NewProjector(reg), notifier, refresher)
	return g, reg, notifier, refresher
}

func createPending(t *testing.T, reg *registry.MemoryRegistry, id string) {
	t.Helper()
	require.NoError(t, reg.Create(context.Background(), &domain.Submission{
		ID:          id,
		PeriodID:    "period-2026",
		Status:      domain.StatusPending,
		SubmittedAt: time.Now(),
		Subject: domain.Subject{
			Role:    domain.RoleStudent,
			Student: &domain.StudentProfile{FullName: "Juan Dela Cruz"},
		},
	}))
}

func TestApprove(t *testing.T) {
	g, reg, notifier, refresher := newFixture(t)
	createPending(t, reg, "sub-1")

	updated, err := g.Approve(context.Background(), "sub-1", "reviewer-1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusApproved, updated.Status)
	require.Equal(t, "reviewer-1", updated.ReviewedBy)
	require.NotNil(t, updated.ReviewedAt)
	require.Empty(t, updated.DecisionReasons)

	require.Len(t, notifier.events, 1)
	require.Equal(t, domain.OutcomeApproved, notifier.events[0].Outcome)
	require.ElementsMatch(t, []refresh.Topic{
		refresh.TopicSubmissions, refresh.TopicCounts, refresh.TopicNotifications,
	}, refresher.kicks)
}

func TestApproveIsNotIdempotent(t *testing.T) {
	g, reg, notifier, _ := newFixture(t)
	createPending(t, reg, "sub-1")

	_, err := g.Approve(context.Background(), "sub-1", "reviewer-1")
	require.NoError(t, err)

	_, err = g.Approve(context.Background(), "sub-1", "reviewer-2")
	require.Error(t, err)
	require.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
	require.Len(t, notifier.events, 1, "only the first approve emits an event")
}

func TestRejectRequiresReasonsOrNote(t *testing.T) {
	g, reg, notifier, _ := newFixture(t)
	createPending(t, reg, "sub-1")

	_, err := g.Reject(context.Background(), "sub-1", "reviewer-1", nil, "")
	require.True(t, errors.Is(err, apperrors.ErrEmptyReasonSet))

	// Validation failure leaves the submission untouched and emits nothing.
	sub, getErr := reg.Get(context.Background(), "sub-1")
	require.NoError(t, getErr)
	require.Equal(t, domain.StatusPending, sub.Status)
	require.Empty(t, notifier.events)

	// A note alone is enough.
	updated, err := g.Reject(context.Background(), "sub-1", "reviewer-1", nil, "photo is blurry")
	require.NoError(t, err)
	require.Equal(t, domain.StatusRejected, updated.Status)
	require.Equal(t, "photo is blurry", updated.FreeformNote)
}

func TestRejectCarriesOrderedReasons(t *testing.T) {
	g, reg, notifier, _ := newFixture(t)
	createPending(t, reg, "sub-1")

	reasons := []domain.ReasonCode{domain.ReasonInvalidFormat, domain.ReasonInappropriateContent}
	updated, err := g.Reject(context.Background(), "sub-1", "reviewer-1", reasons, "")
	require.NoError(t, err)
	require.Equal(t, reasons, updated.DecisionReasons)

	require.Len(t, notifier.events, 1)
	require.Equal(t, domain.OutcomeRejected, notifier.events[0].Outcome)
	require.Equal(t, reasons, notifier.events[0].Reasons)
}

func TestRejectUnknownReasonCode(t *testing.T) {
	g, reg, _, _ := newFixture(t)
	createPending(t, reg, "sub-1")

	_, err := g.Reject(context.Background(), "sub-1", "reviewer-1",
		[]domain.ReasonCode{"TOO_TALL"}, "")
	require.Error(t, err)

	sub, getErr := reg.Get(context.Background(), "sub-1")
	require.NoError(t, getErr)
	require.Equal(t, domain.StatusPending, sub.Status)
}

func TestReopenArchivesDecisionAndIncrementsCycle(t *testing.T) {
	g, reg, notifier, _ := newFixture(t)
	createPending(t, reg, "sub-1")
	ctx := context.Background()

	reasons := []domain.ReasonCode{domain.ReasonMissingRequiredFields}
	_, err := g.Reject(ctx, "sub-1", "reviewer-1", reasons, "fix the quote")
	require.NoError(t, err)

	reopened, err := g.Reopen(ctx, "sub-1", "admin-1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, reopened.Status)
	require.Equal(t, 1, reopened.ReviewCycle)
	require.Nil(t, reopened.ReviewedAt)
	require.Empty(t, reopened.ReviewedBy)
	require.Empty(t, reopened.DecisionReasons)
	require.Empty(t, reopened.FreeformNote)

	archive, err := reg.ListDecisionArchive(ctx, "sub-1")
	require.NoError(t, err)
	require.Len(t, archive, 1)
	require.Equal(t, domain.StatusRejected, archive[0].Outcome)
	require.Equal(t, "reviewer-1", archive[0].ReviewedBy)
	require.Equal(t, reasons, archive[0].Reasons)
	require.Equal(t, "fix the quote", archive[0].FreeformNote)
	require.Equal(t, 0, archive[0].ReviewCycle)

	require.Equal(t, domain.OutcomeReopened, notifier.events[len(notifier.events)-1].Outcome)

	// A second decision cycle stacks a second archive entry.
	_, err = g.Approve(ctx, "sub-1", "reviewer-2")
	require.NoError(t, err)
	_, err = g.Reopen(ctx, "sub-1", "admin-1")
	require.NoError(t, err)

	archive, err = reg.ListDecisionArchive(ctx, "sub-1")
	require.NoError(t, err)
	require.Len(t, archive, 2)
	require.Equal(t, domain.StatusApproved, archive[1].Outcome)
	require.Equal(t, 1, archive[1].ReviewCycle)
}

func TestReopenRequiresDecidedSubmission(t *testing.T) {
	g, reg, _, _ := newFixture(t)
	createPending(t, reg, "sub-1")

	_, err := g.Reopen(context.Background(), "sub-1", "admin-1")
	require.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
}

func TestDecisionOnMissingSubmission(t *testing.T) {
	g, _, _, _ := newFixture(t)

	_, err := g.Approve(context.Background(), "ghost", "reviewer-1")
	require.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestConcurrentApprovesExactlyOneWins(t *testing.T) {
	g, reg, notifier, _ := newFixture(t)
	createPending(t, reg, "sub-1")

	const reviewers = 16
	var wg sync.WaitGroup
	errs := make([]error, reviewers)
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Approve(context.Background(), "sub-1", "reviewer")
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperrors.ErrInvalidTransition):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, wins, "exactly one approve may win")
	require.Equal(t, reviewers-1, conflicts)
	require.Len(t, notifier.events, 1, "exactly one decision event")
}

func TestNotificationFailureDoesNotUnwindDecision(t *testing.T) {
	g, reg, notifier, _ := newFixture(t)
	notifier.fail = true
	createPending(t, reg, "sub-1")

	updated, err := g.Approve(context.Background(), "sub-1", "reviewer-1")
	require.NoError(t, err, "decision is durable before dispatch")
	require.Equal(t, domain.StatusApproved, updated.Status)
}

func TestGatewayWithNilCollaborators(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	g := NewGateway(reg, nil, nil, nil)
	createPending(t, reg, "sub-1")

	_, err := g.Approve(context.Background(), "sub-1", "reviewer-1")
	require.NoError(t, err)
}
