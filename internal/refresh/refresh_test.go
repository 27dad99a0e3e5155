package refresh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"memoria.io/portal/internal/config"
	"memoria.io/portal/internal/counts"
	"memoria.io/portal/internal/domain"
	"memoria.io/portal/internal/pkg/logger"
	"memoria.io/portal/internal/pkg/worker"
	"memoria.io/portal/internal/registry"
)

func init() {
	_ = logger.Init("error", "json")
}

func TestBroadcasterFansOutByTopic(t *testing.T) {
	b := NewBroadcaster(4)

	all := b.Subscribe()
	countsOnly := b.Subscribe(TopicCounts)
	defer b.Unsubscribe(all)
	defer b.Unsubscribe(countsOnly)

	b.Publish(Signal{Topic: TopicSubmissions, PeriodID: "p1"})
	b.Publish(Signal{Topic: TopicCounts, PeriodID: "p1"})

	require.Equal(t, TopicSubmissions, (<-all.C).Topic)
	require.Equal(t, TopicCounts, (<-all.C).Topic)

	got := <-countsOnly.C
	require.Equal(t, TopicCounts, got.Topic)
	select {
	case sig := <-countsOnly.C:
		t.Fatalf("unexpected signal on filtered subscription: %+v", sig)
	default:
	}
}

func TestBroadcasterDropsInsteadOfBlocking(t *testing.T) {
	b := NewBroadcaster(1)
	sub := b.Subscribe(TopicNotifications)
	defer b.Unsubscribe(sub)

	b.Publish(Signal{Topic: TopicNotifications, Scope: "s"})
	b.Publish(Signal{Topic: TopicNotifications, Scope: "s"}) // buffer full, dropped

	require.Equal(t, uint64(1), b.Dropped())
	<-sub.C
	select {
	case <-sub.C:
		t.Fatal("dropped signal should not be delivered")
	default:
	}
}

func TestUnsubscribeClosesChannelAndIsIdempotent(t *testing.T) {
	b := NewBroadcaster(1)
	sub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	require.Equal(t, 0, b.SubscriberCount())

	_, open := <-sub.C
	require.False(t, open)
}

func seedSubmission(t *testing.T, reg *registry.MemoryRegistry, id, periodID string) {
	t.Helper()
	require.NoError(t, reg.Create(context.Background(), &domain.Submission{
		ID:          id,
		PeriodID:    periodID,
		Status:      domain.StatusPending,
		SubmittedAt: time.Now(),
		Subject: domain.Subject{
			Role:    domain.RoleStudent,
			Student: &domain.StudentProfile{FullName: "Test Student"},
		},
	}))
}

func newTestCoordinator(t *testing.T, reg registry.Registry, cfg config.RefreshConfig) (*Coordinator, *counts.Projector, *Broadcaster) {
	t.Helper()
	pools, err := worker.NewPools(context.Background(), worker.DefaultPoolConfig())
	require.NoError(t, err)
	t.Cleanup(pools.Shutdown)

	projector := counts.NewProjector(reg)
	bc := NewBroadcaster(cfg.BufferSize)
	return NewCoordinator(reg, projector, bc, pools, cfg), projector, bc
}

func TestPollOncePublishesPerActivePeriod(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	seedSubmission(t, reg, "s1", "period-a")
	seedSubmission(t, reg, "s2", "period-b")

	coord, projector, bc := newTestCoordinator(t, reg, config.RefreshConfig{
		PollInterval: time.Hour, // never fires; we drive pollOnce directly
		MaxBackoff:   time.Hour,
		BufferSize:   16,
	})

	sub := bc.Subscribe()
	defer bc.Unsubscribe(sub)

	require.NoError(t, coord.pollOnce(context.Background()))

	topics := map[Topic]int{}
	for i := 0; i < 6; i++ {
		sig := <-sub.C
		topics[sig.Topic]++
	}
	require.Equal(t, 2, topics[TopicCounts])
	require.Equal(t, 2, topics[TopicSubmissions])
	require.Equal(t, 2, topics[TopicNotifications])

	snap, err := projector.Get(context.Background(), "period-a")
	require.NoError(t, err)
	require.Equal(t, 1, snap.PendingCount)
}

func TestKickCoalescesOverlappingRefreshes(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	seedSubmission(t, reg, "s1", "period-a")

	coord, _, bc := newTestCoordinator(t, reg, config.RefreshConfig{
		PollInterval: time.Hour,
		MaxBackoff:   time.Hour,
		BufferSize:   64,
	})

	sub := bc.Subscribe(TopicNotifications)
	defer bc.Unsubscribe(sub)

	// Simulate a refresh already in flight for this key.
	key := refreshKey{topic: TopicNotifications, scope: "scope-a"}
	coord.mu.Lock()
	coord.inFlight[key] = &refreshState{running: true, periodID: "period-a"}
	coord.mu.Unlock()

	const kicks = 20
	for i := 0; i < kicks; i++ {
		coord.Kick(TopicNotifications, "period-a", "scope-a")
	}

	// Nothing runs while the in-flight refresh holds the key; the kicks
	// collapse into a single pending flag.
	select {
	case sig := <-sub.C:
		t.Fatalf("refresh ran while another was in flight: %+v", sig)
	case <-time.After(50 * time.Millisecond):
	}
	coord.mu.Lock()
	require.True(t, coord.inFlight[key].pending)
	coord.mu.Unlock()

	// Resume the in-flight worker: it finishes its own refresh, then runs
	// exactly one trailing refresh for all twenty kicks.
	coord.runRefresh(context.Background(), key)

	var delivered int
	for {
		select {
		case <-sub.C:
			delivered++
		default:
			require.Equal(t, 2, delivered, "one in-flight plus one trailing refresh")
			coord.mu.Lock()
			require.False(t, coord.inFlight[key].running)
			require.False(t, coord.inFlight[key].pending)
			coord.mu.Unlock()
			return
		}
	}
}

func TestKickDuringRefreshSupersedesOlderPeriod(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	seedSubmission(t, reg, "s1", "period-a")
	seedSubmission(t, reg, "s2", "period-b")

	coord, _, bc := newTestCoordinator(t, reg, config.RefreshConfig{
		PollInterval: time.Hour,
		MaxBackoff:   time.Hour,
		BufferSize:   16,
	})

	sub := bc.Subscribe(TopicCounts)
	defer bc.Unsubscribe(sub)

	// A refresh for period-a holds the counts key when a decision lands
	// in period-b. The newer kick must win; period-a is already covered
	// by the run in flight.
	key := refreshKey{topic: TopicCounts, scope: ""}
	coord.mu.Lock()
	coord.inFlight[key] = &refreshState{running: true, periodID: "period-a"}
	coord.mu.Unlock()

	coord.Kick(TopicCounts, "period-b", "")

	coord.runRefresh(context.Background(), key)

	var periods []string
	for {
		select {
		case sig := <-sub.C:
			periods = append(periods, sig.PeriodID)
		default:
			require.Contains(t, periods, "period-b",
				"the kick that arrived mid-refresh must still publish")
			require.NotContains(t, periods, "period-a",
				"the superseded period must not be replayed")
			return
		}
	}
}

func TestKickPublishesSignalWithScope(t *testing.T) {
	reg := registry.NewMemoryRegistry()
	seedSubmission(t, reg, "s1", "period-a")

	coord, _, bc := newTestCoordinator(t, reg, config.RefreshConfig{
		PollInterval: time.Hour,
		MaxBackoff:   time.Hour,
		BufferSize:   16,
	})

	sub := bc.Subscribe(TopicCounts)
	defer bc.Unsubscribe(sub)

	coord.Kick(TopicCounts, "period-a", "")

	select {
	case sig := <-sub.C:
		require.Equal(t, TopicCounts, sig.Topic)
		require.Equal(t, "period-a", sig.PeriodID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a counts signal")
	}
}
