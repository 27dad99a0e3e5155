package refresh

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"memoria.io/portal/internal/config"
	"memoria.io/portal/internal/counts"
	"memoria.io/portal/internal/pkg/logger"
	"memoria.io/portal/internal/pkg/worker"
	"memoria.io/portal/internal/registry"
)

// Coordinator owns the poll backstop and the coalesced refresh path.
//
// The poll loop re-derives counts for every active period on a fixed
// interval and publishes signals, so a viewer converges within one
// interval even if every broadcast was lost. Kick is the fast path used
// by the decision flow; overlapping kicks for the same topic and scope
// collapse into a single trailing refresh.
type Coordinator struct {
	reg       registry.Registry
	projector *counts.Projector
	bc        *Broadcaster
	pools     *worker.Pools
	cfg       config.RefreshConfig

	mu       sync.Mutex
	inFlight map[refreshKey]*refreshState
}

type refreshKey struct {
	topic Topic
	scope string
}

// refreshState coalesces kicks for one key. periodID always holds the
// newest kick's period; older kicks are superseded, never replayed.
type refreshState struct {
	running  bool
	pending  bool
	periodID string
}

func NewCoordinator(reg registry.Registry, projector *counts.Projector, bc *Broadcaster, pools *worker.Pools, cfg config.RefreshConfig) *Coordinator {
	return &Coordinator{
		reg:       reg,
		projector: projector,
		bc:        bc,
		pools:     pools,
		cfg:       cfg,
		inFlight:  make(map[refreshKey]*refreshState),
	}
}

// Start launches the poll loop on the poll pool.
func (c *Coordinator) Start() error {
	return c.pools.SubmitDetached("poll", c.pollLoop)
}

func (c *Coordinator) pollLoop(ctx context.Context) {
	interval := c.cfg.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	logger.Info("refresh poll loop started", zap.Duration("interval", interval))

	backoff := interval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("refresh poll loop stopped")
			return
		case <-timer.C:
		}

		if err := c.pollOnce(ctx); err != nil {
			// Back off while the registry is down; pure latency, the next
			// successful poll re-derives everything.
			if backoff < c.cfg.MaxBackoff {
				backoff *= 2
				if backoff > c.cfg.MaxBackoff {
					backoff = c.cfg.MaxBackoff
				}
			}
			logger.Warn("refresh poll failed",
				zap.Error(err),
				zap.Duration("next_attempt", backoff))
			timer.Reset(backoff)
			continue
		}

		backoff = interval
		timer.Reset(interval)
	}
}

// pollOnce re-derives counts for every active period and publishes the
// poll-side signals.
func (c *Coordinator) pollOnce(ctx context.Context) error {
	periods, err := c.reg.ActivePeriods(ctx)
	if err != nil {
		return err
	}

	var failed error
	for _, periodID := range periods {
		c.projector.Invalidate(periodID)
		if _, err := c.projector.Get(ctx, periodID); err != nil {
			failed = err
			continue
		}
		c.bc.Publish(Signal{Topic: TopicCounts, PeriodID: periodID})
		c.bc.Publish(Signal{Topic: TopicSubmissions, PeriodID: periodID})
		// Scope-less: every inbox consumer in the period re-checks, so a
		// lost notifications broadcast heals within one poll interval.
		c.bc.Publish(Signal{Topic: TopicNotifications, PeriodID: periodID})
	}
	return failed
}

// Kick schedules a refresh for one topic and scope. If one is already
// running, a single trailing refresh is queued no matter how many kicks
// arrive in between; intermediate kicks are superseded by the latest.
func (c *Coordinator) Kick(topic Topic, periodID, scope string) {
	key := refreshKey{topic: topic, scope: scope}

	c.mu.Lock()
	state, ok := c.inFlight[key]
	if !ok {
		state = &refreshState{}
		c.inFlight[key] = state
	}
	state.periodID = periodID
	if state.running {
		state.pending = true
		c.mu.Unlock()
		return
	}
	state.running = true
	c.mu.Unlock()

	if err := c.pools.SubmitDetached("poll", func(ctx context.Context) {
		c.runRefresh(ctx, key)
	}); err != nil {
		logger.Warn("refresh kick not scheduled, poll will recover",
			zap.String("topic", string(topic)), zap.Error(err))
		c.clear(key)
	}
}

func (c *Coordinator) runRefresh(ctx context.Context, key refreshKey) {
	for {
		// Re-read the period each pass so a kick that arrived mid-refresh
		// supersedes the one that started it.
		c.mu.Lock()
		state := c.inFlight[key]
		if state == nil {
			c.mu.Unlock()
			return
		}
		periodID := state.periodID
		c.mu.Unlock()

		c.refreshOne(ctx, key.topic, periodID, key.scope)

		c.mu.Lock()
		state = c.inFlight[key]
		if state == nil || !state.pending {
			if state != nil {
				state.running = false
			}
			c.mu.Unlock()
			return
		}
		state.pending = false
		c.mu.Unlock()
	}
}

func (c *Coordinator) refreshOne(ctx context.Context, topic Topic, periodID, scope string) {
	switch topic {
	case TopicCounts:
		c.projector.Invalidate(periodID)
		if _, err := c.projector.Get(ctx, periodID); err != nil {
			logger.Warn("count refresh failed, poll will recover",
				zap.String("period_id", periodID), zap.Error(err))
			return
		}
	case TopicSubmissions, TopicNotifications:
		// Nothing to pre-compute; consumers re-fetch on the signal.
	}
	c.bc.Publish(Signal{Topic: topic, PeriodID: periodID, Scope: scope})
}

func (c *Coordinator) clear(key refreshKey) {
	c.mu.Lock()
	if state := c.inFlight[key]; state != nil {
		state.running = false
		state.pending = false
	}
	c.mu.Unlock()
}
