// Package refresh keeps connected viewers current. It has two halves with
// different guarantees: the broadcaster pushes advisory change signals the
// moment something happens, and the poller re-derives state on a fixed
// interval. A dropped signal is therefore a latency problem, never a
// correctness problem.
package refresh

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"memoria.io/portal/internal/pkg/logger"
)

// Topic names a class of change signal.
type Topic string

const (
	TopicSubmissions   Topic = "submissionsChanged"
	TopicCounts        Topic = "countsChanged"
	TopicNotifications Topic = "notificationsChanged"
)

// Signal is a change notice. It carries only the topic and addressing;
// consumers re-fetch through the authoritative read path.
type Signal struct {
	Topic    Topic  `json:"topic"`
	PeriodID string `json:"periodId,omitempty"`
	Scope    string `json:"scope,omitempty"`
}

// Subscription is one consumer's signal feed. C is closed by Unsubscribe.
type Subscription struct {
	C  <-chan Signal
	id uint64
	ch chan Signal
}

// Broadcaster fans signals out to subscribers. Sends never block: a
// subscriber that cannot keep up loses signals and is caught by the poll
// backstop.
type Broadcaster struct {
	mu      sync.RWMutex
	nextID  uint64
	subs    map[uint64]*subscriber
	bufSize int

	dropped atomic.Uint64
}

type subscriber struct {
	ch     chan Signal
	topics map[Topic]struct{} // empty means all topics
}

func NewBroadcaster(bufSize int) *Broadcaster {
	if bufSize <= 0 {
		bufSize = 16
	}
	return &Broadcaster{
		subs:    make(map[uint64]*subscriber),
		bufSize: bufSize,
	}
}

// Subscribe registers a consumer for the given topics; no topics means all.
func (b *Broadcaster) Subscribe(topics ...Topic) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Signal, b.bufSize)
	sub := &subscriber{ch: ch, topics: make(map[Topic]struct{}, len(topics))}
	for _, t := range topics {
		sub.topics[t] = struct{}{}
	}

	b.nextID++
	id := b.nextID
	b.subs[id] = sub
	return &Subscription{C: ch, id: id, ch: ch}
}

// Unsubscribe removes the subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[s.id]; !ok {
		return
	}
	delete(b.subs, s.id)
	close(s.ch)
}

// Publish fans a signal out to matching subscribers without blocking.
func (b *Broadcaster) Publish(sig Signal) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if len(sub.topics) > 0 {
			if _, ok := sub.topics[sig.Topic]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- sig:
		default:
			b.dropped.Add(1)
			logger.Debug("refresh signal dropped, poll will recover",
				zap.String("topic", string(sig.Topic)),
				zap.String("period_id", sig.PeriodID))
		}
	}
}

// SubscriberCount reports the current number of subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped reports how many signals were lost to slow subscribers.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}
