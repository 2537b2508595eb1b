package broadcast

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/pkg/logger"
	"github.com/okian/matchtrack/pkg/metrics"
)

// Hub is an in-process Channel.
type Hub struct {
	buffer int
	logger logger.Logger

	mu     sync.RWMutex
	topics map[string]map[uint64]chan model.PossessionEvent
	nextID uint64
	closed bool
}

// NewHub creates an in-process hub.
func NewHub(opts ...Option) *Hub {
	s := newSettings("broadcast-hub", opts)
	return &Hub{
		buffer: s.buffer,
		logger: s.logger,
		topics: make(map[string]map[uint64]chan model.PossessionEvent),
	}
}

// Publish delivers ev to every current subscriber of its match without
// blocking; full subscriber buffers drop the announcement.
func (h *Hub) Publish(ctx context.Context, ev model.PossessionEvent) error {
	if err := Validate(ev); err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrClosed
	}
	metrics.RecordBroadcastPublished()

	for _, ch := range h.topics[ev.MatchID] {
		select {
		case ch <- ev:
			metrics.RecordBroadcastDelivered()
		default:
			metrics.RecordBroadcastDropped("buffer_full")
			h.logger.Warn(ctx, "subscriber buffer full, announcement dropped",
				logger.String("match", ev.MatchID),
				logger.Int64("timestamp", ev.Timestamp),
			)
		}
	}
	return nil
}

// Subscribe opens a subscription on matchID.
func (h *Hub) Subscribe(_ context.Context, matchID string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	id := h.nextID
	h.nextID++
	ch := make(chan model.PossessionEvent, h.buffer)
	subs, ok := h.topics[matchID]
	if !ok {
		subs = make(map[uint64]chan model.PossessionEvent)
		h.topics[matchID] = subs
	}
	subs[id] = ch
	metrics.AddBroadcastSubscriptions(1)

	return newSubscription(matchID, ch, func() { h.unsubscribe(matchID, id) }), nil
}

func (h *Hub) unsubscribe(matchID string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.topics[matchID]
	ch, ok := subs[id]
	if !ok {
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(h.topics, matchID)
	}
	close(ch)
	metrics.AddBroadcastSubscriptions(-1)
}

// Subscribers returns the open subscriptions on matchID.
func (h *Hub) Subscribers(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[matchID])
}

// Ping reports whether the hub accepts traffic.
func (h *Hub) Ping(context.Context) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrClosed
	}
	return nil
}

// Close ends every subscription. Later calls are no-ops.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for matchID, subs := range h.topics {
		for id, ch := range subs {
			close(ch)
			delete(subs, id)
			metrics.AddBroadcastSubscriptions(-1)
		}
		delete(h.topics, matchID)
	}
	return nil
}

var _ Channel = (*Hub)(nil)
