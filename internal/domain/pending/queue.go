// Package pending holds a tracker's time-ordered classification obligations.
//
// A Queue is owned by one tracker. Items are kept sorted by their original
// capture timestamp; enumeration for display orders them by priority band.
package pending

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/okian/matchtrack/internal/domain/dedupe"
	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/pkg/logger"
	"github.com/okian/matchtrack/pkg/metrics"
)

// PendingEvent is the item type held by a Queue.
type PendingEvent = model.PendingEvent

// Default queue configuration constants.
const (
	DefaultDebounce       = 500 * time.Millisecond
	defaultResolvedMemory = 4096
)

// Outcome reports what Offer did with an announcement.
type Outcome string

// Offer outcomes.
const (
	Enqueued  Outcome = "enqueued"
	Duplicate Outcome = "duplicate"
	Debounced Outcome = "debounced"
)

// Queue is a per-tracker buffer of pending events. It is safe for
// concurrent use.
type Queue struct {
	trackerID string

	mu         sync.Mutex
	items      []PendingEvent // ascending by Timestamp
	lastInsert time.Time

	// resolved remembers every id ever accepted so a late duplicate
	// broadcast cannot revive a committed, discarded or expired item.
	resolved dedupe.Deduper

	now      func() time.Time
	debounce time.Duration
	expiry   time.Duration
	onExpire func(ctx context.Context, dropped []PendingEvent)

	logger logger.Logger
}

// NewQueue creates a queue for trackerID.
func NewQueue(trackerID string, opts ...Option) *Queue {
	q := &Queue{
		trackerID: trackerID,
		now:       time.Now,
		debounce:  DefaultDebounce,
		expiry:    model.DefaultExpiry,
		logger:    logger.Get().Named("pending"),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.resolved == nil {
		q.resolved = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(defaultResolvedMemory))
	}
	q.logger = q.logger.With(logger.String("tracker", trackerID))
	return q
}

// TrackerID returns the owning tracker.
func (q *Queue) TrackerID() string { return q.trackerID }

// Offer builds a pending event for player captured at ts and appends it
// unless it is a duplicate or falls inside the debounce window.
func (q *Queue) Offer(ctx context.Context, player model.Player, ts int64) (PendingEvent, Outcome) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	pe := model.NewPendingEvent(q.trackerID, player, ts, now)

	outcome := q.admit(ctx, pe, now)
	metrics.RecordPendingOffered(string(outcome))
	if outcome != Enqueued {
		q.logger.Debug(ctx, "pending offer absorbed",
			logger.String("pending_id", pe.ID),
			logger.String("outcome", string(outcome)),
		)
		return pe, outcome
	}

	q.insert(pe)
	q.lastInsert = now
	metrics.UpdatePendingSize(q.trackerID, len(q.items))
	return pe, Enqueued
}

func (q *Queue) admit(ctx context.Context, pe PendingEvent, now time.Time) Outcome {
	if q.indexOf(pe.ID) >= 0 {
		return Duplicate
	}
	if q.debounce > 0 && !q.lastInsert.IsZero() && now.Sub(q.lastInsert) < q.debounce {
		return Debounced
	}
	if q.resolved.SeenAndRecord(ctx, pe.ID) {
		return Duplicate
	}
	return Enqueued
}

// Get returns the item with id, aged against the current clock.
func (q *Queue) Get(id string) (PendingEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.indexOf(id)
	if i < 0 {
		return PendingEvent{}, false
	}
	pe := q.items[i]
	pe.Touch(q.now())
	return pe, true
}

// Take removes and returns the item with id.
func (q *Queue) Take(id string) (PendingEvent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := q.indexOf(id)
	if i < 0 {
		return PendingEvent{}, ErrNotFound
	}
	pe := q.items[i]
	q.items = slices.Delete(q.items, i, i+1)
	metrics.UpdatePendingSize(q.trackerID, len(q.items))
	return pe, nil
}

// TakeAll removes and returns every item in timestamp order.
func (q *Queue) TakeAll() []PendingEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	metrics.UpdatePendingSize(q.trackerID, 0)
	return out
}

// Restore reinserts items removed by Take or TakeAll. Dedupe and debounce
// do not apply; items already present are skipped.
func (q *Queue) Restore(items ...PendingEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	for _, pe := range items {
		if q.indexOf(pe.ID) >= 0 {
			continue
		}
		pe.Touch(now)
		q.insert(pe)
	}
	metrics.UpdatePendingSize(q.trackerID, len(q.items))
}

// Discard drops one item without persisting it.
func (q *Queue) Discard(id string) error {
	_, err := q.Take(id)
	return err
}

// DiscardAll drops every item and returns how many were dropped.
func (q *Queue) DiscardAll() int {
	return len(q.TakeAll())
}

// List returns a snapshot ordered for display: band old, normal, urgent,
// oldest capture first within a band.
func (q *Queue) List() []PendingEvent {
	q.mu.Lock()
	now := q.now()
	out := make([]PendingEvent, len(q.items))
	for i := range q.items {
		q.items[i].Touch(now)
		out[i] = q.items[i]
	}
	q.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// Len returns the number of held items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Refresh recomputes age and priority of every item.
func (q *Queue) Refresh() {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	for i := range q.items {
		q.items[i].Touch(now)
	}
}

// Sweep drops items aged at or beyond the expiry and returns how many
// were dropped.
func (q *Queue) Sweep(ctx context.Context) int {
	q.mu.Lock()
	now := q.now()
	var dropped []PendingEvent
	kept := q.items[:0]
	for _, pe := range q.items {
		pe.Touch(now)
		if pe.Age >= q.expiry {
			dropped = append(dropped, pe)
			continue
		}
		kept = append(kept, pe)
	}
	clear(q.items[len(kept):])
	q.items = kept
	size := len(q.items)
	hook := q.onExpire
	q.mu.Unlock()

	if len(dropped) == 0 {
		return 0
	}
	metrics.RecordPendingExpired(len(dropped))
	metrics.UpdatePendingSize(q.trackerID, size)
	q.logger.Warn(ctx, "pending events expired", logger.Int("dropped", len(dropped)))
	if hook != nil {
		hook(ctx, dropped)
	}
	return len(dropped)
}

func (q *Queue) indexOf(id string) int {
	for i := range q.items {
		if q.items[i].ID == id {
			return i
		}
	}
	return -1
}

// insert keeps items sorted by capture time; equal timestamps keep
// insertion order.
func (q *Queue) insert(pe PendingEvent) {
	i := sort.Search(len(q.items), func(i int) bool {
		return q.items[i].Timestamp > pe.Timestamp
	})
	q.items = slices.Insert(q.items, i, pe)
}
