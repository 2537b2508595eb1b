// Package commit persists classified pending events with optimistic
// removal and rollback.
//
// Items leave the queue before the write. A failed write puts every
// removed item back at its original capture position. A bulk write is
// all-or-nothing from the tracker's point of view.
package commit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/matchtrack/internal/domain/connectivity"
	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/internal/domain/pending"
	"github.com/okian/matchtrack/pkg/logger"
	"github.com/okian/matchtrack/pkg/metrics"
)

// Commit modes used in metrics.
const (
	modeOne  = "one"
	modeBulk = "bulk"
)

// Notice codes emitted by the pipeline.
const (
	NoticeCommitted    = "commit_ok"
	NoticeCommitFailed = "commit_failed"
	NoticeOffline      = "offline"
)

// Store persists event rows and reports how many were written.
type Store interface {
	InsertEvents(ctx context.Context, events []model.PersistedEvent) (int, error)
}

// Gate reports whether writes are currently allowed.
type Gate interface {
	Require() error
}

// Notifier surfaces user-facing notices.
type Notifier interface {
	Notify(ctx context.Context, n model.Notice)
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, model.Notice) {}

// Pipeline commits the pending events of one tracker.
type Pipeline struct {
	matchID   string
	trackerID string
	queue     *pending.Queue
	store     Store
	gate      Gate

	notifier Notifier
	permits  func(label string) bool
	now      func() time.Time
	logger   logger.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	bulk     bool
}

// New creates a pipeline over queue.
func New(matchID, trackerID string, queue *pending.Queue, store Store, gate Gate, opts ...Option) *Pipeline {
	p := &Pipeline{
		matchID:   matchID,
		trackerID: trackerID,
		queue:     queue,
		store:     store,
		gate:      gate,
		notifier:  discardNotifier{},
		permits:   model.Assignment{}.Permits,
		now:       time.Now,
		logger:    logger.Get().Named("commit"),
		inFlight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.String("match", matchID), logger.String("tracker", trackerID))
	return p
}

// CommitOne classifies one pending event as label and persists it.
func (p *Pipeline) CommitOne(ctx context.Context, pendingID, label string, extra map[string]any) (model.PersistedEvent, error) {
	if err := p.precheck(ctx, label); err != nil {
		return model.PersistedEvent{}, err
	}
	if !p.acquire(pendingID) {
		metrics.RecordCommit(modeOne, "in_flight")
		return model.PersistedEvent{}, ErrInFlight
	}
	defer p.release(pendingID)

	pe, err := p.queue.Take(pendingID)
	if err != nil {
		metrics.RecordCommit(modeOne, "not_found")
		return model.PersistedEvent{}, fmt.Errorf("%w: %s", ErrNotFound, pendingID)
	}

	row := p.row(pe, label, extra)
	if err := p.persist(ctx, []model.PersistedEvent{row}); err != nil {
		p.queue.Restore(pe)
		p.failed(ctx, modeOne, err, 1)
		return model.PersistedEvent{}, err
	}

	metrics.RecordCommit(modeOne, "success")
	p.notify(ctx, model.NoticeInfo, NoticeCommitted,
		fmt.Sprintf("%s recorded for #%d %s", label, pe.Player.Number, pe.Player.Name), false)
	return row, nil
}

// CommitAll classifies every pending event as label in one write.
// It returns the number of committed events.
func (p *Pipeline) CommitAll(ctx context.Context, label string) (int, error) {
	if err := p.precheck(ctx, label); err != nil {
		return 0, err
	}

	p.mu.Lock()
	if p.bulk {
		p.mu.Unlock()
		metrics.RecordCommit(modeBulk, "in_flight")
		return 0, ErrInFlight
	}
	p.bulk = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.bulk = false
		p.mu.Unlock()
	}()

	items := p.queue.TakeAll()
	if len(items) == 0 {
		return 0, nil
	}

	rows := make([]model.PersistedEvent, len(items))
	for i, pe := range items {
		rows[i] = p.row(pe, label, nil)
	}
	if err := p.persist(ctx, rows); err != nil {
		p.queue.Restore(items...)
		p.failed(ctx, modeBulk, err, len(items))
		return 0, err
	}

	metrics.RecordCommit(modeBulk, "success")
	p.notify(ctx, model.NoticeInfo, NoticeCommitted,
		fmt.Sprintf("%d events recorded as %s", len(items), label), false)
	return len(items), nil
}

// InFlight reports whether a commit for pendingID is running.
func (p *Pipeline) InFlight(pendingID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inFlight[pendingID]
	return ok
}

func (p *Pipeline) precheck(ctx context.Context, label string) error {
	if err := p.gate.Require(); err != nil {
		metrics.RecordCommit("rejected", "offline")
		p.notify(ctx, model.NoticeError, NoticeOffline, "You are offline. Reconnect before recording events.", true)
		return err
	}
	if !p.permits(label) {
		return fmt.Errorf("%w: %q", ErrLabelNotPermitted, label)
	}
	return nil
}

func (p *Pipeline) acquire(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inFlight[id]; busy {
		return false
	}
	p.inFlight[id] = struct{}{}
	return true
}

func (p *Pipeline) release(id string) {
	p.mu.Lock()
	delete(p.inFlight, id)
	p.mu.Unlock()
}

// row stamps the event with its capture time, not the commit time.
func (p *Pipeline) row(pe model.PendingEvent, label string, extra map[string]any) model.PersistedEvent {
	return model.PersistedEvent{
		MatchID:   p.matchID,
		EventType: label,
		PlayerID:  pe.Player.ID,
		Team:      pe.Player.Team,
		Timestamp: pe.Timestamp,
		TrackerID: p.trackerID,
		Details: model.Details{
			PendingID: pe.ID,
			Extra:     extra,
		},
	}
}

func (p *Pipeline) persist(ctx context.Context, rows []model.PersistedEvent) error {
	start := time.Now()
	n, err := p.store.InsertEvents(ctx, rows)
	metrics.RecordCommitLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if n < len(rows) {
		return fmt.Errorf("%w: %w (%d of %d)", ErrPersist, ErrPartialWrite, n, len(rows))
	}
	return nil
}

func (p *Pipeline) failed(ctx context.Context, mode string, err error, restored int) {
	metrics.RecordCommit(mode, "rolled_back")
	metrics.RecordRollback(mode)
	reason := "store_error"
	if errors.Is(err, ErrPartialWrite) {
		reason = "partial_write"
	}
	metrics.RecordErrorByComponent("commit", reason)
	p.logger.Error(ctx, "commit failed, pending events restored",
		logger.String("mode", mode),
		logger.Int("restored", restored),
		logger.Error(err),
	)
	p.notify(ctx, model.NoticeError, NoticeCommitFailed,
		fmt.Sprintf("Could not save %d event(s). They are back in your queue; try again.", restored), true)
}

func (p *Pipeline) notify(ctx context.Context, level model.NoticeLevel, code, msg string, retryable bool) {
	p.notifier.Notify(ctx, model.Notice{
		Level:     level,
		Code:      code,
		Message:   msg,
		Retryable: retryable,
		At:        p.now(),
	})
}

var _ Gate = (*connectivity.Monitor)(nil)
