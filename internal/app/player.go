package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/matchtrack/internal/adapters/mq/broadcast"
	"github.com/okian/matchtrack/internal/domain/commit"
	"github.com/okian/matchtrack/internal/domain/connectivity"
	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/internal/domain/pending"
	"github.com/okian/matchtrack/internal/domain/roster"
	"github.com/okian/matchtrack/pkg/logger"
	"github.com/okian/matchtrack/pkg/metrics"
)

const (
	noticeExpired      = "pending_expired"
	noticeIntegrity    = "data_integrity"
	sessionStopTimeout = 5 * time.Second
)

// assignmentUpdate is a command for the session loop.
type assignmentUpdate struct {
	assignment model.Assignment
	players    []model.Player
	applied    chan struct{}
}

// PlayerSession classifies the actions of a tracker's assigned players.
// Roster and assignment state is owned by the Run loop; other goroutines
// only read published snapshots.
type PlayerSession struct {
	matchID   string
	trackerID string

	sub       *broadcast.Subscription
	queue     *pending.Queue
	scheduler *pending.Scheduler
	pipeline  *commit.Pipeline
	monitor   *connectivity.Monitor
	notices   *NoticeBoard
	resolver  *roster.Resolver
	now       func() time.Time
	logger    logger.Logger

	assignment atomic.Pointer[model.Assignment]
	roster     atomic.Pointer[roster.Roster]

	updates  chan assignmentUpdate
	shutdown chan struct{}
	done     chan struct{}
}

func newPlayerSession(matchID, trackerID string, deps sessionDeps, sub *broadcast.Subscription, q *pending.Queue, sched *pending.Scheduler) *PlayerSession {
	s := &PlayerSession{
		matchID:   matchID,
		trackerID: trackerID,
		sub:       sub,
		queue:     q,
		scheduler: sched,
		monitor:   deps.monitor,
		notices:   deps.notices,
		resolver:  deps.resolver,
		now:       deps.now,
		logger: deps.logger.Named("player-session").With(
			logger.String("match", matchID),
			logger.String("tracker", trackerID),
		),
		updates:  make(chan assignmentUpdate),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.assignment.Store(&model.Assignment{TrackerID: trackerID, MatchID: matchID})
	s.roster.Store(roster.Empty())
	s.pipeline = commit.New(matchID, trackerID, q, deps.writer, deps.monitor,
		commit.WithNotifier(deps.notices),
		commit.WithLabelPolicy(s.permits),
		commit.WithClock(deps.now),
		commit.WithLogger(deps.logger.Named("commit")),
	)
	return s
}

// permits checks labels against the current assignment.
func (s *PlayerSession) permits(label string) bool {
	return s.assignment.Load().Permits(label)
}

// Run consumes broadcasts and assignment updates until ctx is canceled or
// the session is shut down.
func (s *PlayerSession) Run(ctx context.Context) {
	defer close(s.done)

	announcements := s.sub.C()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case ev, ok := <-announcements:
			if !ok {
				s.logger.Warn(ctx, "broadcast subscription ended")
				announcements = nil
				continue
			}
			s.handle(ctx, ev)
		case u := <-s.updates:
			s.apply(ctx, u.assignment, u.players)
			close(u.applied)
		}
	}
}

// handle enqueues an announcement for an in-roster player. The roster
// copy of the player is embedded, not the broadcast fields.
func (s *PlayerSession) handle(ctx context.Context, ev model.PossessionEvent) {
	if ev.MatchID != s.matchID {
		return
	}
	player, ok := s.roster.Load().Player(ev.PlayerID)
	if !ok {
		return
	}
	pe, outcome := s.queue.Offer(ctx, player, ev.Timestamp)
	if outcome == pending.Enqueued {
		s.logger.Debug(ctx, "pending event enqueued",
			logger.String("pending_id", pe.ID),
			logger.String("player", player.ID),
		)
	}
}

func (s *PlayerSession) apply(ctx context.Context, a model.Assignment, players []model.Player) {
	s.assignment.Store(&a)
	s.roster.Store(s.resolver.Resolve(ctx, s.trackerID, a, players))
}

// UpdateAssignment hands a new assignment and match roster to the loop
// and waits until it is applied.
func (s *PlayerSession) UpdateAssignment(ctx context.Context, a model.Assignment, players []model.Player) error {
	u := assignmentUpdate{assignment: a, players: players, applied: make(chan struct{})}
	select {
	case s.updates <- u:
	case <-s.done:
		return ErrNotJoined
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-u.applied:
		return nil
	case <-s.done:
		return ErrNotJoined
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the queue in display order.
func (s *PlayerSession) Pending() []model.PendingEvent { return s.queue.List() }

// CommitOne classifies one pending event.
func (s *PlayerSession) CommitOne(ctx context.Context, pendingID, label string, extra map[string]any) (model.PersistedEvent, error) {
	return s.pipeline.CommitOne(ctx, pendingID, label, extra)
}

// CommitAll classifies every pending event with one label.
func (s *PlayerSession) CommitAll(ctx context.Context, label string) (int, error) {
	return s.pipeline.CommitAll(ctx, label)
}

// DiscardOne drops a pending event. Discarding works offline.
func (s *PlayerSession) DiscardOne(_ context.Context, pendingID string) error {
	if err := s.queue.Discard(pendingID); err != nil {
		if errors.Is(err, pending.ErrNotFound) {
			return fmt.Errorf("%w: %s", commit.ErrNotFound, pendingID)
		}
		return err
	}
	return nil
}

// DiscardAll drops every pending event.
func (s *PlayerSession) DiscardAll(context.Context) int { return s.queue.DiscardAll() }

// Roster returns the tracker's resolved players.
func (s *PlayerSession) Roster() *roster.Roster { return s.roster.Load() }

// Assignment returns the current assignment.
func (s *PlayerSession) Assignment() model.Assignment { return *s.assignment.Load() }

// expired is the queue's expiry hook.
func (s *PlayerSession) expired(ctx context.Context, dropped []model.PendingEvent) {
	s.notices.Notify(ctx, model.Notice{
		Level:   model.NoticeWarning,
		Code:    noticeExpired,
		Message: fmt.Sprintf("%d pending event(s) expired without a classification", len(dropped)),
		At:      s.now(),
	})
}

// close stops the loop, then the ticks, then the subscription.
func (s *PlayerSession) close(ctx context.Context) {
	select {
	case <-s.shutdown:
	default:
		close(s.shutdown)
	}

	timer := time.NewTimer(sessionStopTimeout)
	defer timer.Stop()
	select {
	case <-s.done:
	case <-timer.C:
		s.logger.Warn(ctx, "session loop did not stop in time")
	}

	s.scheduler.Stop()
	if err := s.sub.Close(); err != nil {
		s.logger.Warn(ctx, "closing subscription", logger.Error(err))
	}
	metrics.DeletePendingSize(s.trackerID)
}
