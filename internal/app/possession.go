package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/matchtrack/internal/adapters/mq/broadcast"
	"github.com/okian/matchtrack/internal/domain/connectivity"
	"github.com/okian/matchtrack/internal/domain/inference"
	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/pkg/logger"
	"github.com/okian/matchtrack/pkg/metrics"
)

// Notice codes raised by possession sessions.
const (
	noticePublishFailed  = "publish_failed"
	noticeInferredFailed = "inferred_write_failed"
)

// EventWriter persists event rows.
type EventWriter interface {
	InsertEvents(ctx context.Context, events []model.PersistedEvent) (int, error)
}

// PossessionResult is the outcome of one possession update.
type PossessionResult struct {
	Event    model.PossessionEvent  `json:"event"`
	Inferred *model.PersistedEvent  `json:"inferred,omitempty"`
	Previous *model.PossessionEvent `json:"previous,omitempty"`
}

// PossessionSession is the capture lifecycle of a ball tracker.
type PossessionSession struct {
	matchID   string
	trackerID string

	channel broadcast.Channel
	writer  EventWriter
	engine  *inference.Engine
	monitor *connectivity.Monitor
	notices *NoticeBoard
	now     func() time.Time
	logger  logger.Logger

	processing atomic.Bool

	mu      sync.RWMutex
	players map[string]model.Player
	last    *model.PossessionEvent
}

func newPossessionSession(matchID, trackerID string, deps sessionDeps, players []model.Player) *PossessionSession {
	s := &PossessionSession{
		matchID:   matchID,
		trackerID: trackerID,
		channel:   deps.channel,
		writer:    deps.writer,
		engine:    deps.engine,
		monitor:   deps.monitor,
		notices:   deps.notices,
		now:       deps.now,
		logger: deps.logger.Named("possession").With(
			logger.String("match", matchID),
			logger.String("tracker", trackerID),
		),
	}
	s.setPlayers(players)
	return s
}

func (s *PossessionSession) setPlayers(players []model.Player) {
	byID := make(map[string]model.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}
	s.mu.Lock()
	s.players = byID
	s.mu.Unlock()
}

// UpdatePossession announces that playerID now controls the ball. The
// announcement is published first; only a published announcement becomes
// the reference for inference.
func (s *PossessionSession) UpdatePossession(ctx context.Context, playerID string) (PossessionResult, error) {
	if err := s.monitor.Require(); err != nil {
		return PossessionResult{}, err
	}

	s.mu.RLock()
	player, ok := s.players[playerID]
	s.mu.RUnlock()
	if !ok {
		return PossessionResult{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}

	if !s.processing.CompareAndSwap(false, true) {
		return PossessionResult{}, ErrBusy
	}
	defer s.processing.Store(false)

	ev := model.PossessionEvent{
		MatchID:   s.matchID,
		PlayerID:  player.ID,
		Team:      player.Team,
		Timestamp: s.now().UnixMilli(),
		TrackerID: s.trackerID,
	}

	if err := s.channel.Publish(ctx, ev); err != nil {
		metrics.RecordErrorByComponent("possession", "publish")
		s.logger.Error(ctx, "publishing possession failed", logger.Error(err))
		s.notify(ctx, model.NoticeError, noticePublishFailed, "Possession update was not sent. Try again.", true)
		return PossessionResult{}, fmt.Errorf("%w: %w", ErrPublish, err)
	}

	s.mu.Lock()
	prev := s.last
	s.last = &ev
	s.mu.Unlock()

	res := PossessionResult{Event: ev, Previous: prev}
	inferred := s.engine.Infer(prev, ev)
	if inferred == nil {
		return res, nil
	}

	metrics.RecordInferredEvent(inferred.Type)
	row := inferred.ToPersisted(s.matchID, s.trackerID)
	if _, err := s.writer.InsertEvents(ctx, []model.PersistedEvent{row}); err != nil {
		metrics.RecordInferredWriteFailure()
		metrics.RecordErrorByComponent("possession", "inferred_write")
		s.logger.Error(ctx, "persisting inferred event failed",
			logger.String("event_type", inferred.Type),
			logger.Int64("timestamp", inferred.Timestamp),
			logger.Error(err),
		)
		s.notify(ctx, model.NoticeError, noticeInferredFailed,
			fmt.Sprintf("Automatic %s could not be saved.", inferred.Type), false)
		return res, nil
	}
	res.Inferred = &row
	return res, nil
}

// LastHolder returns the last published announcement.
func (s *PossessionSession) LastHolder() *model.PossessionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	ev := *s.last
	return &ev
}

func (s *PossessionSession) notify(ctx context.Context, level model.NoticeLevel, code, msg string, retryable bool) {
	s.notices.Notify(ctx, model.Notice{Level: level, Code: code, Message: msg, Retryable: retryable, At: s.now()})
}
