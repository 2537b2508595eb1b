// Package inference derives semantic events from consecutive possession
// announcements.
package inference

import (
	"time"

	"github.com/okian/matchtrack/internal/domain/model"
)

// DefaultDribbleThreshold is the minimum same-player hold that counts as a dribble.
const DefaultDribbleThreshold = 2 * time.Second

// InferredEvent is an event derived from a possession transition.
type InferredEvent struct {
	Type     string
	PlayerID string
	Team     model.TeamSide
	// FromPlayerID and ToPlayerID are set for passes and interceptions.
	FromPlayerID string
	ToPlayerID   string
	Timestamp    int64
	Elapsed      time.Duration
}

// ToPersisted builds the store row. Inferred rows are written by the
// possession tracker and never pass through a pending queue.
func (e InferredEvent) ToPersisted(matchID, trackerID string) model.PersistedEvent {
	return model.PersistedEvent{
		MatchID:   matchID,
		EventType: e.Type,
		PlayerID:  e.PlayerID,
		Team:      e.Team,
		Timestamp: e.Timestamp,
		TrackerID: trackerID,
		Details: model.Details{
			Inferred:   true,
			FromPlayer: e.FromPlayerID,
			ToPlayer:   e.ToPlayerID,
		},
	}
}

// Engine evaluates the inference rules.
type Engine struct {
	dribbleThreshold time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithDribbleThreshold overrides the dribble hold threshold.
func WithDribbleThreshold(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.dribbleThreshold = d
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{dribbleThreshold: DefaultDribbleThreshold}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultEngine = NewEngine() //nolint:gochecknoglobals // stateless

// Infer applies the default engine.
func Infer(prev *model.PossessionEvent, curr model.PossessionEvent) *InferredEvent {
	return defaultEngine.Infer(prev, curr)
}

// Infer classifies the transition from prev to curr. Rules, in order:
//  1. same player held for at least the threshold: dribble
//  2. same player within the threshold: nothing
//  3. different player, same team: pass from prev to curr
//  4. different player, other team: interception by curr
//
// A nil prev yields nothing. Infer never fails.
func (e *Engine) Infer(prev *model.PossessionEvent, curr model.PossessionEvent) *InferredEvent {
	if prev == nil {
		return nil
	}
	elapsed := time.Duration(curr.Timestamp-prev.Timestamp) * time.Millisecond

	if prev.PlayerID == curr.PlayerID {
		if elapsed < e.dribbleThreshold {
			return nil
		}
		return &InferredEvent{
			Type:      model.EventDribble,
			PlayerID:  curr.PlayerID,
			Team:      curr.Team,
			Timestamp: curr.Timestamp,
			Elapsed:   elapsed,
		}
	}

	if prev.Team == curr.Team {
		return &InferredEvent{
			Type:         model.EventPass,
			PlayerID:     prev.PlayerID,
			Team:         prev.Team,
			FromPlayerID: prev.PlayerID,
			ToPlayerID:   curr.PlayerID,
			Timestamp:    curr.Timestamp,
			Elapsed:      elapsed,
		}
	}

	return &InferredEvent{
		Type:         model.EventInterception,
		PlayerID:     curr.PlayerID,
		Team:         curr.Team,
		FromPlayerID: prev.PlayerID,
		ToPlayerID:   curr.PlayerID,
		Timestamp:    curr.Timestamp,
		Elapsed:      elapsed,
	}
}
