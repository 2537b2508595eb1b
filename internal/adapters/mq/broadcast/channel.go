// Package broadcast carries possession announcements on match-scoped topics.
//
// Delivery is best-effort and at-most-once per subscriber. There is no
// replay: a subscriber sees only announcements published after it joined.
// A subscriber that falls behind loses announcements rather than slowing
// the publisher.
package broadcast

import (
	"context"
	"sync"

	"github.com/okian/matchtrack/internal/domain/model"
)

// DefaultBuffer is the per-subscriber delivery buffer.
const DefaultBuffer = 256

// Channel is a match-scoped publish/subscribe topic.
type Channel interface {
	Publish(ctx context.Context, ev model.PossessionEvent) error
	Subscribe(ctx context.Context, matchID string) (*Subscription, error)
	Ping(ctx context.Context) error
	Close() error
}

// Subscription receives announcements for one match until closed.
type Subscription struct {
	matchID string
	ch      <-chan model.PossessionEvent
	once    sync.Once
	closeFn func()
}

func newSubscription(matchID string, ch <-chan model.PossessionEvent, closeFn func()) *Subscription {
	return &Subscription{matchID: matchID, ch: ch, closeFn: closeFn}
}

// MatchID returns the subscribed match.
func (s *Subscription) MatchID() string { return s.matchID }

// C delivers announcements. It is closed after Close or when the channel
// shuts down.
func (s *Subscription) C() <-chan model.PossessionEvent { return s.ch }

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(s.closeFn)
	return nil
}
