package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/pkg/logger"
	"github.com/okian/matchtrack/pkg/metrics"
)

// Topic returns the Redis channel name of a match.
func Topic(matchID string) string {
	return fmt.Sprintf("matchtrack:match:%s:possession", matchID)
}

// RedisChannel is a Channel on Redis Pub/Sub. The client is owned by the
// caller and is not closed by Close.
type RedisChannel struct {
	client redis.UniversalClient
	buffer int
	logger logger.Logger

	mu     sync.Mutex
	subs   map[*redis.PubSub]struct{}
	closed bool
}

// NewRedisChannel creates a channel over client.
func NewRedisChannel(client redis.UniversalClient, opts ...Option) *RedisChannel {
	s := newSettings("broadcast-redis", opts)
	return &RedisChannel{
		client: client,
		buffer: s.buffer,
		logger: s.logger,
		subs:   make(map[*redis.PubSub]struct{}),
	}
}

// Publish encodes ev and publishes it on the match topic.
func (c *RedisChannel) Publish(ctx context.Context, ev model.PossessionEvent) error {
	if c.isClosed() {
		return ErrClosed
	}
	data, err := Encode(ev)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	if err := c.client.Publish(ctx, Topic(ev.MatchID), data).Err(); err != nil {
		metrics.RecordErrorByComponent("broadcast", "publish")
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	metrics.RecordBroadcastPublished()
	return nil
}

// Subscribe opens a Pub/Sub subscription on the match topic. Payloads are
// decoded here; malformed ones are counted and dropped.
func (c *RedisChannel) Subscribe(ctx context.Context, matchID string) (*Subscription, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.mu.Unlock()

	ps := c.client.Subscribe(ctx, Topic(matchID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", matchID, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = ps.Close()
		return nil, ErrClosed
	}
	c.subs[ps] = struct{}{}
	c.mu.Unlock()
	metrics.AddBroadcastSubscriptions(1)

	out := make(chan model.PossessionEvent, c.buffer)
	go c.pump(matchID, ps, out)

	return newSubscription(matchID, out, func() { c.release(ps) }), nil
}

// pump ends when the PubSub is closed, which closes its message channel.
func (c *RedisChannel) pump(matchID string, ps *redis.PubSub, out chan<- model.PossessionEvent) {
	defer close(out)
	ctx := context.Background()
	for msg := range ps.Channel() {
		ev, err := Decode([]byte(msg.Payload))
		if err != nil {
			metrics.RecordBroadcastDecodeError()
			c.logger.Warn(ctx, "dropping malformed announcement",
				logger.String("topic", msg.Channel),
				logger.Error(err),
			)
			continue
		}
		if ev.MatchID != matchID {
			metrics.RecordBroadcastDropped("wrong_match")
			continue
		}
		select {
		case out <- ev:
			metrics.RecordBroadcastDelivered()
		default:
			metrics.RecordBroadcastDropped("buffer_full")
		}
	}
}

func (c *RedisChannel) release(ps *redis.PubSub) {
	c.mu.Lock()
	_, ok := c.subs[ps]
	delete(c.subs, ps)
	c.mu.Unlock()
	if !ok {
		return
	}
	if err := ps.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		c.logger.Warn(context.Background(), "closing subscription", logger.Error(err))
	}
	metrics.AddBroadcastSubscriptions(-1)
}

// Ping checks the Redis connection.
func (c *RedisChannel) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close ends every subscription opened through this channel.
func (c *RedisChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	subs := make([]*redis.PubSub, 0, len(c.subs))
	for ps := range c.subs {
		subs = append(subs, ps)
	}
	c.mu.Unlock()

	for _, ps := range subs {
		c.release(ps)
	}
	return nil
}

func (c *RedisChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

var _ Channel = (*RedisChannel)(nil)
