package main

import (
	"context"
	"fmt"

	"github.com/okian/matchtrack/internal/adapters/mq/broadcast"
	"github.com/okian/matchtrack/internal/adapters/repository"
	"github.com/okian/matchtrack/internal/config"
	"github.com/okian/matchtrack/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// drivers holds the configured transport and store plus what must be
// closed on exit.
type drivers struct {
	store   repository.Store
	channel broadcast.Channel
	closers []func() error
}

// openDrivers builds the broadcast channel and the match store named by
// cfg.
func openDrivers(ctx context.Context, cfg *config.Config) (*drivers, error) {
	d := &drivers{}

	switch cfg.BroadcastDriver {
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ch := broadcast.NewRedisChannel(client,
			broadcast.WithBuffer(cfg.SubscriberBuffer),
			broadcast.WithLogger(logger.Get().Named("redis")),
		)
		d.channel = ch
		d.closers = append(d.closers, ch.Close, client.Close)
	case config.DriverMemory:
		d.channel = broadcast.NewHub(broadcast.WithBuffer(cfg.SubscriberBuffer))
		d.closers = append(d.closers, d.channel.Close)
	default:
		return nil, fmt.Errorf("%w: %w: broadcast_driver %q", config.ErrInvalidConfig, config.ErrUnknownDriver, cfg.BroadcastDriver)
	}

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		store, err := repository.OpenPostgres(ctx, cfg.PostgresDSN, repository.WithMigrate(true))
		if err != nil {
			d.Close(logger.Get())
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		d.store = store
		d.closers = append(d.closers, store.Close)
	case config.DriverMemory:
		d.store = repository.NewMemoryStore()
	default:
		d.Close(logger.Get())
		return nil, fmt.Errorf("%w: %w: store_driver %q", config.ErrInvalidConfig, config.ErrUnknownDriver, cfg.StoreDriver)
	}
	return d, nil
}

// Close releases drivers in reverse order of opening.
func (d *drivers) Close(log logger.Logger) {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			log.Warn(context.Background(), "closing driver", logger.Error(err))
		}
	}
	d.closers = nil
}
