//go:build integration

package broadcast_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/matchtrack/internal/adapters/mq/broadcast"
	. "github.com/smartystreets/goconvey/convey"
)

func redisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("MATCHTRACK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MATCHTRACK_TEST_REDIS_ADDR not set")
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}

func TestRedisChannel(t *testing.T) {
	client := redisClient(t)
	defer client.Close()

	Convey("Given a Redis-backed channel", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ch := broadcast.NewRedisChannel(client)
		defer ch.Close()
		So(ch.Ping(ctx), ShouldBeNil)

		sub, err := ch.Subscribe(ctx, "m-int")
		So(err, ShouldBeNil)

		Convey("When an announcement is published", func() {
			So(ch.Publish(ctx, announce("m-int", "p-1", 1000)), ShouldBeNil)

			Convey("Then the subscriber receives it", func() {
				select {
				case ev := <-sub.C():
					So(ev.PlayerID, ShouldEqual, "p-1")
				case <-ctx.Done():
					So(ctx.Err(), ShouldBeNil)
				}
			})
		})

		Convey("When a malformed payload lands on the topic", func() {
			So(client.Publish(ctx, broadcast.Topic("m-int"), `{"type":"goal"}`).Err(), ShouldBeNil)
			So(ch.Publish(ctx, announce("m-int", "p-2", 2000)), ShouldBeNil)

			Convey("Then it is skipped and the next valid one arrives", func() {
				select {
				case ev := <-sub.C():
					So(ev.PlayerID, ShouldEqual, "p-2")
				case <-ctx.Done():
					So(ctx.Err(), ShouldBeNil)
				}
			})
		})

		Convey("When the subscription is closed", func() {
			So(sub.Close(), ShouldBeNil)

			Convey("Then its channel drains closed", func() {
				for range sub.C() {
				}
				So(sub.Close(), ShouldBeNil)
			})
		})
	})
}
