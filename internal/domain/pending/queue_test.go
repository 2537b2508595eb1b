package pending_test

import (
	"context"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/internal/domain/pending"
	"github.com/okian/matchtrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(ms int64) *fakeClock { return &fakeClock{now: time.UnixMilli(ms)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var (
	playerA = model.Player{ID: "p-a", Number: 7, Name: "Ava", Team: model.TeamHome}
	playerB = model.Player{ID: "p-b", Number: 9, Name: "Bea", Team: model.TeamHome}
)

func TestOffer(t *testing.T) {
	Convey("Given a pending queue with a fake clock", t, func() {
		ctx := context.Background()
		clock := newFakeClock(1000)
		q := pending.NewQueue("t-1", pending.WithClock(clock.Now))

		Convey("When an announcement is offered", func() {
			pe, outcome := q.Offer(ctx, playerB, 1000)

			Convey("Then it is enqueued urgent at age zero", func() {
				So(outcome, ShouldEqual, pending.Enqueued)
				So(q.Len(), ShouldEqual, 1)
				So(pe.Age, ShouldEqual, 0)
				So(pe.Priority, ShouldEqual, model.PriorityUrgent)
				So(pe.TrackerID, ShouldEqual, "t-1")
				So(pe.ID, ShouldEqual, model.PendingID("t-1", "p-b", 1000))
			})
		})

		Convey("When the same announcement is offered twice", func() {
			q.Offer(ctx, playerA, 1000)
			clock.Advance(2 * time.Second)
			_, outcome := q.Offer(ctx, playerA, 1000)

			Convey("Then exactly one pending event exists", func() {
				So(outcome, ShouldEqual, pending.Duplicate)
				So(q.Len(), ShouldEqual, 1)
			})
		})

		Convey("When two announcements arrive inside the debounce window", func() {
			q.Offer(ctx, playerA, 1000)
			clock.Advance(200 * time.Millisecond)
			_, outcome := q.Offer(ctx, playerB, 1200)

			Convey("Then the second is absorbed", func() {
				So(outcome, ShouldEqual, pending.Debounced)
				So(q.Len(), ShouldEqual, 1)
			})

			Convey("And a debounced announcement is not remembered", func() {
				clock.Advance(time.Second)
				_, again := q.Offer(ctx, playerB, 1200)
				So(again, ShouldEqual, pending.Enqueued)
				So(q.Len(), ShouldEqual, 2)
			})
		})

		Convey("When announcements are spaced beyond the debounce window", func() {
			q.Offer(ctx, playerA, 1000)
			clock.Advance(600 * time.Millisecond)
			_, outcome := q.Offer(ctx, playerB, 1600)

			Convey("Then both are held", func() {
				So(outcome, ShouldEqual, pending.Enqueued)
				So(q.Len(), ShouldEqual, 2)
			})
		})

		Convey("When a discarded announcement is broadcast again", func() {
			pe, _ := q.Offer(ctx, playerA, 1000)
			So(q.Discard(pe.ID), ShouldBeNil)
			clock.Advance(time.Second)
			_, outcome := q.Offer(ctx, playerA, 1000)

			Convey("Then it is not revived", func() {
				So(outcome, ShouldEqual, pending.Duplicate)
				So(q.Len(), ShouldEqual, 0)
			})
		})

		Convey("When debouncing is disabled", func() {
			fast := pending.NewQueue("t-2", pending.WithClock(clock.Now), pending.WithDebounce(0))
			fast.Offer(ctx, playerA, 1000)
			_, outcome := fast.Offer(ctx, playerB, 1001)

			Convey("Then rapid inserts are all held", func() {
				So(outcome, ShouldEqual, pending.Enqueued)
				So(fast.Len(), ShouldEqual, 2)
			})
		})
	})
}

func TestAging(t *testing.T) {
	Convey("Given a queue holding one item captured at t=1ms", t, func() {
		ctx := context.Background()
		clock := newFakeClock(1)
		var expired []pending.PendingEvent
		q := pending.NewQueue("t-1",
			pending.WithClock(clock.Now),
			pending.WithExpireHook(func(_ context.Context, dropped []pending.PendingEvent) {
				expired = append(expired, dropped...)
			}),
		)
		pe, _ := q.Offer(ctx, playerA, 1)

		bandAt := func(age time.Duration) model.Priority {
			clock.Advance(age - clock.Now().Sub(time.UnixMilli(1)))
			q.Refresh()
			got, ok := q.Get(pe.ID)
			So(ok, ShouldBeTrue)
			return got.Priority
		}

		Convey("Then bands follow age", func() {
			So(bandAt(4*time.Second), ShouldEqual, model.PriorityUrgent)
			So(bandAt(10*time.Second), ShouldEqual, model.PriorityNormal)
			So(bandAt(20*time.Second), ShouldEqual, model.PriorityOld)
		})

		Convey("When a sweep runs before the expiry", func() {
			clock.Advance(29 * time.Second)

			Convey("Then nothing is dropped", func() {
				So(q.Sweep(ctx), ShouldEqual, 0)
				So(q.Len(), ShouldEqual, 1)
				So(expired, ShouldBeEmpty)
			})
		})

		Convey("When a sweep runs at thirty seconds", func() {
			clock.Advance(30 * time.Second)
			dropped := q.Sweep(ctx)

			Convey("Then the item is evicted and surfaced", func() {
				So(dropped, ShouldEqual, 1)
				So(q.Len(), ShouldEqual, 0)
				So(expired, ShouldHaveLength, 1)
				So(expired[0].ID, ShouldEqual, pe.ID)
			})

			Convey("And a late duplicate cannot revive it", func() {
				_, outcome := q.Offer(ctx, playerA, 1)
				So(outcome, ShouldEqual, pending.Duplicate)
			})
		})
	})
}

func TestTakeAndRestore(t *testing.T) {
	Convey("Given a queue with three items", t, func() {
		ctx := context.Background()
		clock := newFakeClock(10_000)
		q := pending.NewQueue("t-1", pending.WithClock(clock.Now), pending.WithDebounce(0))
		first, _ := q.Offer(ctx, playerA, 1000)
		second, _ := q.Offer(ctx, playerB, 2000)
		third, _ := q.Offer(ctx, playerA, 3000)

		Convey("When an item is taken and restored", func() {
			taken, err := q.Take(second.ID)
			So(err, ShouldBeNil)
			So(q.Len(), ShouldEqual, 2)
			q.Restore(taken)

			Convey("Then length and original timestamp are restored", func() {
				So(q.Len(), ShouldEqual, 3)
				got, ok := q.Get(second.ID)
				So(ok, ShouldBeTrue)
				So(got.Timestamp, ShouldEqual, 2000)
			})
		})

		Convey("When everything is taken and restored out of order", func() {
			all := q.TakeAll()
			So(all, ShouldHaveLength, 3)
			So(q.Len(), ShouldEqual, 0)
			q.Restore(all[2], all[0], all[1])

			Convey("Then capture order is rebuilt", func() {
				list := q.TakeAll()
				So(list[0].ID, ShouldEqual, first.ID)
				So(list[1].ID, ShouldEqual, second.ID)
				So(list[2].ID, ShouldEqual, third.ID)
			})
		})

		Convey("When restoring an item that is still present", func() {
			q.Restore(first)

			Convey("Then it is not doubled", func() {
				So(q.Len(), ShouldEqual, 3)
			})
		})

		Convey("When taking an unknown id", func() {
			_, err := q.Take("nope")

			Convey("Then ErrNotFound is returned", func() {
				So(err, ShouldEqual, pending.ErrNotFound)
				So(q.Discard("nope"), ShouldEqual, pending.ErrNotFound)
			})
		})

		Convey("When discarding all", func() {
			n := q.DiscardAll()

			Convey("Then the count is reported", func() {
				So(n, ShouldEqual, 3)
				So(q.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestList(t *testing.T) {
	Convey("Given items in different bands", t, func() {
		ctx := context.Background()
		clock := newFakeClock(20_000)
		q := pending.NewQueue("t-1", pending.WithClock(clock.Now), pending.WithDebounce(0))
		urgent, _ := q.Offer(ctx, playerA, 18_000) // 2s
		old, _ := q.Offer(ctx, playerB, 3_000)     // 17s
		normal, _ := q.Offer(ctx, playerA, 12_000) // 8s
		older, _ := q.Offer(ctx, playerB, 1_000)   // 19s

		Convey("Then the most at-risk items come first", func() {
			list := q.List()
			So(list, ShouldHaveLength, 4)
			So(list[0].ID, ShouldEqual, older.ID)
			So(list[1].ID, ShouldEqual, old.ID)
			So(list[2].ID, ShouldEqual, normal.ID)
			So(list[3].ID, ShouldEqual, urgent.ID)
			So(list[0].Priority, ShouldEqual, model.PriorityOld)
			So(list[3].Priority, ShouldEqual, model.PriorityUrgent)
		})
	})
}
