package pending_test

import (
	"context"
	"testing"
	"time"

	"github.com/okian/matchtrack/internal/domain/pending"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScheduler(t *testing.T) {
	Convey("Given a scheduler with short ticks", t, func() {
		ctx := context.Background()
		clock := newFakeClock(1)
		q := pending.NewQueue("t-1", pending.WithClock(clock.Now))
		q.Offer(ctx, playerA, 1)
		s := pending.NewScheduler(q,
			pending.WithRefreshInterval(5*time.Millisecond),
			pending.WithSweepInterval(10*time.Millisecond),
		)

		Convey("When the item ages past the expiry while running", func() {
			s.Start(ctx)
			defer s.Stop()
			clock.Advance(31 * time.Second)

			Convey("Then a sweep tick evicts it", func() {
				deadline := time.Now().Add(time.Second)
				for q.Len() > 0 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				So(q.Len(), ShouldEqual, 0)
			})
		})

		Convey("When stopped twice", func() {
			s.Start(ctx)
			So(s.Running(), ShouldBeTrue)

			Convey("Then the second stop is a no-op", func() {
				So(func() {
					s.Stop()
					s.Stop()
				}, ShouldNotPanic)
				So(s.Running(), ShouldBeFalse)
			})
		})

		Convey("When stopped, ticks no longer run", func() {
			s.Start(ctx)
			s.Stop()
			clock.Advance(31 * time.Second)
			time.Sleep(30 * time.Millisecond)

			Convey("Then the item survives", func() {
				So(q.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the parent context is canceled", func() {
			cctx, cancel := context.WithCancel(ctx)
			s.Start(cctx)
			cancel()

			Convey("Then Stop still returns", func() {
				s.Stop()
				So(s.Running(), ShouldBeFalse)
			})
		})
	})
}
