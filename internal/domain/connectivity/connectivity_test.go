package connectivity_test

import (
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/matchtrack/internal/domain/connectivity"
	"github.com/okian/matchtrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestMonitor(t *testing.T) {
	Convey("Given a connectivity monitor", t, func() {
		ctx := context.Background()
		now := time.UnixMilli(1000)
		m := connectivity.NewMonitor("t-1", connectivity.WithClock(func() time.Time { return now }))

		Convey("Then it starts online and permits writes", func() {
			So(m.Online(), ShouldBeTrue)
			So(m.Require(), ShouldBeNil)
		})

		Convey("When the transport drops", func() {
			ch, cancel := m.Watch()
			defer cancel()
			now = now.Add(time.Second)
			changed := m.SetOnline(ctx, false)

			Convey("Then writes are rejected and watchers hear about it", func() {
				So(changed, ShouldBeTrue)
				So(m.Require(), ShouldEqual, connectivity.ErrOffline)
				So(m.Since(), ShouldEqual, time.UnixMilli(2000))
				change := <-ch
				So(change.Online, ShouldBeFalse)
			})

			Convey("And repeating the same state is not a change", func() {
				<-ch
				So(m.SetOnline(ctx, false), ShouldBeFalse)
				select {
				case <-ch:
					So("unexpected change", ShouldBeEmpty)
				default:
				}
			})

			Convey("And reconnecting clears the block", func() {
				<-ch
				So(m.SetOnline(ctx, true), ShouldBeTrue)
				So(m.Require(), ShouldBeNil)
				So((<-ch).Online, ShouldBeTrue)
			})
		})

		Convey("When the state flaps before a watcher reads", func() {
			ch, cancel := m.Watch()
			defer cancel()
			now = now.Add(time.Second)
			m.SetOnline(ctx, false)
			now = now.Add(time.Second)
			m.SetOnline(ctx, true)

			Convey("Then the watcher sees the latest change only", func() {
				change := <-ch
				So(change.Online, ShouldBeTrue)
				So(change.At, ShouldEqual, time.UnixMilli(3000))
				select {
				case extra := <-ch:
					So(extra, ShouldBeNil)
				default:
				}
			})
		})

		Convey("When a watcher is canceled twice", func() {
			ch, cancel := m.Watch()
			So(m.Watchers(), ShouldEqual, 1)

			Convey("Then it is removed and closed once", func() {
				So(func() { cancel(); cancel() }, ShouldNotPanic)
				So(m.Watchers(), ShouldEqual, 0)
				_, open := <-ch
				So(open, ShouldBeFalse)
			})
		})

		Convey("When created offline", func() {
			off := connectivity.NewMonitor("t-2", connectivity.WithInitial(false))

			Convey("Then writes are rejected", func() {
				So(off.Require(), ShouldEqual, connectivity.ErrOffline)
			})
		})
	})
}

type flakyPinger struct{ fail atomic.Bool }

func (p *flakyPinger) Ping(context.Context) error {
	if p.fail.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestProber(t *testing.T) {
	Convey("Given a prober over a flaky transport", t, func() {
		ctx := context.Background()
		pinger := &flakyPinger{}
		m := connectivity.NewMonitor("t-probe")
		p := connectivity.NewProber(pinger, m, 0)

		Convey("When a ping fails", func() {
			pinger.fail.Store(true)
			p.Probe(ctx)

			Convey("Then the monitor goes offline", func() {
				So(m.Online(), ShouldBeFalse)
			})

			Convey("And a later success restores it", func() {
				pinger.fail.Store(false)
				p.Probe(ctx)
				So(m.Online(), ShouldBeTrue)
			})
		})

		Convey("When running on a short interval", func() {
			rctx, cancel := context.WithCancel(ctx)
			fast := connectivity.NewProber(pinger, m, 5*time.Millisecond)
			done := make(chan struct{})
			go func() {
				fast.Run(rctx)
				close(done)
			}()
			pinger.fail.Store(true)

			Convey("Then the state follows the transport until canceled", func() {
				deadline := time.Now().Add(time.Second)
				for m.Online() && time.Now().Before(deadline) {
					time.Sleep(2 * time.Millisecond)
				}
				So(m.Online(), ShouldBeFalse)
				cancel()
				<-done
			})
		})
	})
}
