package service_test

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/okian/matchtrack/internal/adapters/repository"
	service "github.com/okian/matchtrack/internal/app"
	"github.com/okian/matchtrack/internal/domain/commit"
	"github.com/okian/matchtrack/internal/domain/connectivity"
	"github.com/okian/matchtrack/internal/domain/model"
	"github.com/okian/matchtrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

const match = "m-1"

var (
	playerA = model.Player{ID: "a", Number: 7, Name: "Avery", Team: model.TeamHome}
	playerB = model.Player{ID: "b", Number: 9, Name: "Blake", Team: model.TeamHome}
	playerC = model.Player{ID: "c", Number: 10, Name: "Casey", Team: model.TeamHome}
	playerX = model.Player{ID: "x", Number: 4, Name: "Xan", Team: model.TeamAway}
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(ms int64) *clock { return &clock{t: time.UnixMilli(ms)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Set(ms int64) {
	c.mu.Lock()
	c.t = time.UnixMilli(ms)
	c.mu.Unlock()
}

// flakyStore fails or truncates event writes on demand.
type flakyStore struct {
	*repository.MemoryStore

	mu    sync.Mutex
	err   error
	limit int
}

func (f *flakyStore) fail(err error, limit int) {
	f.mu.Lock()
	f.err, f.limit = err, limit
	f.mu.Unlock()
}

func (f *flakyStore) InsertEvents(ctx context.Context, events []model.PersistedEvent) (int, error) {
	f.mu.Lock()
	err, limit := f.err, f.limit
	f.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if limit > 0 && limit < len(events) {
		events = events[:limit]
	}
	return f.MemoryStore.InsertEvents(ctx, events)
}

// seededStore holds one possession tracker "ball" and one player tracker
// "t-1" owning b and c.
func seededStore() *flakyStore {
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	_ = mem.PutRoster(ctx, match, []model.Player{playerA, playerB, playerC, playerX})
	_ = mem.PutAssignment(ctx, model.Assignment{MatchID: match, TrackerID: "ball", Role: model.RolePossession})
	_ = mem.PutAssignment(ctx, model.Assignment{MatchID: match, TrackerID: "t-1", PlayerIDs: []string{"b", "c"}})
	return &flakyStore{MemoryStore: mem}
}

func startService(store repository.Store, clk *clock, opts ...service.Option) *service.Service {
	opts = append([]service.Option{
		service.WithStore(store),
		service.WithClock(clk.Now),
		service.WithRefreshInterval(10 * time.Millisecond),
		service.WithSweepInterval(10 * time.Millisecond),
	}, opts...)
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

// waitPending polls until the tracker queue holds n items.
func waitPending(svc *service.Service, tracker string, n int) []model.PendingEvent {
	deadline := time.Now().Add(2 * time.Second)
	for {
		items, err := svc.Pending(context.Background(), match, tracker)
		So(err, ShouldBeNil)
		if len(items) == n || time.Now().After(deadline) {
			return items
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// announce publishes possession of player at ms.
func announce(svc *service.Service, clk *clock, player string, ms int64) service.PossessionResult {
	clk.Set(ms)
	res, err := svc.UpdatePossession(context.Background(), match, "ball", player)
	So(err, ShouldBeNil)
	return res
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()

		Convey("Then operations before Start are rejected", func() {
			_, err := svc.Join(context.Background(), match, "ball", "")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
		})

		Convey("When started and stopped twice", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.GetStats()["started"], ShouldEqual, true)
			So(svc.Online(), ShouldBeTrue)

			svc.Stop()
			svc.Stop()

			Convey("Then it reports stopped", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Join(t *testing.T) {
	Convey("Given a seeded store", t, func() {
		clk := newClock(1000)
		store := seededStore()
		svc := startService(store, clk)
		defer svc.Stop()
		ctx := context.Background()

		Convey("When a ball tracker joins without naming a role", func() {
			st, err := svc.Join(ctx, match, "ball", "")

			Convey("Then the assignment decides the role", func() {
				So(err, ShouldBeNil)
				So(st.Role, ShouldEqual, model.RolePossession)
				So(st.Online, ShouldBeTrue)
			})

			Convey("And joining again is idempotent", func() {
				again, err := svc.Join(ctx, match, "ball", model.RolePossession)
				So(err, ShouldBeNil)
				So(again.JoinedAt, ShouldEqual, st.JoinedAt)
			})
		})

		Convey("When a player tracker joins", func() {
			st, err := svc.Join(ctx, match, "t-1", model.RolePlayer)

			Convey("Then its roster holds the assigned players and default labels", func() {
				So(err, ShouldBeNil)
				So(st.Players, ShouldHaveLength, 2)
				So(st.EventTypes, ShouldResemble, model.DefaultEventTypes)
			})
		})

		Convey("When the requested role does not match the assignment", func() {
			_, err := svc.Join(ctx, match, "t-1", model.RolePossession)

			Convey("Then the join is refused", func() {
				So(errors.Is(err, service.ErrWrongRole), ShouldBeTrue)
			})
		})

		Convey("When the tracker has no assignment", func() {
			_, err := svc.Join(ctx, match, "nobody", "")

			Convey("Then it is not assigned", func() {
				So(errors.Is(err, service.ErrNotAssigned), ShouldBeTrue)
			})
		})

		Convey("When the stored player list is corrupt", func() {
			store.PutRecord(model.AssignmentRecord{MatchID: match, TrackerID: "t-2", Players: "{not json", Role: "player"})
			st, err := svc.Join(ctx, match, "t-2", "")

			Convey("Then the session opens with an empty roster and an error notice", func() {
				So(err, ShouldBeNil)
				So(st.Players, ShouldBeEmpty)
				notices, err := svc.Notices(ctx, match, "t-2")
				So(err, ShouldBeNil)
				So(notices, ShouldNotBeEmpty)
				So(notices[0].Code, ShouldEqual, "data_integrity")
				So(notices[0].Level, ShouldEqual, model.NoticeError)
			})
		})

		Convey("When a corrupt player list carries no role", func() {
			store.PutRecord(model.AssignmentRecord{MatchID: match, TrackerID: "t-3", Players: "{not json"})

			Convey("Then a plain join opens a player session, not a ball tracker", func() {
				st, err := svc.Join(ctx, match, "t-3", "")
				So(err, ShouldBeNil)
				So(st.Role, ShouldEqual, model.RolePlayer)
				_, err = svc.UpdatePossession(ctx, match, "t-3", playerA.ID)
				So(errors.Is(err, service.ErrWrongRole), ShouldBeTrue)
			})

			Convey("Then the requested player role is honored", func() {
				st, err := svc.Join(ctx, match, "t-3", model.RolePlayer)
				So(err, ShouldBeNil)
				So(st.Role, ShouldEqual, model.RolePlayer)
				So(st.Warning, ShouldBeNil)
			})

			Convey("Then a refresh keeps the joined role", func() {
				_, err := svc.Join(ctx, match, "t-3", model.RolePlayer)
				So(err, ShouldBeNil)
				st, err := svc.RefreshAssignment(ctx, match, "t-3")
				So(err, ShouldBeNil)
				So(st.Role, ShouldEqual, model.RolePlayer)
			})
		})

		Convey("When a tracker leaves", func() {
			_, err := svc.Join(ctx, match, "t-1", "")
			So(err, ShouldBeNil)
			So(svc.Leave(ctx, match, "t-1"), ShouldBeNil)

			Convey("Then its session is gone", func() {
				_, err := svc.Status(ctx, match, "t-1")
				So(errors.Is(err, service.ErrNotJoined), ShouldBeTrue)
				So(errors.Is(svc.Leave(ctx, match, "t-1"), service.ErrNotJoined), ShouldBeTrue)
			})
		})
	})
}

func TestService_PossessionFlow(t *testing.T) {
	Convey("Given a ball tracker and a player tracker owning b and c", t, func() {
		clk := newClock(1000)
		store := seededStore()
		svc := startService(store, clk)
		defer svc.Stop()
		ctx := context.Background()

		_, err := svc.Join(ctx, match, "ball", "")
		So(err, ShouldBeNil)
		_, err = svc.Join(ctx, match, "t-1", "")
		So(err, ShouldBeNil)

		Convey("When possession moves from a to b between teammates", func() {
			first := announce(svc, clk, "a", 1000)
			second := announce(svc, clk, "b", 3500)

			Convey("Then the first announcement infers nothing", func() {
				So(first.Inferred, ShouldBeNil)
			})

			Convey("Then a pass from a to b is persisted at the new timestamp", func() {
				So(second.Inferred, ShouldNotBeNil)
				So(second.Inferred.EventType, ShouldEqual, model.EventPass)
				So(second.Inferred.Timestamp, ShouldEqual, 3500)
				So(second.Inferred.Details.Inferred, ShouldBeTrue)
				So(second.Inferred.Details.FromPlayer, ShouldEqual, "a")
				So(second.Inferred.Details.ToPlayer, ShouldEqual, "b")

				rows, err := svc.Events(ctx, match)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 1)
			})

			Convey("Then the owner of b holds one urgent obligation at age zero", func() {
				items := waitPending(svc, "t-1", 1)
				So(items, ShouldHaveLength, 1)
				So(items[0].Player.ID, ShouldEqual, "b")
				So(items[0].Timestamp, ShouldEqual, 3500)
				So(items[0].Age, ShouldEqual, 0)
				So(items[0].Priority, ShouldEqual, model.PriorityUrgent)
			})

			Convey("Then the ball tracker reports b as the holder", func() {
				st, err := svc.Status(ctx, match, "ball")
				So(err, ShouldBeNil)
				So(st.LastHolder.PlayerID, ShouldEqual, "b")
			})
		})

		Convey("When possession goes to a player nobody here owns", func() {
			announce(svc, clk, "x", 2000)

			Convey("Then no obligation is queued", func() {
				time.Sleep(50 * time.Millisecond)
				items, err := svc.Pending(ctx, match, "t-1")
				So(err, ShouldBeNil)
				So(items, ShouldBeEmpty)
			})
		})

		Convey("When an unknown player is announced", func() {
			_, err := svc.UpdatePossession(ctx, match, "ball", "ghost")

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrUnknownPlayer), ShouldBeTrue)
			})
		})

		Convey("When a player tracker tries to announce possession", func() {
			_, err := svc.UpdatePossession(ctx, match, "t-1", "b")

			Convey("Then the role is wrong", func() {
				So(errors.Is(err, service.ErrWrongRole), ShouldBeTrue)
			})
		})

		Convey("When the ball tracker is offline", func() {
			_, err := svc.SetConnectivity(ctx, match, "ball", false)
			So(err, ShouldBeNil)
			_, err = svc.UpdatePossession(ctx, match, "ball", "a")

			Convey("Then the update is refused", func() {
				So(errors.Is(err, connectivity.ErrOffline), ShouldBeTrue)
			})
		})
	})
}

func TestService_Commit(t *testing.T) {
	Convey("Given a player tracker holding an obligation for b", t, func() {
		clk := newClock(1000)
		store := seededStore()
		svc := startService(store, clk)
		defer svc.Stop()
		ctx := context.Background()

		_, err := svc.Join(ctx, match, "ball", "")
		So(err, ShouldBeNil)
		_, err = svc.Join(ctx, match, "t-1", "")
		So(err, ShouldBeNil)

		announce(svc, clk, "b", 1000)
		items := waitPending(svc, "t-1", 1)
		So(items, ShouldHaveLength, 1)
		id := items[0].ID

		Convey("When it is committed online", func() {
			row, err := svc.CommitOne(ctx, match, "t-1", id, "tackle", map[string]any{"zone": "left"})

			Convey("Then the row keeps the capture time and the pending id", func() {
				So(err, ShouldBeNil)
				So(row.EventType, ShouldEqual, "tackle")
				So(row.Timestamp, ShouldEqual, 1000)
				So(row.Details.PendingID, ShouldEqual, id)
				So(row.Details.Inferred, ShouldBeFalse)
				So(waitPending(svc, "t-1", 0), ShouldBeEmpty)
			})
		})

		Convey("When the tracker is offline", func() {
			_, err := svc.SetConnectivity(ctx, match, "t-1", false)
			So(err, ShouldBeNil)
			_, err = svc.CommitOne(ctx, match, "t-1", id, "tackle", nil)

			Convey("Then the commit is rejected and the queue is unchanged", func() {
				So(errors.Is(err, connectivity.ErrOffline), ShouldBeTrue)
				items, _ := svc.Pending(ctx, match, "t-1")
				So(items, ShouldHaveLength, 1)
				So(items[0].ID, ShouldEqual, id)
			})

			Convey("Then a warning banner stays up until reconnecting", func() {
				deadline := time.Now().Add(time.Second)
				var st service.Status
				for time.Now().Before(deadline) {
					st, _ = svc.Status(ctx, match, "t-1")
					if st.Warning != nil {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(st.Warning, ShouldNotBeNil)
				So(st.Warning.Code, ShouldEqual, "offline")

				_, err := svc.SetConnectivity(ctx, match, "t-1", true)
				So(err, ShouldBeNil)
				deadline = time.Now().Add(time.Second)
				for time.Now().Before(deadline) {
					st, _ = svc.Status(ctx, match, "t-1")
					if st.Warning == nil {
						break
					}
					time.Sleep(5 * time.Millisecond)
				}
				So(st.Warning, ShouldBeNil)
			})
		})

		Convey("When the connection drops and returns back to back", func() {
			for i := 0; i < 20; i++ {
				_, err := svc.SetConnectivity(ctx, match, "t-1", false)
				So(err, ShouldBeNil)
				_, err = svc.SetConnectivity(ctx, match, "t-1", true)
				So(err, ShouldBeNil)
			}

			Convey("Then no offline banner is left behind", func() {
				time.Sleep(20 * time.Millisecond)
				st, err := svc.Status(ctx, match, "t-1")
				So(err, ShouldBeNil)
				So(st.Online, ShouldBeTrue)
				So(st.Warning, ShouldBeNil)

				items, _ := svc.Pending(ctx, match, "t-1")
				So(items, ShouldHaveLength, 1)
			})
		})

		Convey("When the store write fails", func() {
			store.fail(errors.New("connection reset"), 0)
			_, err := svc.CommitOne(ctx, match, "t-1", id, "tackle", nil)

			Convey("Then the obligation is restored", func() {
				So(errors.Is(err, commit.ErrPersist), ShouldBeTrue)
				items, _ := svc.Pending(ctx, match, "t-1")
				So(items, ShouldHaveLength, 1)
				So(items[0].ID, ShouldEqual, id)
			})

			Convey("Then a retry after recovery succeeds", func() {
				store.fail(nil, 0)
				_, err := svc.CommitOne(ctx, match, "t-1", id, "tackle", nil)
				So(err, ShouldBeNil)
			})
		})

		Convey("When the label is not on the assignment", func() {
			_, err := svc.CommitOne(ctx, match, "t-1", id, "moonwalk", nil)

			Convey("Then it is refused", func() {
				So(errors.Is(err, commit.ErrLabelNotPermitted), ShouldBeTrue)
			})
		})

		Convey("When the obligation is discarded", func() {
			So(svc.DiscardOne(ctx, match, "t-1", id), ShouldBeNil)

			Convey("Then it is gone and a second discard is not found", func() {
				So(waitPending(svc, "t-1", 0), ShouldBeEmpty)
				So(errors.Is(svc.DiscardOne(ctx, match, "t-1", id), commit.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_CommitAll(t *testing.T) {
	Convey("Given a player tracker holding five obligations", t, func() {
		clk := newClock(1000)
		store := seededStore()
		svc := startService(store, clk)
		defer svc.Stop()
		ctx := context.Background()

		_, err := svc.Join(ctx, match, "ball", "")
		So(err, ShouldBeNil)
		_, err = svc.Join(ctx, match, "t-1", "")
		So(err, ShouldBeNil)

		for i, p := range []string{"b", "c", "b", "c", "b"} {
			announce(svc, clk, p, 1000+int64(i)*1000)
			So(waitPending(svc, "t-1", i+1), ShouldHaveLength, i+1)
		}

		Convey("When only three of five rows are written", func() {
			store.fail(nil, 3)
			n, err := svc.CommitAll(ctx, match, "t-1", "tackle")

			Convey("Then the whole batch is restored", func() {
				So(errors.Is(err, commit.ErrPartialWrite), ShouldBeTrue)
				So(n, ShouldEqual, 0)
				items, _ := svc.Pending(ctx, match, "t-1")
				So(items, ShouldHaveLength, 5)
			})
		})

		Convey("When every row is written", func() {
			n, err := svc.CommitAll(ctx, match, "t-1", "tackle")

			Convey("Then the queue is empty", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 5)
				items, _ := svc.Pending(ctx, match, "t-1")
				So(items, ShouldBeEmpty)
			})
		})

		Convey("When every obligation is discarded", func() {
			n, err := svc.DiscardAll(ctx, match, "t-1")

			Convey("Then all five are dropped", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 5)
			})
		})
	})
}

func TestService_Expiry(t *testing.T) {
	Convey("Given a player tracker with an obligation", t, func() {
		clk := newClock(1000)
		svc := startService(seededStore(), clk)
		defer svc.Stop()
		ctx := context.Background()

		_, err := svc.Join(ctx, match, "ball", "")
		So(err, ShouldBeNil)
		_, err = svc.Join(ctx, match, "t-1", "")
		So(err, ShouldBeNil)
		announce(svc, clk, "c", 1000)
		So(waitPending(svc, "t-1", 1), ShouldHaveLength, 1)

		Convey("When it outlives the expiry window", func() {
			clk.Set(1000 + 31_000)

			Convey("Then it is swept and an expiry warning is raised", func() {
				So(waitPending(svc, "t-1", 0), ShouldBeEmpty)
				notices, err := svc.Notices(ctx, match, "t-1")
				So(err, ShouldBeNil)
				found := false
				for _, n := range notices {
					if n.Code == "pending_expired" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestService_Seeding(t *testing.T) {
	Convey("Given a started service on the default store", t, func() {
		svc := service.New(service.WithClock(newClock(1000).Now))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		ctx := context.Background()

		Convey("When a roster and an assignment are written", func() {
			So(svc.PutRoster(ctx, match, []model.Player{playerA, playerB}), ShouldBeNil)
			So(svc.PutAssignment(ctx, model.Assignment{MatchID: match, TrackerID: "t-9", PlayerIDs: []string{"a"}}), ShouldBeNil)

			Convey("Then the tracker can join with them", func() {
				st, err := svc.Join(ctx, match, "t-9", "")
				So(err, ShouldBeNil)
				So(st.Role, ShouldEqual, model.RolePlayer)
				So(st.Players, ShouldHaveLength, 1)
			})
		})

		Convey("When a player has no team", func() {
			err := svc.PutRoster(ctx, match, []model.Player{{ID: "z"}})

			Convey("Then it is invalid", func() {
				So(errors.Is(err, service.ErrInvalidArgument), ShouldBeTrue)
			})
		})
	})
}
