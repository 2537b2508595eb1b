package model_test

import (
	"testing"
	"time"

	"github.com/okian/matchtrack/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPriorityFor(t *testing.T) {
	Convey("Given pending ages", t, func() {
		Convey("Then bands follow the age thresholds", func() {
			So(model.PriorityFor(0), ShouldEqual, model.PriorityUrgent)
			So(model.PriorityFor(4*time.Second), ShouldEqual, model.PriorityUrgent)
			So(model.PriorityFor(5*time.Second), ShouldEqual, model.PriorityNormal)
			So(model.PriorityFor(10*time.Second), ShouldEqual, model.PriorityNormal)
			So(model.PriorityFor(15*time.Second), ShouldEqual, model.PriorityOld)
			So(model.PriorityFor(20*time.Second), ShouldEqual, model.PriorityOld)
		})

		Convey("Then older bands rank first", func() {
			So(model.PriorityOld.Rank(), ShouldBeLessThan, model.PriorityNormal.Rank())
			So(model.PriorityNormal.Rank(), ShouldBeLessThan, model.PriorityUrgent.Rank())
		})
	})
}

func TestPendingID(t *testing.T) {
	Convey("Given the synthetic pending id", t, func() {
		a := model.PendingID("t-1", "p-7", 1000)

		Convey("Then it is deterministic", func() {
			So(model.PendingID("t-1", "p-7", 1000), ShouldEqual, a)
		})

		Convey("Then each component changes it", func() {
			So(model.PendingID("t-2", "p-7", 1000), ShouldNotEqual, a)
			So(model.PendingID("t-1", "p-8", 1000), ShouldNotEqual, a)
			So(model.PendingID("t-1", "p-7", 1001), ShouldNotEqual, a)
		})
	})
}

func TestPendingEventTouch(t *testing.T) {
	Convey("Given a pending event captured at t=1000", t, func() {
		player := model.Player{ID: "p-1", Team: model.TeamHome}
		pe := model.NewPendingEvent("t-1", player, 1000, time.UnixMilli(1000))

		Convey("Then it starts urgent at age zero", func() {
			So(pe.Age, ShouldEqual, 0)
			So(pe.Priority, ShouldEqual, model.PriorityUrgent)
			So(pe.ID, ShouldEqual, model.PendingID("t-1", "p-1", 1000))
		})

		Convey("When touched ten seconds later", func() {
			pe.Touch(time.UnixMilli(11_000))

			Convey("Then it is normal", func() {
				So(pe.Age, ShouldEqual, 10*time.Second)
				So(pe.Priority, ShouldEqual, model.PriorityNormal)
			})
		})

		Convey("When touched before its capture time", func() {
			pe.Touch(time.UnixMilli(500))

			Convey("Then age clamps to zero", func() {
				So(pe.Age, ShouldEqual, 0)
			})
		})
	})
}

func TestAssignment(t *testing.T) {
	Convey("Given assignments", t, func() {
		Convey("Then an explicit role wins", func() {
			a := model.Assignment{Role: model.RolePossession, PlayerIDs: []string{"p-1"}}
			So(a.EffectiveRole(), ShouldEqual, model.RolePossession)
		})

		Convey("Then a player-less assignment is a possession tracker", func() {
			So(model.Assignment{}.EffectiveRole(), ShouldEqual, model.RolePossession)
		})

		Convey("Then an assignment with players is a player tracker", func() {
			So(model.Assignment{PlayerIDs: []string{"p-1"}}.EffectiveRole(), ShouldEqual, model.RolePlayer)
		})

		Convey("Then labels are checked against the assignment or defaults", func() {
			custom := model.Assignment{EventTypes: []string{"tackle"}}
			So(custom.Permits("tackle"), ShouldBeTrue)
			So(custom.Permits("goal"), ShouldBeFalse)

			defaults := model.Assignment{}
			So(defaults.Permits("goal"), ShouldBeTrue)
			So(defaults.Permits("moonwalk"), ShouldBeFalse)
			So(defaults.Permits(""), ShouldBeFalse)
		})
	})
}

func TestPersistedEventValidate(t *testing.T) {
	Convey("Given a persisted event", t, func() {
		ev := model.PersistedEvent{
			MatchID:   "m-1",
			EventType: model.EventPass,
			PlayerID:  "p-1",
			Team:      model.TeamAway,
			Timestamp: 3500,
			TrackerID: "t-1",
		}

		Convey("Then a complete row is valid", func() {
			So(ev.Validate(), ShouldBeNil)
		})

		Convey("Then missing fields are rejected", func() {
			bad := ev
			bad.Team = "north"
			So(bad.Validate(), ShouldNotBeNil)

			bad = ev
			bad.Timestamp = 0
			So(bad.Validate(), ShouldNotBeNil)

			bad = ev
			bad.EventType = ""
			So(bad.Validate(), ShouldNotBeNil)
		})
	})
}
