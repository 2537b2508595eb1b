package inference_test

import (
	"testing"
	"time"

	"github.com/okian/matchtrack/internal/domain/inference"
	"github.com/okian/matchtrack/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func possession(player string, team model.TeamSide, ts int64) model.PossessionEvent {
	return model.PossessionEvent{MatchID: "m-1", PlayerID: player, Team: team, Timestamp: ts, TrackerID: "ball"}
}

func TestInfer(t *testing.T) {
	Convey("Given consecutive possession announcements", t, func() {
		Convey("When there is no previous announcement", func() {
			got := inference.Infer(nil, possession("a", model.TeamHome, 1000))

			Convey("Then nothing is inferred", func() {
				So(got, ShouldBeNil)
			})
		})

		Convey("When the same player holds for less than two seconds", func() {
			prev := possession("a", model.TeamHome, 1000)
			for _, elapsed := range []int64{0, 1, 500, 1999} {
				So(inference.Infer(&prev, possession("a", model.TeamHome, 1000+elapsed)), ShouldBeNil)
			}
		})

		Convey("When the same player's clock runs backwards", func() {
			prev := possession("a", model.TeamHome, 5000)

			Convey("Then it is treated as same-touch noise", func() {
				So(inference.Infer(&prev, possession("a", model.TeamHome, 4000)), ShouldBeNil)
			})
		})

		Convey("When the same player holds for two seconds or more", func() {
			prev := possession("a", model.TeamHome, 1000)
			got := inference.Infer(&prev, possession("a", model.TeamHome, 3000))

			Convey("Then a dribble is inferred for that player", func() {
				So(got, ShouldNotBeNil)
				So(got.Type, ShouldEqual, model.EventDribble)
				So(got.PlayerID, ShouldEqual, "a")
				So(got.Timestamp, ShouldEqual, 3000)
				So(got.Elapsed, ShouldEqual, 2*time.Second)
			})
		})

		Convey("When the ball moves between teammates", func() {
			prev := possession("a", model.TeamHome, 1000)
			got := inference.Infer(&prev, possession("b", model.TeamHome, 3500))

			Convey("Then a pass from origin to destination is inferred", func() {
				So(got, ShouldNotBeNil)
				So(got.Type, ShouldEqual, model.EventPass)
				So(got.PlayerID, ShouldEqual, "a")
				So(got.FromPlayerID, ShouldEqual, "a")
				So(got.ToPlayerID, ShouldEqual, "b")
				So(got.Team, ShouldEqual, model.TeamHome)
				So(got.Timestamp, ShouldEqual, 3500)
			})

			Convey("And the persisted row is tagged inferred at the new timestamp", func() {
				row := got.ToPersisted("m-1", "ball")
				So(row.Details.Inferred, ShouldBeTrue)
				So(row.Timestamp, ShouldEqual, 3500)
				So(row.Details.FromPlayer, ShouldEqual, "a")
				So(row.Details.ToPlayer, ShouldEqual, "b")
				So(row.Validate(), ShouldBeNil)
			})
		})

		Convey("When a pass happens quickly", func() {
			prev := possession("a", model.TeamHome, 1000)

			Convey("Then elapsed time does not matter", func() {
				got := inference.Infer(&prev, possession("b", model.TeamHome, 1100))
				So(got.Type, ShouldEqual, model.EventPass)
			})
		})

		Convey("When the ball moves to the other team", func() {
			prev := possession("a", model.TeamHome, 1000)
			got := inference.Infer(&prev, possession("x", model.TeamAway, 1800))

			Convey("Then an interception by the new holder is inferred", func() {
				So(got, ShouldNotBeNil)
				So(got.Type, ShouldEqual, model.EventInterception)
				So(got.PlayerID, ShouldEqual, "x")
				So(got.Team, ShouldEqual, model.TeamAway)
				So(got.FromPlayerID, ShouldEqual, "a")
				So(got.ToPlayerID, ShouldEqual, "x")
			})
		})
	})
}

func TestEngineThreshold(t *testing.T) {
	Convey("Given an engine with a one second dribble threshold", t, func() {
		engine := inference.NewEngine(inference.WithDribbleThreshold(time.Second))
		prev := possession("a", model.TeamAway, 0)

		Convey("Then the custom threshold applies", func() {
			So(engine.Infer(&prev, possession("a", model.TeamAway, 999)), ShouldBeNil)
			So(engine.Infer(&prev, possession("a", model.TeamAway, 1000)).Type, ShouldEqual, model.EventDribble)
		})

		Convey("Then a non-positive threshold keeps the default", func() {
			def := inference.NewEngine(inference.WithDribbleThreshold(0))
			So(def.Infer(&prev, possession("a", model.TeamAway, 1999)), ShouldBeNil)
		})
	})
}
