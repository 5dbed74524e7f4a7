package model_test

import (
	"testing"
	"time"

	model "github.com/okian/wandbrain/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestPointEvent(t *testing.T) {
	convey.Convey("Given a PointEvent", t, func() {
		convey.Convey("When all flags are set", func() {
			e := model.PointEvent{PenDown: true, StrokeStart: true, StrokeEnd: true}

			convey.Convey("Then Flags packs every bit", func() {
				convey.So(e.Flags(), convey.ShouldEqual, model.FlagPenDown|model.FlagStrokeStart|model.FlagStrokeEnd)
			})
		})

		convey.Convey("When only pen_down is set", func() {
			e := model.PointEvent{PenDown: true}

			convey.Convey("Then Flags is 0x01", func() {
				convey.So(e.Flags(), convey.ShouldEqual, uint8(0x01))
			})
		})

		convey.Convey("When converting to a Point", func() {
			e := model.PointEvent{X: 0.25, Y: 0.75, TimestampMS: 1234, WandID: 9}
			p := e.Point()

			convey.Convey("Then coordinates and timestamp carry over", func() {
				convey.So(p, convey.ShouldResemble, model.Point{X: 0.25, Y: 0.75, TimestampMS: 1234})
			})
		})
	})
}

func TestFinalResult(t *testing.T) {
	convey.Convey("Given a FinalResult", t, func() {
		r := model.FinalResult{Device: 2, Wand: 7, AttemptID: 99, NumPoints: 40, FinalizedAt: time.Unix(10, 0)}

		convey.Convey("Then Key addresses the device and wand", func() {
			convey.So(r.Key(), convey.ShouldResemble, model.WandKey{Device: 2, Wand: 7})
		})

		convey.Convey("Then it is unscored until a score is attached", func() {
			convey.So(r.Scored(), convey.ShouldBeFalse)
			r.Score = &model.ScoreResult{TemplateID: "circle_v1", Score: 88.5}
			convey.So(r.Scored(), convey.ShouldBeTrue)
		})
	})
}
