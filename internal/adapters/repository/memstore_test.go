package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/wandbrain/internal/adapters/repository"
	"github.com/okian/wandbrain/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func result(device, wand uint16, attempt uint32) model.FinalResult {
	return model.FinalResult{
		Device:      device,
		Wand:        wand,
		AttemptID:   attempt,
		NumPoints:   10,
		StartMS:     100,
		EndMS:       200,
		FinalizedAt: time.Unix(int64(attempt), 0),
		RenderPath:  "out.png",
		Reason:      "stroke_end",
	}
}

func TestMemoryStore(t *testing.T) {
	Convey("Given an empty memory store", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore()

		Convey("When looking up anything", func() {
			_, errLatest := s.Latest(ctx, 1, 1)
			_, errAttempt := s.ByAttempt(ctx, 42)

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(errLatest, repository.ErrNotFound), ShouldBeTrue)
				So(errors.Is(errAttempt, repository.ErrNotFound), ShouldBeTrue)
				So(s.Count(ctx), ShouldEqual, 0)
			})
		})

		Convey("When a result is stored", func() {
			want := result(1, 2, 42)
			So(s.Put(ctx, want), ShouldBeNil)

			Convey("Then it is reachable by wand and by attempt", func() {
				got, err := s.Latest(ctx, 1, 2)
				So(err, ShouldBeNil)
				if diff := cmp.Diff(want, got); diff != "" {
					t.Errorf("latest mismatch (-want +got):\n%s", diff)
				}
				byID, err := s.ByAttempt(ctx, 42)
				So(err, ShouldBeNil)
				So(byID, ShouldResemble, want)
			})
		})

		Convey("When a newer attempt finalizes on the same wand", func() {
			So(s.Put(ctx, result(1, 2, 42)), ShouldBeNil)
			So(s.Put(ctx, result(1, 2, 43)), ShouldBeNil)

			Convey("Then latest is overwritten and both attempts stay indexed", func() {
				got, _ := s.Latest(ctx, 1, 2)
				So(got.AttemptID, ShouldEqual, uint32(43))
				_, err := s.ByAttempt(ctx, 42)
				So(err, ShouldBeNil)
				So(s.Count(ctx), ShouldEqual, 2)
			})
		})

		Convey("When a result without points is stored", func() {
			bad := result(1, 1, 1)
			bad.NumPoints = 0
			err := s.Put(ctx, bad)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, repository.ErrInvalidResult), ShouldBeTrue)
			})
		})

		Convey("When a score is attached", func() {
			So(s.Put(ctx, result(3, 4, 7)), ShouldBeNil)
			score := model.ScoreResult{TemplateID: "circle_v1", TemplateName: "Circle V1", Score: 91.25}
			updated, err := s.AttachScore(ctx, result(3, 4, 7), score)

			Convey("Then both views carry the score", func() {
				So(err, ShouldBeNil)
				So(updated.Scored(), ShouldBeTrue)
				byID, _ := s.ByAttempt(ctx, 7)
				So(*byID.Score, ShouldResemble, score)
				latest, _ := s.Latest(ctx, 3, 4)
				So(latest.Score, ShouldNotBeNil)
				So(latest.Score.TemplateID, ShouldEqual, "circle_v1")
			})

			Convey("And scoring an unknown attempt fails", func() {
				_, err := s.AttachScore(ctx, result(3, 4, 999), score)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a score arrives after the wand moved on", func() {
			So(s.Put(ctx, result(3, 4, 7)), ShouldBeNil)
			So(s.Put(ctx, result(3, 4, 8)), ShouldBeNil)
			_, err := s.AttachScore(ctx, result(3, 4, 7), model.ScoreResult{TemplateID: "heart_v1"})

			Convey("Then latest keeps the newer unscored attempt", func() {
				So(err, ShouldBeNil)
				latest, _ := s.Latest(ctx, 3, 4)
				So(latest.AttemptID, ShouldEqual, uint32(8))
				So(latest.Scored(), ShouldBeFalse)
			})
		})

		Convey("When two wands finalize the same attempt id", func() {
			first := result(1, 1, 1)
			first.RenderPath = "a.png"
			second := result(1, 2, 1)
			second.RenderPath = "b.png"
			second.FinalizedAt = first.FinalizedAt.Add(time.Second)
			So(s.Put(ctx, first), ShouldBeNil)
			So(s.Put(ctx, second), ShouldBeNil)

			_, err := s.AttachScore(ctx, first, model.ScoreResult{TemplateID: "circle_v1", Score: 80})

			Convey("Then a score for the older render is refused", func() {
				So(errors.Is(err, repository.ErrStale), ShouldBeTrue)
				byID, _ := s.ByAttempt(ctx, 1)
				So(byID.RenderPath, ShouldEqual, "b.png")
				So(byID.Scored(), ShouldBeFalse)
				latest, _ := s.Latest(ctx, 1, 2)
				So(latest.Scored(), ShouldBeFalse)
				latest, _ = s.Latest(ctx, 1, 1)
				So(latest.Scored(), ShouldBeFalse)
			})

			Convey("Then the current owner can still be scored", func() {
				updated, err := s.AttachScore(ctx, second, model.ScoreResult{TemplateID: "heart_v1", Score: 70})
				So(err, ShouldBeNil)
				So(updated.Wand, ShouldEqual, uint16(2))
				latest, _ := s.Latest(ctx, 1, 2)
				So(latest.Score.TemplateID, ShouldEqual, "heart_v1")
			})
		})
	})

	Convey("Given a store bounded to three attempts", t, func() {
		ctx := context.Background()
		s := repository.NewMemoryStore(repository.WithMaxResults(3))

		for i := uint32(1); i <= 5; i++ {
			So(s.Put(ctx, result(1, uint16(i), i)), ShouldBeNil)
		}

		Convey("Then the oldest attempts are evicted first", func() {
			So(s.Count(ctx), ShouldEqual, 3)
			So(s.Evicted(), ShouldEqual, uint64(2))
			for _, gone := range []uint32{1, 2} {
				_, err := s.ByAttempt(ctx, gone)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			}
			for _, kept := range []uint32{3, 4, 5} {
				_, err := s.ByAttempt(ctx, kept)
				So(err, ShouldBeNil)
			}
		})

		Convey("Then the latest map is unaffected by eviction", func() {
			got, err := s.Latest(ctx, 1, 1)
			So(err, ShouldBeNil)
			So(got.AttemptID, ShouldEqual, uint32(1))
		})

		Convey("When an old attempt id is stored again", func() {
			So(s.Put(ctx, result(1, 3, 3)), ShouldBeNil)
			So(s.Put(ctx, result(1, 6, 6)), ShouldBeNil)

			Convey("Then it is treated as the newest entry", func() {
				_, err := s.ByAttempt(ctx, 3)
				So(err, ShouldBeNil)
				_, err = s.ByAttempt(ctx, 4)
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
