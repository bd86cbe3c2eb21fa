package app_test

import (
	"context"
	"errors"
	"testing"

	repository "github.com/okian/milepost/internal/adapters/repository"
	"github.com/okian/milepost/internal/app"
	"github.com/okian/milepost/internal/domain/level"
	"github.com/okian/milepost/internal/domain/model"
	"github.com/okian/milepost/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

// ladder seeds the three-station scenario: A (order 1, two requirements),
// B (order 2, one requirement), C (order 3, zero categories, terminal).
func ladder(store *repository.MemStore) {
	store.PutStation(model.Station{
		ID: "st-a", Name: "Knots", Order: 1, Active: true,
		Categories: []model.Category{{
			ID: "cat-a", Label: "Technique",
			Requirements: []model.Requirement{
				{ID: "req-a1", Label: "Figure eight"},
				{ID: "req-a2", Label: "Clove hitch"},
			},
		}},
	})
	store.PutStation(model.Station{
		ID: "st-b", Name: "Belay", Order: 2, Active: true,
		Categories: []model.Category{{
			ID: "cat-b", Label: "Safety",
			Requirements: []model.Requirement{
				{ID: "req-b1", Label: "Brake hand"},
			},
		}},
	})
	store.PutStation(model.Station{ID: "st-c", Name: "Capstone", Order: 3, Active: true})

	store.PutProfile(model.Profile{ID: "admin-1", Admin: true})
	store.PutProfile(model.Profile{ID: "grader-1", CanEvaluate: map[string]bool{"st-a": true}})
	store.PutProfile(model.Profile{ID: "trainee-1"})

	store.PutProgress(model.Progress{ID: "prog-a", TraineeID: "trainee-1", StationID: "st-a", Level: level.Developing})
	store.PutProgress(model.Progress{ID: "prog-b", TraineeID: "trainee-1", StationID: "st-b", Level: level.Developing})
	store.PutProgress(model.Progress{ID: "prog-c", TraineeID: "trainee-1", StationID: "st-c", Level: level.Developing})
}

func startService(store *repository.MemStore) *app.Service {
	svc := app.New(app.WithStore(store))
	_ = svc.Start(context.Background())
	return svc
}

func masteryA() map[string]level.Level {
	return map[string]level.Level{
		"req-a1": level.Mastery,
		"req-a2": level.Mastery,
	}
}

func TestAuthorizationGate(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with the ladder fixture", t, func() {
		store := repository.NewMemStore()
		ladder(store)
		svc := startService(store)
		defer svc.Stop()

		base := app.GradeRequest{
			ProgressID:         "prog-a",
			TraineeID:          "trainee-1",
			StationID:          "st-a",
			RequirementRatings: masteryA(),
		}

		Convey("When required identifiers are missing", func() {
			req := base
			req.GraderID = "admin-1"
			req.StationID = ""
			_, err := svc.Grade(ctx, req)

			Convey("Then the request is rejected before touching the store", func() {
				So(errors.Is(err, app.ErrBadRequest), ShouldBeTrue)
			})
		})

		Convey("When the caller has no identity", func() {
			_, err := svc.Grade(ctx, base)
			So(errors.Is(err, app.ErrUnauthenticated), ShouldBeTrue)
		})

		Convey("When the caller has no profile record", func() {
			req := base
			req.GraderID = "ghost"
			_, err := svc.Grade(ctx, req)
			So(errors.Is(err, app.ErrForbidden), ShouldBeTrue)
		})

		Convey("When the caller grades themselves", func() {
			req := base
			req.GraderID = "trainee-1"
			_, err := svc.Grade(ctx, req)
			So(errors.Is(err, app.ErrForbidden), ShouldBeTrue)

			Convey("And being admin does not help", func() {
				store.PutProfile(model.Profile{ID: "trainee-1", Admin: true})
				_, err := svc.Grade(ctx, req)
				So(errors.Is(err, app.ErrForbidden), ShouldBeTrue)
			})
		})

		Convey("When the caller has neither admin nor a station grant", func() {
			req := base
			req.GraderID = "grader-1"
			req.ProgressID = "prog-b"
			req.StationID = "st-b"
			req.RequirementRatings = map[string]level.Level{"req-b1": level.Mastery}
			_, err := svc.Grade(ctx, req)
			So(errors.Is(err, app.ErrForbidden), ShouldBeTrue)
		})

		Convey("When the caller holds a per-station grant", func() {
			req := base
			req.GraderID = "grader-1"
			_, err := svc.Grade(ctx, req)
			So(err, ShouldBeNil)
		})

		Convey("Then failed gates leave no trace in the store", func() {
			req := base
			req.GraderID = "trainee-1"
			_, _ = svc.Grade(ctx, req)

			p, err := store.Progress(ctx, "prog-a")
			So(err, ShouldBeNil)
			So(p.AttemptsCount, ShouldEqual, 0)
			entries, err := svc.History(ctx, "prog-a")
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
		})
	})
}

func TestGradingTransaction(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with the ladder fixture", t, func() {
		store := repository.NewMemStore()
		ladder(store)
		svc := startService(store)
		defer svc.Stop()

		Convey("When grading an unknown station", func() {
			_, err := svc.Grade(ctx, app.GradeRequest{
				ProgressID: "prog-a", TraineeID: "trainee-1",
				StationID: "st-zzz", GraderID: "admin-1",
			})
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("When grading an unknown progress record", func() {
			_, err := svc.Grade(ctx, app.GradeRequest{
				ProgressID: "prog-zzz", TraineeID: "trainee-1",
				StationID: "st-a", GraderID: "admin-1",
				RequirementRatings: masteryA(),
			})

			Convey("Then it fails NotFound with no partial writes", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				entries, err := svc.History(ctx, "prog-a")
				So(err, ShouldBeNil)
				So(entries, ShouldBeEmpty)
			})
		})

		Convey("When a grade succeeds", func() {
			score := 92.0
			res, err := svc.Grade(ctx, app.GradeRequest{
				ProgressID: "prog-a", TraineeID: "trainee-1",
				StationID: "st-a", GraderID: "admin-1",
				Comment: "clean figure eight", Score: &score,
				RequirementRatings: map[string]level.Level{
					"req-a1": level.Mastery,
					"req-a2": level.Proficient,
				},
			})

			Convey("Then the result is the min over requirements", func() {
				So(err, ShouldBeNil)
				So(res.Level, ShouldEqual, level.Proficient)
				So(res.CategoryGrades["cat-a"], ShouldEqual, level.Proficient)
			})

			Convey("And the snapshot and history agree exactly", func() {
				So(err, ShouldBeNil)

				p, err := store.Progress(ctx, "prog-a")
				So(err, ShouldBeNil)
				So(p.Level, ShouldEqual, level.Proficient)
				So(*p.Score, ShouldEqual, 92.0)
				So(p.LastEvaluatorID, ShouldEqual, "admin-1")
				So(p.AttemptsCount, ShouldEqual, 1)

				entries, err := svc.History(ctx, "prog-a")
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
				So(entries[0].To.Level, ShouldEqual, res.Level)
				So(*entries[0].To.Score, ShouldEqual, 92.0)
				So(entries[0].From.Level, ShouldEqual, level.Developing)
				So(entries[0].From.Score, ShouldBeNil)
				So(entries[0].Comment, ShouldEqual, "clean figure eight")
				So(entries[0].At, ShouldEqual, p.UpdatedAt)
				So(entries[0].Rubric.CategoryGrades["cat-a"], ShouldEqual, level.Proficient)
				So(entries[0].Rubric.Categories, ShouldHaveLength, 1)
			})

			Convey("And a second grade appends history newest first", func() {
				So(err, ShouldBeNil)
				_, err := svc.Grade(ctx, app.GradeRequest{
					ProgressID: "prog-a", TraineeID: "trainee-1",
					StationID: "st-a", GraderID: "admin-1",
					RequirementRatings: masteryA(),
				})
				So(err, ShouldBeNil)

				p, err := store.Progress(ctx, "prog-a")
				So(err, ShouldBeNil)
				So(p.AttemptsCount, ShouldEqual, 2)

				entries, err := svc.History(ctx, "prog-a")
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].To.Level, ShouldEqual, level.Mastery)
				So(entries[0].From.Level, ShouldEqual, level.Proficient)
			})
		})

		Convey("When grading the zero-category capstone", func() {
			res, err := svc.Grade(ctx, app.GradeRequest{
				ProgressID: "prog-c", TraineeID: "trainee-1",
				StationID: "st-c", GraderID: "admin-1",
				RequirementRatings: map[string]level.Level{"req-anything": level.Mastery},
			})

			Convey("Then the grade is developing regardless of input", func() {
				So(err, ShouldBeNil)
				So(res.Level, ShouldEqual, level.Developing)
				So(res.CategoryGrades, ShouldBeEmpty)
			})
		})
	})
}

func TestEligibilitySweep(t *testing.T) {
	ctx := context.Background()

	Convey("Given a trainee with no progress graded yet", t, func() {
		store := repository.NewMemStore()
		ladder(store)
		svc := startService(store)
		defer svc.Stop()

		gradeA := func(ratings map[string]level.Level) {
			_, err := svc.Grade(ctx, app.GradeRequest{
				ProgressID: "prog-a", TraineeID: "trainee-1",
				StationID: "st-a", GraderID: "admin-1",
				RequirementRatings: ratings,
			})
			So(err, ShouldBeNil)
		}
		gradeB := func(lvl level.Level) {
			_, err := svc.Grade(ctx, app.GradeRequest{
				ProgressID: "prog-b", TraineeID: "trainee-1",
				StationID: "st-b", GraderID: "admin-1",
				RequirementRatings: map[string]level.Level{"req-b1": lvl},
			})
			So(err, ShouldBeNil)
		}

		Convey("When A is graded to mastery", func() {
			gradeA(masteryA())

			Convey("Then A stays ineligible until B reaches proficient", func() {
				view, err := svc.Eligibility(ctx, "trainee-1")
				So(err, ShouldBeNil)
				So(view.CanEvaluate["st-a"], ShouldBeFalse)
				So(view.CanEvaluate["st-b"], ShouldBeFalse)
				So(view.CanEvaluate["st-c"], ShouldBeFalse)
			})

			Convey("And once B is proficient, A unlocks", func() {
				gradeB(level.Proficient)

				view, err := svc.Eligibility(ctx, "trainee-1")
				So(err, ShouldBeNil)
				So(view.CanEvaluate["st-a"], ShouldBeTrue)

				Convey("But B itself stays locked without mastery on B", func() {
					So(view.CanEvaluate["st-b"], ShouldBeFalse)
				})
			})

			Convey("And with B mastered, B still needs proficient on C", func() {
				gradeB(level.Mastery)

				view, err := svc.Eligibility(ctx, "trainee-1")
				So(err, ShouldBeNil)
				So(view.CanEvaluate["st-a"], ShouldBeTrue)
				// C has no rubric, so it can never leave developing and
				// neither B's successor clause nor C's capstone clause
				// can ever pass.
				So(view.CanEvaluate["st-b"], ShouldBeFalse)
				So(view.CanEvaluate["st-c"], ShouldBeFalse)
			})
		})

		Convey("When the capstone can actually be mastered", func() {
			// Swap C for a gradeable terminal station.
			store.PutStation(model.Station{
				ID: "st-c", Name: "Capstone", Order: 3, Active: true,
				Categories: []model.Category{{
					ID: "cat-c", Label: "Final",
					Requirements: []model.Requirement{{ID: "req-c1", Label: "Full run"}},
				}},
			})
			gradeA(masteryA())
			gradeB(level.Mastery)
			_, err := svc.Grade(ctx, app.GradeRequest{
				ProgressID: "prog-c", TraineeID: "trainee-1",
				StationID: "st-c", GraderID: "admin-1",
				RequirementRatings: map[string]level.Level{"req-c1": level.Mastery},
			})
			So(err, ShouldBeNil)

			Convey("Then full mastery unlocks every station including the terminal one", func() {
				view, err := svc.Eligibility(ctx, "trainee-1")
				So(err, ShouldBeNil)
				So(view.CanEvaluate["st-a"], ShouldBeTrue)
				So(view.CanEvaluate["st-b"], ShouldBeTrue)
				So(view.CanEvaluate["st-c"], ShouldBeTrue)
			})
		})

		Convey("When the sweep runs twice with no grade in between", func() {
			gradeA(masteryA())
			first, err := svc.Eligibility(ctx, "trainee-1")
			So(err, ShouldBeNil)

			So(svc.RecomputeEligibility(ctx, "trainee-1"), ShouldBeNil)
			second, err := svc.Eligibility(ctx, "trainee-1")
			So(err, ShouldBeNil)

			Convey("Then the map is identical (idempotence)", func() {
				So(second.CanEvaluate, ShouldResemble, first.CanEvaluate)
			})
		})

		Convey("When inactive stations are in the catalog", func() {
			store.PutStation(model.Station{ID: "st-retired", Name: "Retired", Order: 99, Active: false})
			gradeA(masteryA())

			Convey("Then they do not participate in the ordering", func() {
				view, err := svc.Eligibility(ctx, "trainee-1")
				So(err, ShouldBeNil)
				So(view.CanEvaluate, ShouldNotContainKey, "st-retired")
			})
		})

		Convey("When two active stations share an order value", func() {
			store.PutStation(model.Station{ID: "st-dup", Name: "Duplicate", Order: 2, Active: true})

			Convey("Then the sweep refuses to compute", func() {
				err := svc.RecomputeEligibility(ctx, "trainee-1")
				So(errors.Is(err, app.ErrBadOrdering), ShouldBeTrue)
			})

			Convey("And a grade still commits despite the failing sweep", func() {
				res, err := svc.Grade(ctx, app.GradeRequest{
					ProgressID: "prog-a", TraineeID: "trainee-1",
					StationID: "st-a", GraderID: "admin-1",
					RequirementRatings: masteryA(),
				})
				So(err, ShouldBeNil)
				So(res.Level, ShouldEqual, level.Mastery)

				p, err := store.Progress(ctx, "prog-a")
				So(err, ShouldBeNil)
				So(p.AttemptsCount, ShouldEqual, 1)
			})
		})

		Convey("When the sweep targets a trainee without a profile", func() {
			store.PutProgress(model.Progress{ID: "prog-x", TraineeID: "no-profile", StationID: "st-a"})

			Convey("Then it is a no-op, not an error", func() {
				So(svc.RecomputeEligibility(ctx, "no-profile"), ShouldBeNil)
			})
		})
	})
}
