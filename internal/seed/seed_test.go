package seed_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	repository "github.com/okian/milepost/internal/adapters/repository"
	"github.com/okian/milepost/internal/domain/level"
	"github.com/okian/milepost/internal/seed"
	. "github.com/smartystreets/goconvey/convey"
)

const fixtureYAML = `
stations:
  - id: st-a
    name: Knots
    order: 1
    active: true
    categories:
      - id: cat-a
        label: Technique
        requirements:
          - id: req-a1
            label: Figure eight
          - id: req-a2
            label: Clove hitch
  - id: st-b
    name: Belay
    order: 2
    active: true
profiles:
  - id: admin-1
    display_name: Sam
    admin: true
  - id: trainee-1
progress:
  - id: prog-a
    trainee_id: trainee-1
    station_id: st-a
`

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAndApply(t *testing.T) {
	ctx := context.Background()

	Convey("Given a valid fixture file", t, func() {
		path := writeFixture(t, fixtureYAML)

		Convey("When loading it", func() {
			f, err := seed.Load(path)

			Convey("Then all documents parse", func() {
				So(err, ShouldBeNil)
				So(f.Stations, ShouldHaveLength, 2)
				So(f.Stations[0].Categories[0].Requirements, ShouldHaveLength, 2)
				So(f.Profiles, ShouldHaveLength, 2)
				So(f.Profiles[0].Admin, ShouldBeTrue)
				So(f.Progress, ShouldHaveLength, 1)
			})

			Convey("And applying it provisions the store", func() {
				So(err, ShouldBeNil)
				store := repository.NewMemStore()
				seed.Apply(store, f)

				stations, err := store.Stations(ctx)
				So(err, ShouldBeNil)
				So(stations, ShouldHaveLength, 2)

				p, err := store.Progress(ctx, "prog-a")
				So(err, ShouldBeNil)
				So(p.Level, ShouldEqual, level.Developing)
				So(p.AttemptsCount, ShouldEqual, 0)
			})
		})
	})

	Convey("Given broken fixtures", t, func() {
		Convey("When the file is missing", func() {
			_, err := seed.Load("/nonexistent/seed.yaml")
			So(errors.Is(err, seed.ErrLoadFixture), ShouldBeTrue)
		})

		Convey("When a progress record references an unknown station", func() {
			path := writeFixture(t, `
stations:
  - id: st-a
    name: Knots
    order: 1
progress:
  - id: prog-x
    trainee_id: trainee-1
    station_id: st-nope
`)
			_, err := seed.Load(path)
			So(errors.Is(err, seed.ErrInvalidFixture), ShouldBeTrue)
		})

		Convey("When two stations share an id", func() {
			path := writeFixture(t, `
stations:
  - id: st-a
    name: One
    order: 1
  - id: st-a
    name: Two
    order: 2
`)
			_, err := seed.Load(path)
			So(errors.Is(err, seed.ErrInvalidFixture), ShouldBeTrue)
		})
	})
}
