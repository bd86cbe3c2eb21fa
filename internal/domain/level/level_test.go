package level_test

import (
	"testing"

	"github.com/okian/milepost/internal/domain/level"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given arbitrary rating input", t, func() {
		Convey("When the input is a known label", func() {
			So(level.Parse("developing"), ShouldEqual, level.Developing)
			So(level.Parse("proficient"), ShouldEqual, level.Proficient)
			So(level.Parse("mastery"), ShouldEqual, level.Mastery)
		})

		Convey("When the input has odd casing or whitespace", func() {
			So(level.Parse("  Mastery "), ShouldEqual, level.Mastery)
			So(level.Parse("PROFICIENT"), ShouldEqual, level.Proficient)
		})

		Convey("When the input is unknown or empty", func() {
			Convey("Then it normalizes to developing, never an error", func() {
				So(level.Parse(""), ShouldEqual, level.Developing)
				So(level.Parse("expert"), ShouldEqual, level.Developing)
				So(level.Parse("master"), ShouldEqual, level.Developing)
				So(level.Parse("null"), ShouldEqual, level.Developing)
			})
		})
	})
}

func TestOrdering(t *testing.T) {
	Convey("Given the three ratings", t, func() {
		Convey("Then ranks follow developing < proficient < mastery", func() {
			So(level.Rank(level.Developing), ShouldEqual, 0)
			So(level.Rank(level.Proficient), ShouldEqual, 1)
			So(level.Rank(level.Mastery), ShouldEqual, 2)
		})

		Convey("Then unknown values rank lowest", func() {
			So(level.Rank(level.Level("guru")), ShouldEqual, 0)
		})

		Convey("When taking the minimum of two levels", func() {
			So(level.Min(level.Mastery, level.Proficient), ShouldEqual, level.Proficient)
			So(level.Min(level.Developing, level.Mastery), ShouldEqual, level.Developing)
			So(level.Min(level.Proficient, level.Proficient), ShouldEqual, level.Proficient)

			Convey("And unknown operands collapse to developing", func() {
				So(level.Min(level.Level("bogus"), level.Mastery), ShouldEqual, level.Developing)
				So(level.Min(level.Mastery, level.Level("bogus")), ShouldEqual, level.Developing)
			})
		})

		Convey("When comparing with AtLeast", func() {
			So(level.AtLeast(level.Mastery, level.Proficient), ShouldBeTrue)
			So(level.AtLeast(level.Proficient, level.Proficient), ShouldBeTrue)
			So(level.AtLeast(level.Developing, level.Proficient), ShouldBeFalse)
			So(level.AtLeast(level.Level("bogus"), level.Developing), ShouldBeTrue)
		})
	})
}
