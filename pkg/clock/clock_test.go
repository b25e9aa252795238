package clock_test

import (
	"testing"
	"time"

	"github.com/okian/streakd/pkg/clock"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDay(t *testing.T) {
	Convey("Given calendar days", t, func() {
		Convey("When truncating a timestamp", func() {
			ts := time.Date(2024, 3, 15, 23, 45, 0, 0, time.UTC)
			d := clock.DayOf(ts, time.UTC)

			Convey("Then the day keeps only the date parts", func() {
				So(d.Year, ShouldEqual, 2024)
				So(d.Month, ShouldEqual, time.March)
				So(d.Dom, ShouldEqual, 15)
				So(d.String(), ShouldEqual, "2024-03-15")
			})
		})

		Convey("When adding days across a month boundary", func() {
			d := clock.Day{Year: 2024, Month: time.January, Dom: 31}
			next := d.AddDays(1)

			Convey("Then the calendar rolls over", func() {
				So(next.Month, ShouldEqual, time.February)
				So(next.Dom, ShouldEqual, 1)
			})
		})

		Convey("When comparing days", func() {
			a := clock.Day{Year: 2024, Month: time.May, Dom: 1}
			b := clock.Day{Year: 2024, Month: time.May, Dom: 3}

			Convey("Then ordering and zero checks hold", func() {
				So(a.Before(b), ShouldBeTrue)
				So(b.Before(a), ShouldBeFalse)
				So(a.IsZero(), ShouldBeFalse)
				So(clock.Day{}.IsZero(), ShouldBeTrue)
			})
		})
	})
}

func TestFixedClock(t *testing.T) {
	Convey("Given a fixed clock", t, func() {
		base := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
		clk := clock.NewFixed(base)

		Convey("When reading the current time", func() {
			So(clk.Now().Equal(base), ShouldBeTrue)
		})

		Convey("When computing day distances", func() {
			a := clk.StartOfDay(base)
			b := clk.StartOfDay(base.AddDate(0, 0, 4))

			So(clk.DaysBetween(a, b), ShouldEqual, 4)
			So(clk.DaysBetween(b, a), ShouldEqual, -4)
			So(clk.DaysBetween(a, a), ShouldEqual, 0)
		})

		Convey("When advancing the clock past midnight", func() {
			before := clk.StartOfDay(clk.Now())
			clk.Advance(13 * time.Hour)
			after := clk.StartOfDay(clk.Now())

			So(clk.DaysBetween(before, after), ShouldEqual, 1)
		})
	})
}
