package bandwidth

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLimiter(t *testing.T) {
	Convey("Given a limiter with a 100 byte/window budget", t, func() {
		l := New(100, 50*time.Millisecond)

		Convey("A transfer within the budget is admitted", func() {
			So(l.CanTransfer(100), ShouldBeTrue)
		})

		Convey("An oversize transfer is admitted while budget is unconsumed", func() {
			So(l.CanTransfer(101), ShouldBeTrue)
		})

		Convey("A spent window refuses further transfers", func() {
			l.RecordTransfer(1, 100)
			So(l.CanTransfer(1), ShouldBeFalse)
			So(l.CanTransfer(101), ShouldBeFalse)
		})

		Convey("Budget recovers once the window rolls over", func() {
			l.RecordTransfer(1, 100)
			So(l.CanTransfer(1), ShouldBeFalse)

			time.Sleep(60 * time.Millisecond)
			So(l.CanTransfer(100), ShouldBeTrue)
			So(l.ConnectionBytes(1), ShouldEqual, 0)
		})

		Convey("An oversize transfer is admitted again after the rollover", func() {
			l.RecordTransfer(1, 101)
			So(l.CanTransfer(101), ShouldBeFalse)

			time.Sleep(l.CalculateDelay(101) + 60*time.Millisecond)
			So(l.CanTransfer(101), ShouldBeTrue)
		})

		Convey("Delay is proportional to the excess", func() {
			l.RecordTransfer(1, 100)
			So(l.CalculateDelay(50), ShouldBeGreaterThan, 0)
			So(l.CalculateDelay(0), ShouldEqual, 0)
		})

		Convey("Per-connection accounting is tracked separately", func() {
			l.RecordTransfer(1, 30)
			l.RecordTransfer(2, 20)
			So(l.ConnectionBytes(1), ShouldEqual, 30)
			So(l.ConnectionBytes(2), ShouldEqual, 20)
		})
	})

	Convey("Given an unlimited limiter", t, func() {
		l := New(0, time.Second)

		Convey("Everything is always admitted with no delay", func() {
			So(l.CanTransfer(1<<40), ShouldBeTrue)
			So(l.CalculateDelay(1<<40), ShouldEqual, 0)
		})
	})
}
