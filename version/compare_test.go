package version

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCompare(t *testing.T) {
	Convey("Compare", t, func() {
		Convey("Should order versions semantically", func() {
			c, err := Compare("1.2.3", "1.2.2")
			So(err, ShouldBeNil)
			So(c, ShouldEqual, 1)

			c, _ = Compare("0.9.9", "1.0.0")
			So(c, ShouldEqual, -1)

			c, _ = Compare("2.0.0", "2.0.0")
			So(c, ShouldEqual, 0)
		})

		Convey("Should accept a v prefix", func() {
			c, err := Compare("v1.0.1", "1.0.0")
			So(err, ShouldBeNil)
			So(c, ShouldEqual, 1)
		})

		Convey("Should fail on malformed input", func() {
			_, err := Compare("not-a-version", "1.0.0")
			So(err, ShouldNotBeNil)
		})
	})
}
