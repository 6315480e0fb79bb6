package access

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGuard(t *testing.T) {
	Convey("An empty allow-list permits every address", t, func() {
		g := New(nil)
		So(g.IsAllowed("127.0.0.1:5332"), ShouldBeTrue)
		So(g.IsAllowed("10.0.0.7:80"), ShouldBeTrue)
	})

	Convey("A wildcard entry permits every address", t, func() {
		g := New([]string{"*"})
		So(g.IsAllowed("192.168.1.50:1234"), ShouldBeTrue)
	})

	Convey("A non-empty list admits only its members", t, func() {
		g := New([]string{"127.0.0.1"})
		So(g.IsAllowed("127.0.0.1:9999"), ShouldBeTrue)
		So(g.IsAllowed("10.0.0.7:80"), ShouldBeFalse)
	})

	Convey("Replace swaps the list atomically", t, func() {
		g := New([]string{"127.0.0.1"})
		g.Replace([]string{"10.0.0.7"})
		So(g.IsAllowed("127.0.0.1:1"), ShouldBeFalse)
		So(g.IsAllowed("10.0.0.7:1"), ShouldBeTrue)
	})
}
