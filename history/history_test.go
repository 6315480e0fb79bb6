package history

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"

	"github.com/vidgate/vidgate/filesystem"
	"github.com/vidgate/vidgate/key"
	"github.com/vidgate/vidgate/resolver"
)

func init() {
	filesystem.SetMemMapFs()
	viper.Set(key.HistorySaveOnResolve, true)
}

func okResult(url string) *resolver.Result {
	return &resolver.Result{
		Media:    &resolver.Media{URL: url},
		Strategy: "sniff",
		Elapsed:  120 * time.Millisecond,
	}
}

func TestHistory(t *testing.T) {
	Convey("Given a successful resolution", t, func() {
		// Each leaf re-runs this block, start from an empty registry.
		if saved, err := Get(); err == nil {
			for _, record := range saved {
				_ = Remove(record)
			}
		}

		source := "https://site.example.com/watch/1.html"

		Convey("When it is saved", func() {
			err := Save(source, okResult("https://cdn.example.com/a.m3u8"))
			So(err, ShouldBeNil)

			Convey("Then it can be read back", func() {
				saved, err := Get()
				So(err, ShouldBeNil)
				So(saved[source], ShouldNotBeNil)
				So(saved[source].StreamURL, ShouldEqual, "https://cdn.example.com/a.m3u8")
				So(saved[source].Strategy, ShouldEqual, "sniff")
				So(saved[source].Hits, ShouldEqual, 1)
			})

			Convey("Then re-saving bumps the hit count and replaces the stream", func() {
				err := Save(source, okResult("https://cdn.example.com/b.m3u8"))
				So(err, ShouldBeNil)

				saved, _ := Get()
				So(saved[source].StreamURL, ShouldEqual, "https://cdn.example.com/b.m3u8")
				So(saved[source].Hits, ShouldEqual, 2)
			})

			Convey("Then it can be removed", func() {
				saved, _ := Get()
				err := Remove(saved[source])
				So(err, ShouldBeNil)

				saved, _ = Get()
				So(saved[source], ShouldBeNil)
			})
		})

		Convey("A failed resolution is never recorded", func() {
			result := &resolver.Result{Err: resolver.ErrNoStrategy}
			So(Save("https://site.example.com/broken", result), ShouldBeNil)

			saved, _ := Get()
			So(saved["https://site.example.com/broken"], ShouldBeNil)
		})
	})
}
