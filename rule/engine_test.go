package rule

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidgate/vidgate/filesystem"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestPriority(t *testing.T) {
	Convey("Given two enabled rules matching the same URL", t, func() {
		e := NewEngine()
		e.Replace([]*Rule{
			{ID: "low", Pattern: "example.com", MatchKind: MatchURLPattern, Priority: 10, Enabled: true},
			{ID: "high", Pattern: "example.com", MatchKind: MatchURLPattern, Priority: 20, Enabled: true},
		})

		Convey("Match always returns the higher priority rule", func() {
			matched := e.Match("http://example.com/v", nil)
			So(matched.IsPresent(), ShouldBeTrue)
			So(matched.MustGet().ID, ShouldEqual, "high")
		})
	})
}

func TestMatchKinds(t *testing.T) {
	Convey("Base pattern tests", t, func() {
		e := NewEngine()

		check := func(r *Rule, url string) bool {
			r.Enabled = true
			e.Replace([]*Rule{r})
			return e.Match(url, nil).IsPresent()
		}

		Convey("urlPattern globs", func() {
			So(check(&Rule{ID: "a", Pattern: "http://*/video/*", MatchKind: MatchURLPattern}, "http://x.tv/video/1"), ShouldBeTrue)
			So(check(&Rule{ID: "b", Pattern: "http://x.tv", MatchKind: MatchURLPattern}, "http://x.tv/video/1"), ShouldBeTrue)
			So(check(&Rule{ID: "c", Pattern: "nothing", MatchKind: MatchURLPattern}, "http://x.tv/"), ShouldBeFalse)
		})

		Convey("domain matches the host exactly or by *. suffix", func() {
			So(check(&Rule{ID: "d", Pattern: "x.tv", MatchKind: MatchDomain}, "http://x.tv/v"), ShouldBeTrue)
			So(check(&Rule{ID: "e", Pattern: "*.x.tv", MatchKind: MatchDomain}, "http://cdn.x.tv/v"), ShouldBeTrue)
			So(check(&Rule{ID: "f", Pattern: "x.tv", MatchKind: MatchDomain}, "http://cdn.x.tv/v"), ShouldBeFalse)
		})

		Convey("path tests against the URL path only", func() {
			So(check(&Rule{ID: "g", Pattern: "/video", MatchKind: MatchPath}, "http://x.tv/video/1"), ShouldBeTrue)
			So(check(&Rule{ID: "h", Pattern: "/video", MatchKind: MatchPath}, "http://video.tv/other"), ShouldBeFalse)
		})

		Convey("regex is an unanchored search", func() {
			So(check(&Rule{ID: "i", Pattern: `\.m3u8$`, MatchKind: MatchRegex}, "http://x.tv/a.m3u8"), ShouldBeTrue)
		})

		Convey("exact requires full equality", func() {
			So(check(&Rule{ID: "j", Pattern: "http://x.tv/v", MatchKind: MatchExact}, "http://x.tv/v"), ShouldBeTrue)
			So(check(&Rule{ID: "k", Pattern: "http://x.tv/v", MatchKind: MatchExact}, "http://x.tv/v2"), ShouldBeFalse)
		})

		Convey("an invalid regex fails that rule only", func() {
			e.Replace([]*Rule{
				{ID: "broken", Pattern: "([", MatchKind: MatchRegex, Priority: 10, Enabled: true},
				{ID: "ok", Pattern: "x.tv", MatchKind: MatchURLPattern, Priority: 1, Enabled: true},
			})
			matched := e.Match("http://x.tv/v", nil)
			So(matched.IsPresent(), ShouldBeTrue)
			So(matched.MustGet().ID, ShouldEqual, "ok")
		})
	})
}

func TestConditions(t *testing.T) {
	Convey("Conditions are ANDed onto the base test", t, func() {
		e := NewEngine()
		e.Replace([]*Rule{{
			ID: "mobile", Pattern: "x.tv", MatchKind: MatchURLPattern, Enabled: true,
			Conditions: []Condition{
				{Source: SourceUserAgent, Operator: OpContains, Value: "Android"},
				{Source: SourceQueryParam, Key: "hd", Operator: OpEquals, Value: "1"},
			},
		}})

		ctx := &Context{
			UserAgent: "Mozilla/5.0 (Linux; Android 13)",
			Query:     map[string]string{"hd": "1"},
			Now:       time.Now(),
		}

		Convey("All conditions holding fires the rule", func() {
			So(e.Match("http://x.tv/v", ctx).IsPresent(), ShouldBeTrue)
		})

		Convey("One failing condition rejects the rule", func() {
			ctx.Query["hd"] = "0"
			So(e.Match("http://x.tv/v", ctx).IsPresent(), ShouldBeFalse)
		})
	})
}

func TestApply(t *testing.T) {
	Convey("Apply", t, func() {
		e := NewEngine()

		Convey("An absolute target proxies through it verbatim with markers", func() {
			r := &Rule{ID: "jump", Pattern: "x.tv", Target: "https://mirror.tv/v"}
			app := e.Apply(r, "http://x.tv/v", nil)
			So(app.URL, ShouldEqual, "https://mirror.tv/v")
			So(app.Headers["X-Proxy-Rule"], ShouldEqual, "jump")
			So(app.Headers["X-Proxy-Target"], ShouldEqual, "https://mirror.tv/v")
		})

		Convey("A host:port target preserves the URL and delegates forwarding", func() {
			r := &Rule{ID: "fw", Pattern: "x.tv", Target: "127.0.0.1:8888"}
			app := e.Apply(r, "http://x.tv/v", nil)
			So(app.URL, ShouldEqual, "http://x.tv/v")
			So(app.ForwardHost, ShouldEqual, "127.0.0.1:8888")
		})

		Convey("Any other target substitutes the pattern literally", func() {
			r := &Rule{ID: "sub", Pattern: "x.tv", Target: "y.tv"}
			app := e.Apply(r, "http://x.tv/v", nil)
			So(app.URL, ShouldEqual, "http://y.tv/v")
		})
	})
}
