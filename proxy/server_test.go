package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/vidgate/vidgate/access"
	"github.com/vidgate/vidgate/cache"
	"github.com/vidgate/vidgate/filesystem"
	"github.com/vidgate/vidgate/resolver"
)

func init() {
	filesystem.SetMemMapFs()
}

type countingStrategy struct {
	media *resolver.Media
	calls int
}

func (s *countingStrategy) Name() string                 { return "counting" }
func (s *countingStrategy) CanHandle(url, _ string) bool { return true }

func (s *countingStrategy) Resolve(ctx context.Context, url, _ string) (*resolver.Media, error) {
	s.calls++
	return s.media, nil
}

func startServer(t *testing.T, opts Options) (*Server, string) {
	t.Helper()

	if opts.Chain == nil {
		opts.Chain = resolver.NewChain(0, resolver.Sniff{})
	}

	server := NewServer(opts)
	port, err := server.Start(0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(server.Stop)

	return server, "http://127.0.0.1:" + strconv.Itoa(port)
}

func TestStartStop(t *testing.T) {
	Convey("Given a stopped server", t, func() {
		server := NewServer(Options{Chain: resolver.NewChain(0)})

		Convey("Start with port 0 binds any free port", func() {
			port, err := server.Start(0)
			So(err, ShouldBeNil)
			So(port, ShouldBeGreaterThan, 0)
			So(server.Port(), ShouldEqual, port)

			Convey("A second Start fails while running", func() {
				_, err := server.Start(0)
				So(err, ShouldNotBeNil)
			})

			Convey("Stop is idempotent", func() {
				server.Stop()
				server.Stop()
				So(server.Port(), ShouldEqual, 0)
			})
		})

		Convey("Stop before Start is harmless", func() {
			server.Stop()
		})
	})
}

func TestPlayerDirectMedia(t *testing.T) {
	Convey("Given an origin serving a direct stream", t, func() {
		origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
			w.Write([]byte("#EXTM3U\n#EXT-X-ENDLIST\n"))
		}))
		defer origin.Close()

		_, base := startServer(t, Options{})
		streamURL := origin.URL + "/streams/abcdef/index.m3u8"

		Convey("The player route streams it through the sniff strategy", func() {
			resp, err := http.Get(base + "/player?url=" + url.QueryEscape(streamURL))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(body), ShouldContainSubstring, "#EXTM3U")
			So(resp.Header.Get("Content-Type"), ShouldEqual, "application/vnd.apple.mpegurl")
		})
	})
}

func TestPlayerStructuredResponse(t *testing.T) {
	Convey("Given a parser endpoint and a stream origin", t, func() {
		cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "video/mp4")
			w.Write([]byte("mp4-bytes"))
		}))
		defer cdn.Close()

		streamURL := cdn.URL + "/videos/full-feature.mp4"
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code":200,"data":{"url":"` + streamURL + `"}}`))
		}))
		defer api.Close()

		chain := resolver.NewChain(0, resolver.NewJSONAPI(api.URL+"/parse"))
		_, base := startServer(t, Options{Chain: chain})

		Convey("The player route resolves through the json strategy", func() {
			resp, err := http.Get(base + "/player?url=" + url.QueryEscape("http://site.example.com/watch/1.html"))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(string(body), ShouldEqual, "mp4-bytes")
		})
	})
}

func TestPlayerCache(t *testing.T) {
	Convey("Given a caching player route", t, func() {
		cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("stream"))
		}))
		defer cdn.Close()

		strategy := &countingStrategy{media: &resolver.Media{URL: cdn.URL + "/s"}}
		streams := cache.New[resolver.Media](cache.Options{Name: "player_test", Tier: cache.TierMemory})
		defer streams.Close()

		server, _ := startServer(t, Options{
			Chain:   resolver.NewChain(0, strategy),
			Streams: streams,
		})

		playerURL := server.PlayerURL("http://site.example.com/watch/9.html", PlayerOptions{Cache: true})
		So(playerURL, ShouldContainSubstring, "cache=1")

		Convey("Repeated requests resolve only once", func() {
			for i := 0; i < 2; i++ {
				resp, err := http.Get(playerURL)
				So(err, ShouldBeNil)
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			}

			So(strategy.calls, ShouldEqual, 1)
			So(streams.Stats().Hits, ShouldEqual, 1)
		})
	})
}

func TestProxyRoute(t *testing.T) {
	Convey("Given the raw proxy route", t, func() {
		origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Origin", "yes")
			w.WriteHeader(http.StatusTeapot)
			w.Write([]byte("raw:" + r.Header.Get("X-Custom")))
		}))
		defer origin.Close()

		_, base := startServer(t, Options{})

		Convey("Status, body and headers pass through, caller headers forward", func() {
			req, _ := http.NewRequest(http.MethodGet, base+"/proxy?url="+url.QueryEscape(origin.URL+"/x"), nil)
			req.Header.Set("X-Custom", "hello")

			resp, err := http.DefaultClient.Do(req)
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)
			So(resp.StatusCode, ShouldEqual, http.StatusTeapot)
			So(resp.Header.Get("X-Origin"), ShouldEqual, "yes")
			So(string(body), ShouldEqual, "raw:hello")
		})
	})
}

func TestStatsRoute(t *testing.T) {
	Convey("Given a running server", t, func() {
		server, base := startServer(t, Options{})

		Convey("The stats route reports connection counters", func() {
			resp, err := http.Get(base + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			So(resp.Header.Get("Content-Type"), ShouldEqual, "application/json")

			var payload struct {
				Server Stats `json:"server"`
			}
			So(json.NewDecoder(resp.Body).Decode(&payload), ShouldBeNil)
			So(payload.Server.Total, ShouldBeGreaterThanOrEqualTo, 1)
			So(server.Stats().Rejected, ShouldEqual, 0)
		})
	})
}

func TestBadRequests(t *testing.T) {
	Convey("Given a running server", t, func() {
		_, base := startServer(t, Options{})

		Convey("A player request without url is a 400", func() {
			resp, err := http.Get(base + "/player")
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("An unknown resource path is a 404", func() {
			resp, err := http.Get(base + "/assets/logo.png")
			So(err, ShouldBeNil)
			resp.Body.Close()
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestAccessDenied(t *testing.T) {
	Convey("Given a server that allows only a foreign peer", t, func() {
		guard := access.New([]string{"10.1.2.3"})
		_, base := startServer(t, Options{Guard: guard})

		Convey("A loopback request is dropped without a response", func() {
			client := &http.Client{Timeout: 2 * time.Second}
			_, err := client.Get(base + "/stats")
			So(err, ShouldNotBeNil)
		})
	})
}
