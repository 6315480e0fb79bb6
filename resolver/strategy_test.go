package resolver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PuerkitoBio/goquery"
	. "github.com/smartystreets/goconvey/convey"
)

func TestIsMediaURL(t *testing.T) {
	Convey("Direct stream containers are recognized", t, func() {
		So(IsMediaURL("https://cdn.example.com/streams/abc123/index.m3u8"), ShouldBeTrue)
		So(IsMediaURL("https://cdn.example.com/videos/movie-part1.mp4?token=x"), ShouldBeTrue)
		So(IsMediaURL("https://v1.example.com/video/tos/ab/video123"), ShouldBeTrue)
	})

	Convey("Pages and wrapped urls are not", t, func() {
		So(IsMediaURL("https://site.example.com/watch/ep-1.html"), ShouldBeFalse)
		So(IsMediaURL("https://site.example.com/jump?url=http://cdn/x.m3u8"), ShouldBeFalse)
		So(IsMediaURL("https://site.example.com/player?v=http://cdn/x.m3u8"), ShouldBeFalse)
		So(IsMediaURL("https://site.example.com/"), ShouldBeFalse)
	})
}

func TestSniff(t *testing.T) {
	Convey("Given the sniff strategy", t, func() {
		s := Sniff{}

		Convey("A direct media url succeeds without any request", func() {
			media, err := s.Resolve(context.Background(), "https://cdn.example.com/streams/abc123/index.m3u8", "")
			So(err, ShouldBeNil)
			So(media.URL, ShouldEqual, "https://cdn.example.com/streams/abc123/index.m3u8")
		})

		Convey("A stream content type marks the url playable", func() {
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
				w.Write([]byte("#EXTM3U\n"))
			}))
			defer origin.Close()

			media, err := s.Resolve(context.Background(), origin.URL+"/playlist", "")
			So(err, ShouldBeNil)
			So(media.URL, ShouldEqual, origin.URL+"/playlist")
		})

		Convey("An inline script url is extracted from the body", func() {
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.Write([]byte(`<script>var playUrl = "https://cdn.example.com/streams/abc123/index.m3u8";</script>`))
			}))
			defer origin.Close()

			media, err := s.Resolve(context.Background(), origin.URL+"/watch", "")
			So(err, ShouldBeNil)
			So(media.URL, ShouldEqual, "https://cdn.example.com/streams/abc123/index.m3u8")
			So(media.Referer, ShouldEqual, origin.URL+"/watch")
		})

		Convey("A redirect Location pointing at media resolves without following", func() {
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "https://cdn.example.com/streams/abc123/index.m3u8", http.StatusFound)
			}))
			defer origin.Close()

			media, err := s.Resolve(context.Background(), origin.URL+"/jump.php", "")
			So(err, ShouldBeNil)
			So(media.URL, ShouldEqual, "https://cdn.example.com/streams/abc123/index.m3u8")
			So(media.Referer, ShouldEqual, origin.URL+"/jump.php")
		})

		Convey("One redirect to a stream response is honored", func() {
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/jump.php" {
					http.Redirect(w, r, "/playlist", http.StatusFound)
					return
				}
				w.Header().Set("Content-Type", "video/mp4")
			}))
			defer origin.Close()

			media, err := s.Resolve(context.Background(), origin.URL+"/jump.php", "")
			So(err, ShouldBeNil)
			So(media.URL, ShouldEqual, origin.URL+"/playlist")
		})

		Convey("A chain of redirects is abandoned after one hop", func() {
			hops := 0
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hops++
				http.Redirect(w, r, "/hop", http.StatusFound)
			}))
			defer origin.Close()

			_, err := s.Resolve(context.Background(), origin.URL+"/jump.php", "")
			So(err, ShouldNotBeNil)
			So(hops, ShouldEqual, 2)
		})

		Convey("A plain page with no media fails", func() {
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.Write([]byte("<html><body>nothing here</body></html>"))
			}))
			defer origin.Close()

			_, err := s.Resolve(context.Background(), origin.URL+"/empty", "")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestJSONAPI(t *testing.T) {
	Convey("Given a structured parser endpoint", t, func() {
		Convey("Top-level url fields are probed in order", func() {
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"code":200,"play_url":"https://cdn.example.com/streams/x/index.m3u8"}`))
			}))
			defer origin.Close()

			j := NewJSONAPI(origin.URL + "/api")
			media, err := j.Resolve(context.Background(), "https://site.example.com/watch/1.html", "")
			So(err, ShouldBeNil)
			So(media.URL, ShouldEqual, "https://cdn.example.com/streams/x/index.m3u8")
		})

		Convey("Nested data.url is reached through the dotted probe", func() {
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"code":200,"data":{"url":"https://cdn.example.com/streams/y/index.m3u8"}}`))
			}))
			defer origin.Close()

			j := NewJSONAPI(origin.URL + "/api")
			media, err := j.Resolve(context.Background(), "https://site.example.com/watch/2.html", "")
			So(err, ShouldBeNil)
			So(media.URL, ShouldEqual, "https://cdn.example.com/streams/y/index.m3u8")
		})

		Convey("A header object is carried onto the media", func() {
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"url":"https://cdn.example.com/z.mp4","header":{"Referer":"https://site.example.com/"}}`))
			}))
			defer origin.Close()

			j := NewJSONAPI(origin.URL + "/api")
			media, err := j.Resolve(context.Background(), "https://site.example.com/watch/3.html", "")
			So(err, ShouldBeNil)
			So(media.Headers["Referer"], ShouldEqual, "https://site.example.com/")
		})

		Convey("The target arrives url-encoded on the endpoint", func() {
			var got string
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.URL.Query().Get("url")
				w.Write([]byte(`{"url":"https://cdn.example.com/a.mp4"}`))
			}))
			defer origin.Close()

			j := NewJSONAPI(origin.URL + "/api")
			_, err := j.Resolve(context.Background(), "https://site.example.com/watch?ep=1", "")
			So(err, ShouldBeNil)
			So(got, ShouldEqual, "https://site.example.com/watch?ep=1")
		})

		Convey("A response without any candidate field fails", func() {
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"code":404,"msg":"not found"}`))
			}))
			defer origin.Close()

			j := NewJSONAPI(origin.URL + "/api")
			_, err := j.Resolve(context.Background(), "https://site.example.com/watch/4.html", "")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPageScan(t *testing.T) {
	Convey("Given the page scan strategy", t, func() {
		p := PageScan{}

		Convey("A source tag yields its stream", func() {
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<video><source src="https://cdn.example.com/streams/abc/index.m3u8" type="application/x-mpegURL"></video>`))
			}))
			defer origin.Close()

			media, err := p.Resolve(context.Background(), origin.URL+"/watch", "")
			So(err, ShouldBeNil)
			So(media.URL, ShouldEqual, "https://cdn.example.com/streams/abc/index.m3u8")
		})

		Convey("An assignment pattern is matched without script execution", func() {
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<script>config = {"file": "https://cdn.example.com/videos/full-movie.mp4"}</script>`))
			}))
			defer origin.Close()

			media, err := p.Resolve(context.Background(), origin.URL+"/watch", "")
			So(err, ShouldBeNil)
			So(media.URL, ShouldEqual, "https://cdn.example.com/videos/full-movie.mp4")
		})

		Convey("An error status fails the scan", func() {
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			}))
			defer origin.Close()

			_, err := p.Resolve(context.Background(), origin.URL+"/watch", "")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestSite(t *testing.T) {
	Convey("Given the site strategy", t, func() {
		Convey("A registered handler takes over for its host", func() {
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html><p class="stream">https://cdn.example.com/handled.m3u8</p></html>`))
			}))
			defer origin.Close()

			s := NewSite()
			s.Handle("127.0.0.1", func(ctx context.Context, url string, doc *goquery.Document) (*Media, error) {
				return &Media{URL: doc.Find("p.stream").Text()}, nil
			})

			media, err := s.Resolve(context.Background(), origin.URL+"/watch", "")
			So(err, ShouldBeNil)
			So(media.URL, ShouldEqual, "https://cdn.example.com/handled.m3u8")
		})

		Convey("Without a handler the first player frame is followed", func() {
			frame := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<script>var url = "https://cdn.example.com/streams/deep/index.m3u8";</script>`))
			}))
			defer frame.Close()

			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html><iframe src="` + frame.URL + `/player"></iframe></html>`))
			}))
			defer origin.Close()

			media, err := NewSite().Resolve(context.Background(), origin.URL+"/watch", "")
			So(err, ShouldBeNil)
			So(media.URL, ShouldEqual, "https://cdn.example.com/streams/deep/index.m3u8")
		})

		Convey("A page without frames fails", func() {
			origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html><body>static</body></html>"))
			}))
			defer origin.Close()

			_, err := NewSite().Resolve(context.Background(), origin.URL+"/watch", "")
			So(err, ShouldNotBeNil)
		})
	})
}
