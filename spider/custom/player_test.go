package custom

import (
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	lua "github.com/yuin/gopher-lua"

	"github.com/vidgate/vidgate/filesystem"
	"github.com/vidgate/vidgate/where"
)

func init() {
	filesystem.SetMemMapFs()
}

func writeScript(name, body string) string {
	path := filepath.Join(where.Spiders(), name)
	_ = filesystem.API().WriteFile(path, []byte(body), 0644)
	return path
}

func TestDescriptorFromTable(t *testing.T) {
	Convey("descriptorFromTable", t, func() {
		L := lua.NewState()
		defer L.Close()

		Convey("Should extract a full descriptor", func() {
			header := L.NewTable()
			header.RawSetString("Referer", lua.LString("https://site.example.com/"))

			tbl := L.NewTable()
			tbl.RawSetString("parse", lua.LNumber(0))
			tbl.RawSetString("url", lua.LString("https://cdn.example.com/index.m3u8"))
			tbl.RawSetString("header", header)

			d, err := descriptorFromTable(tbl)
			So(err, ShouldBeNil)
			So(d.Parse, ShouldEqual, 0)
			So(d.URL, ShouldEqual, "https://cdn.example.com/index.m3u8")
			So(d.Header["Referer"], ShouldEqual, "https://site.example.com/")
		})

		Convey("Should accept parse as a numeric string", func() {
			tbl := L.NewTable()
			tbl.RawSetString("parse", lua.LString("1"))
			tbl.RawSetString("url", lua.LString("https://site.example.com/watch/1.html"))
			tbl.RawSetString("playUrl", lua.LString("https://api.example.com/parse?url="))

			d, err := descriptorFromTable(tbl)
			So(err, ShouldBeNil)
			So(d.Parse, ShouldEqual, 1)
			So(d.PlayURL, ShouldEqual, "https://api.example.com/parse?url=")
			So(d.StreamURL(), ShouldEqual, "https://api.example.com/parse?url=https://site.example.com/watch/1.html")
		})

		Convey("Should fail without a url", func() {
			tbl := L.NewTable()
			tbl.RawSetString("parse", lua.LNumber(0))

			_, err := descriptorFromTable(tbl)
			So(err, ShouldNotBeNil)
		})

		Convey("Should reject parse values outside 0 and 1", func() {
			tbl := L.NewTable()
			tbl.RawSetString("parse", lua.LNumber(2))
			tbl.RawSetString("url", lua.LString("https://site.example.com/"))

			_, err := descriptorFromTable(tbl)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestLoadSpider(t *testing.T) {
	Convey("LoadSpider", t, func() {
		Convey("Should load a script defining PlayerContent", func() {
			path := writeScript("demo.lua", `
				function PlayerContent(flag, id, vipFlags)
					return {
						parse = 0,
						url = "https://cdn.example.com/streams/" .. id .. "/index.m3u8",
						header = { Referer = "https://site.example.com/" },
					}
				end
			`)

			s, err := LoadSpider(path)
			So(err, ShouldBeNil)
			So(s.Name(), ShouldEqual, "demo")
			So(s.ID(), ShouldEqual, "demo custom")

			d, err := s.PlayerContent("play", "ep42", nil)
			So(err, ShouldBeNil)
			So(d.Parse, ShouldEqual, 0)
			So(d.URL, ShouldEqual, "https://cdn.example.com/streams/ep42/index.m3u8")
			So(d.Header["Referer"], ShouldEqual, "https://site.example.com/")
		})

		Convey("Should run Init once when defined", func() {
			path := writeScript("initful.lua", `
				base = ""
				function Init()
					base = "https://initialized.example.com"
				end
				function PlayerContent(flag, id, vipFlags)
					return { parse = 1, url = base .. "/" .. id }
				end
			`)

			s, err := LoadSpider(path)
			So(err, ShouldBeNil)

			d, err := s.PlayerContent("play", "x", nil)
			So(err, ShouldBeNil)
			So(d.URL, ShouldEqual, "https://initialized.example.com/x")
		})

		Convey("Should receive vip flags as a table", func() {
			path := writeScript("vip.lua", `
				function PlayerContent(flag, id, vipFlags)
					return { parse = 1, url = "https://x.example.com/" .. tostring(#vipFlags) }
				end
			`)

			s, err := LoadSpider(path)
			So(err, ShouldBeNil)

			d, err := s.PlayerContent("play", "x", []string{"a.com", "b.com"})
			So(err, ShouldBeNil)
			So(d.URL, ShouldEqual, "https://x.example.com/2")
		})

		Convey("Should reject a script without PlayerContent", func() {
			path := writeScript("broken.lua", `local x = 1`)

			_, err := LoadSpider(path)
			So(err, ShouldNotBeNil)
		})
	})
}
