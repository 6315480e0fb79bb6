package cache

import (
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/vidgate/vidgate/filesystem"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestPutGet(t *testing.T) {
	Convey("Given a memory-only store", t, func() {
		s := New[string](Options{Name: "test", Tier: TierMemory})
		defer s.Close()

		Convey("Put then Get returns the value", func() {
			So(s.PutTTL("k", "v", 0), ShouldBeTrue)
			v, ok := s.Get("k")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, "v")
		})

		Convey("Get on an unknown key misses", func() {
			_, ok := s.Get("nope")
			So(ok, ShouldBeFalse)
		})

		Convey("A non-positive TTL never expires", func() {
			So(s.PutTTL("forever", "v", -1), ShouldBeTrue)
			v, ok := s.Get("forever")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, "v")
		})

		Convey("An elapsed TTL reads as a miss", func() {
			So(s.PutTTL("short", "v", time.Millisecond), ShouldBeTrue)
			time.Sleep(5 * time.Millisecond)
			_, ok := s.Get("short")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestEviction(t *testing.T) {
	Convey("Given a store with a tight memory budget", t, func() {
		s := New[string](Options{Name: "evict", Tier: TierMemory, MemoryMaxBytes: 2048})
		defer s.Close()

		Convey("Filling past the budget evicts the least recently accessed key first", func() {
			payload := make([]byte, 100)
			for i := range payload {
				payload[i] = 'x'
			}
			value := string(payload)

			So(s.PutTTL("oldest", value, 0), ShouldBeTrue)
			time.Sleep(2 * time.Millisecond)

			for i := 0; i < 25; i++ {
				So(s.PutTTL(fmt.Sprintf("k%d", i), value, 0), ShouldBeTrue)
			}

			_, ok := s.Get("oldest")
			So(ok, ShouldBeFalse)
			_, ok = s.Get("k24")
			So(ok, ShouldBeTrue)
		})

		Convey("An entry above a tenth of the budget is rejected outright", func() {
			huge := make([]byte, 1024)
			So(s.PutTTL("huge", string(huge), 0), ShouldBeFalse)
			_, ok := s.Get("huge")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestDiskTier(t *testing.T) {
	Convey("Given a tiered store", t, func() {
		s := New[string](Options{
			Name: "tiered",
			Tier: TierMemoryDisk,
			Dir:  "/cache-test",
		})
		defer s.Close()

		Convey("A value dropped from memory is promoted back from disk", func() {
			So(s.PutTTL("k", "persisted", 0), ShouldBeTrue)
			// Disk write happens off the caller path.
			time.Sleep(20 * time.Millisecond)

			// Simulate a memory-tier loss.
			s.mu.Lock()
			delete(s.entries, "k")
			s.memSize = 0
			s.mu.Unlock()

			v, ok := s.Get("k")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, "persisted")
		})

		Convey("An expired disk entry is removed on read", func() {
			So(s.PutTTL("stale", "v", time.Millisecond), ShouldBeTrue)
			time.Sleep(20 * time.Millisecond)

			s.mu.Lock()
			s.entries = make(map[string]*Entry[string])
			s.memSize = 0
			s.mu.Unlock()

			_, ok := s.Get("stale")
			So(ok, ShouldBeFalse)

			exists, err := filesystem.API().Exists(s.filePath("stale"))
			So(err, ShouldBeNil)
			So(exists, ShouldBeFalse)
		})
	})
}

func TestDiskReopen(t *testing.T) {
	Convey("Given disk entries written by an earlier store", t, func() {
		first := New[string](Options{
			Name: "reopen",
			Tier: TierMemoryDisk,
			Dir:  "/cache-reopen",
		})
		So(first.PutTTL("k", "survives", 0), ShouldBeTrue)
		time.Sleep(20 * time.Millisecond)
		first.Close()

		second := New[string](Options{
			Name: "reopen",
			Tier: TierMemoryDisk,
			Dir:  "/cache-reopen",
		})
		defer second.Close()

		Convey("The reopened store accounts for them", func() {
			So(second.Stats().DiskBytes, ShouldBeGreaterThan, 0)

			v, ok := second.Get("k")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, "survives")
		})

		Convey("Clear reaches them", func() {
			second.Clear()

			exists, err := filesystem.API().Exists(second.filePath("k"))
			So(err, ShouldBeNil)
			So(exists, ShouldBeFalse)

			_, ok := second.Get("k")
			So(ok, ShouldBeFalse)
			So(second.Stats().DiskBytes, ShouldEqual, 0)
		})
	})
}

func TestStats(t *testing.T) {
	Convey("Given a store", t, func() {
		s := New[int](Options{Name: "stats", Tier: TierMemory})
		defer s.Close()

		s.PutTTL("a", 1, 0)
		s.Get("a")
		s.Get("missing")

		Convey("Counters reflect operations", func() {
			snap := s.Stats()
			So(snap.Puts, ShouldEqual, 1)
			So(snap.Hits, ShouldEqual, 1)
			So(snap.Misses, ShouldEqual, 1)
		})

		Convey("Clear keeps counters, ResetStats zeroes them", func() {
			s.Clear()
			So(s.Stats().Puts, ShouldEqual, 1)

			s.ResetStats()
			So(s.Stats().Puts, ShouldEqual, 0)
		})
	})
}

func TestSweep(t *testing.T) {
	Convey("Given a store with a fast sweeper", t, func() {
		s := New[string](Options{
			Name:          "sweep",
			Tier:          TierMemory,
			SweepInterval: 10 * time.Millisecond,
		})
		defer s.Close()

		s.PutTTL("gone", "v", time.Millisecond)
		s.PutTTL("stays", "v", 0)
		time.Sleep(50 * time.Millisecond)

		Convey("Expired entries are removed, live ones stay", func() {
			s.mu.RLock()
			_, goneExists := s.entries["gone"]
			_, staysExists := s.entries["stays"]
			s.mu.RUnlock()

			So(goneExists, ShouldBeFalse)
			So(staysExists, ShouldBeTrue)
		})
	})
}
