package cache

import "sync/atomic"

// stats holds monotonically-increasing operation counters.
// Counters survive Clear and are reset only by an explicit ResetStats call.
type stats struct {
	hits    atomic.Int64
	misses  atomic.Int64
	puts    atomic.Int64
	removes atomic.Int64
}

// Snapshot is a point-in-time copy of the store's counters and byte totals.
type Snapshot struct {
	Name        string `json:"name"`
	Hits        int64  `json:"hits"`
	Misses      int64  `json:"misses"`
	Puts        int64  `json:"puts"`
	Removes     int64  `json:"removes"`
	Entries     int    `json:"entries"`
	MemoryBytes int64  `json:"memory_bytes"`
	DiskBytes   int64  `json:"disk_bytes"`
}

func (s *stats) reset() {
	s.hits.Store(0)
	s.misses.Store(0)
	s.puts.Store(0)
	s.removes.Store(0)
}
