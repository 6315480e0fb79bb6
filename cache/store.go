package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"sync"
	"time"

	"github.com/vidgate/vidgate/filesystem"
	"github.com/vidgate/vidgate/log"
)

// Tier selects which storage layers a store uses.
type Tier int

const (
	// TierMemory keeps entries in memory only.
	TierMemory Tier = iota
	// TierMemoryDisk spills entries to per-key JSON files and promotes disk
	// hits back into memory.
	TierMemoryDisk
)

// oversizeFraction rejects single entries larger than this share of the
// memory budget outright instead of evicting the whole store for them.
const oversizeFraction = 10

// Options configures a Store instance.
type Options struct {
	// Name identifies the store in logs, stats and its disk directory.
	Name string
	// Tier selects memory-only or memory+disk operation.
	Tier Tier
	// MemoryMaxBytes bounds the in-memory tier. Zero means unbounded.
	MemoryMaxBytes int64
	// DiskMaxBytes bounds the disk tier. Zero means unbounded.
	DiskMaxBytes int64
	// DefaultTTL applies to entries stored via Put. Zero or below never expires.
	DefaultTTL time.Duration
	// SweepInterval is the period of the background expiry sweep.
	// Zero disables the sweeper.
	SweepInterval time.Duration
	// Dir is the disk tier directory. Ignored for TierMemory.
	Dir string
}

// Store is a concurrency-safe generic cache honoring the configured tiers.
type Store[T any] struct {
	mu      sync.RWMutex
	opts    Options
	entries map[string]*Entry[T]
	memSize int64

	diskMu   sync.Mutex
	diskSize int64
	// diskIndex maps file names present on disk to their serialized size.
	// Keyed by name rather than cache key so that files written by an
	// earlier process stay visible to Clear and budget eviction.
	diskIndex map[string]int64

	stats stats

	done      chan struct{}
	closeOnce sync.Once
}

// New constructs a Store and starts its background sweeper when configured.
func New[T any](opts Options) *Store[T] {
	s := &Store[T]{
		opts:      opts,
		entries:   make(map[string]*Entry[T]),
		diskIndex: make(map[string]int64),
		done:      make(chan struct{}),
	}

	if opts.Tier == TierMemoryDisk {
		s.loadDiskIndex()
	}

	if opts.SweepInterval > 0 {
		go s.sweepLoop()
	}

	return s
}

// Get returns the value for key, or false on miss.
// An expired entry counts as a miss and is removed lazily.
func (s *Store[T]) Get(key string) (value T, ok bool) {
	now := time.Now()

	s.mu.Lock()
	if entry, exists := s.entries[key]; exists {
		if entry.Expired(now) {
			s.removeLocked(key)
			s.mu.Unlock()
			s.stats.misses.Add(1)
			return value, false
		}
		entry.Touch(now)
		s.mu.Unlock()
		s.stats.hits.Add(1)
		return entry.Value, true
	}
	s.mu.Unlock()

	if s.opts.Tier == TierMemoryDisk {
		if entry := s.readDisk(key); entry != nil {
			if entry.Expired(now) {
				s.deleteDisk(key)
			} else {
				entry.Touch(now)
				s.promote(entry)
				s.stats.hits.Add(1)
				return entry.Value, true
			}
		}
	}

	s.stats.misses.Add(1)
	return value, false
}

// Put stores value under key with the store's default TTL.
func (s *Store[T]) Put(key string, value T) bool {
	return s.PutTTL(key, value, s.opts.DefaultTTL)
}

// PutTTL stores value under key with an explicit TTL.
// It returns false when the entry is larger than a tenth of the memory
// budget; such entries are rejected rather than evicting everything else.
func (s *Store[T]) PutTTL(key string, value T, ttl time.Duration) bool {
	size := sizeOf(value)
	if s.opts.MemoryMaxBytes > 0 && size > s.opts.MemoryMaxBytes/oversizeFraction {
		log.Warnf("cache %s: rejecting oversized entry %s (%d bytes)", s.opts.Name, key, size)
		return false
	}

	now := time.Now()
	entry := &Entry[T]{
		Key:            key,
		Value:          value,
		CreateTime:     now,
		LastAccessTime: now,
		TTL:            ttl,
		SizeBytes:      size,
	}

	s.mu.Lock()
	if prev, exists := s.entries[key]; exists {
		s.memSize -= prev.SizeBytes
	}
	for s.opts.MemoryMaxBytes > 0 && s.memSize+size > s.opts.MemoryMaxBytes && len(s.entries) > 0 {
		s.evictLRULocked()
	}
	s.entries[key] = entry
	s.memSize += size
	s.mu.Unlock()

	s.stats.puts.Add(1)

	if s.opts.Tier == TierMemoryDisk {
		// Persisting happens off the request-serving path.
		go s.writeDisk(entry)
	}

	return true
}

// Remove deletes key from every tier.
func (s *Store[T]) Remove(key string) {
	s.mu.Lock()
	s.removeLocked(key)
	s.mu.Unlock()
}

// Clear drops every entry from every tier. Statistics are preserved.
func (s *Store[T]) Clear() {
	s.mu.Lock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	s.entries = make(map[string]*Entry[T])
	s.memSize = 0
	s.mu.Unlock()

	if s.opts.Tier == TierMemoryDisk {
		for _, key := range keys {
			s.deleteDisk(key)
		}

		s.diskMu.Lock()
		names := make([]string, 0, len(s.diskIndex))
		for name := range s.diskIndex {
			names = append(names, name)
		}
		s.diskMu.Unlock()
		for _, name := range names {
			s.deleteDiskName(name)
		}
	}
}

// Stats returns a snapshot of the store counters.
func (s *Store[T]) Stats() Snapshot {
	s.mu.RLock()
	entries := len(s.entries)
	memSize := s.memSize
	s.mu.RUnlock()

	s.diskMu.Lock()
	diskSize := s.diskSize
	s.diskMu.Unlock()

	return Snapshot{
		Name:        s.opts.Name,
		Hits:        s.stats.hits.Load(),
		Misses:      s.stats.misses.Load(),
		Puts:        s.stats.puts.Load(),
		Removes:     s.stats.removes.Load(),
		Entries:     entries,
		MemoryBytes: memSize,
		DiskBytes:   diskSize,
	}
}

// ResetStats zeroes the counters. This is the only path that resets them.
func (s *Store[T]) ResetStats() {
	s.stats.reset()
}

// Close stops the background sweeper. Idempotent.
func (s *Store[T]) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *Store[T]) removeLocked(key string) {
	if entry, exists := s.entries[key]; exists {
		s.memSize -= entry.SizeBytes
		delete(s.entries, key)
		s.stats.removes.Add(1)
	}
	if s.opts.Tier == TierMemoryDisk {
		go s.deleteDisk(key)
	}
}

// evictLRULocked drops the entry with the oldest last access time.
func (s *Store[T]) evictLRULocked() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range s.entries {
		if oldestKey == "" || entry.LastAccessTime.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.LastAccessTime
		}
	}

	if oldestKey != "" {
		entry := s.entries[oldestKey]
		s.memSize -= entry.SizeBytes
		delete(s.entries, oldestKey)
		s.stats.removes.Add(1)
	}
}

func (s *Store[T]) promote(entry *Entry[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.opts.MemoryMaxBytes > 0 && s.memSize+entry.SizeBytes > s.opts.MemoryMaxBytes && len(s.entries) > 0 {
		s.evictLRULocked()
	}
	s.entries[entry.Key] = entry
	s.memSize += entry.SizeBytes
}

// sweepLoop periodically removes expired entries. This is the only path that
// removes entries purely due to TTL; reads merely treat them as misses.
func (s *Store[T]) sweepLoop() {
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store[T]) sweep() {
	now := time.Now()

	s.mu.Lock()
	var expired []string
	for key, entry := range s.entries {
		if entry.Expired(now) {
			expired = append(expired, key)
		}
	}
	for _, key := range expired {
		s.removeLocked(key)
	}
	s.mu.Unlock()

	if len(expired) > 0 {
		log.Debugf("cache %s: swept %d expired entries", s.opts.Name, len(expired))
	}
}

// Disk tier. Failures are logged and degrade to cache-miss semantics; they
// never propagate to the caller.

func (s *Store[T]) fileName(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:]) + ".json"
}

func (s *Store[T]) filePath(key string) string {
	return filepath.Join(s.opts.Dir, s.fileName(key))
}

func (s *Store[T]) readDisk(key string) *Entry[T] {
	data, err := filesystem.API().ReadFile(s.filePath(key))
	if err != nil {
		return nil
	}

	var entry Entry[T]
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Warnf("cache %s: corrupt disk entry for %s: %v", s.opts.Name, key, err)
		s.deleteDisk(key)
		return nil
	}
	return &entry
}

func (s *Store[T]) writeDisk(entry *Entry[T]) {
	data, err := json.Marshal(entry)
	if err != nil {
		log.Errorf("cache %s: marshal %s: %v", s.opts.Name, entry.Key, err)
		return
	}

	name := s.fileName(entry.Key)

	s.diskMu.Lock()
	if prev, exists := s.diskIndex[name]; exists {
		s.diskSize -= prev
	}
	for s.opts.DiskMaxBytes > 0 && s.diskSize+int64(len(data)) > s.opts.DiskMaxBytes && len(s.diskIndex) > 0 {
		s.evictDiskLocked()
	}
	s.diskIndex[name] = int64(len(data))
	s.diskSize += int64(len(data))
	s.diskMu.Unlock()

	if err := filesystem.API().WriteFile(s.filePath(entry.Key), data, 0644); err != nil {
		log.Errorf("cache %s: write %s: %v", s.opts.Name, entry.Key, err)
	}
}

func (s *Store[T]) deleteDisk(key string) {
	s.deleteDiskName(s.fileName(key))
}

func (s *Store[T]) deleteDiskName(name string) {
	s.diskMu.Lock()
	if size, exists := s.diskIndex[name]; exists {
		s.diskSize -= size
		delete(s.diskIndex, name)
	}
	s.diskMu.Unlock()

	_ = filesystem.API().Remove(filepath.Join(s.opts.Dir, name))
}

// evictDiskLocked removes an arbitrary disk entry to free budget. Disk
// entries carry no access ordering across restarts, so any victim works.
func (s *Store[T]) evictDiskLocked() {
	for name, size := range s.diskIndex {
		s.diskSize -= size
		delete(s.diskIndex, name)
		go func() { _ = filesystem.API().Remove(filepath.Join(s.opts.Dir, name)) }()
		return
	}
}

// loadDiskIndex primes the index and byte accounting from files already
// present on disk, making them subject to Clear and budget eviction.
func (s *Store[T]) loadDiskIndex() {
	infos, err := filesystem.API().ReadDir(s.opts.Dir)
	if err != nil {
		return
	}
	s.diskMu.Lock()
	defer s.diskMu.Unlock()
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		s.diskIndex[info.Name()] = info.Size()
		s.diskSize += info.Size()
	}
}

// sizeOf estimates the in-memory footprint of a value via its JSON encoding.
func sizeOf[T any](value T) int64 {
	data, err := json.Marshal(value)
	if err != nil {
		return 0
	}
	return int64(len(data))
}
