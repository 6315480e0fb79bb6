// Package cache implements a generic tiered key-value store with TTL expiry,
// LRU eviction and persistent disk spillover.
//
// Specialized caches (content, network-response, image, history) are
// configuration variants of the same engine, never separate implementations.
package cache

import "time"

// Entry wraps a cached value together with its bookkeeping metadata.
// A TTL of zero or below means the entry never expires.
type Entry[T any] struct {
	Key            string        `json:"key"`
	Value          T             `json:"value"`
	CreateTime     time.Time     `json:"create_time"`
	LastAccessTime time.Time     `json:"last_access_time"`
	TTL            time.Duration `json:"ttl"`
	SizeBytes      int64         `json:"size_bytes"`
	AccessCount    int64         `json:"access_count"`
}

// Expired reports whether the entry has outlived its TTL at the given instant.
func (e *Entry[T]) Expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.CreateTime) > e.TTL
}

// Touch records a read access.
func (e *Entry[T]) Touch(now time.Time) {
	e.LastAccessTime = now
	e.AccessCount++
}
