// Package hosts resolves domains through a local override table backed by a DNS cache.
package hosts

import "time"

// Entry is one row of the persisted domain override table.
// A TTL of zero or below never expires.
type Entry struct {
	Domain     string        `json:"domain"`
	IP         string        `json:"ip"`
	TTL        time.Duration `json:"ttl"`
	Enabled    bool          `json:"enabled"`
	CreateTime time.Time     `json:"create_time"`
	UpdateTime time.Time     `json:"update_time"`
}

// Expired reports whether the override has outlived its TTL.
func (e *Entry) Expired(now time.Time) bool {
	return e.TTL > 0 && now.Sub(e.UpdateTime) > e.TTL
}

// dnsRecord is a short-lived cached DNS answer. Never persisted.
type dnsRecord struct {
	domain     string
	ip         string
	createTime time.Time
	expireTime time.Time
}
