// Package access implements the allow-list check applied to inbound peer addresses.
package access

import (
	"strings"
	"sync"
)

// Guard holds the set of peer addresses permitted to connect.
// An empty set or a "*" entry admits every peer.
type Guard struct {
	mu       sync.RWMutex
	allowAll bool
	allowed  map[string]struct{}
}

// New constructs a Guard from the configured allow-list.
func New(peers []string) *Guard {
	g := &Guard{}
	g.Replace(peers)
	return g
}

// Replace atomically swaps the allow-list.
func (g *Guard) Replace(peers []string) {
	allowed := make(map[string]struct{}, len(peers))
	allowAll := len(peers) == 0

	for _, peer := range peers {
		peer = strings.TrimSpace(peer)
		if peer == "" {
			continue
		}
		if peer == "*" {
			allowAll = true
		}
		allowed[peer] = struct{}{}
	}

	g.mu.Lock()
	g.allowAll = allowAll
	g.allowed = allowed
	g.mu.Unlock()
}

// IsAllowed reports whether the peer address may connect.
// The address is compared without its port component.
func (g *Guard) IsAllowed(peerAddress string) bool {
	host := peerAddress
	if idx := strings.LastIndex(host, ":"); idx >= 0 && !strings.HasSuffix(host, "]") {
		// Strip the port, keeping bracketed IPv6 literals intact.
		stripped := host[:idx]
		if !strings.Contains(stripped, ":") || strings.HasPrefix(stripped, "[") {
			host = strings.Trim(stripped, "[]")
		}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.allowAll {
		return true
	}

	_, ok := g.allowed[host]
	if !ok {
		_, ok = g.allowed[peerAddress]
	}
	return ok
}
