package network

import (
	"net"
	"sync"

	"github.com/samber/mo"
)

// HostResolver maps a domain to an override or cached IP address.
type HostResolver interface {
	Resolve(domain string) mo.Option[string]
}

var (
	hostResolverMu sync.RWMutex
	hostResolver   HostResolver
)

// SetHostResolver installs the resolver consulted before every dial. A nil
// resolver restores plain system resolution.
func SetHostResolver(r HostResolver) {
	hostResolverMu.Lock()
	hostResolver = r
	hostResolverMu.Unlock()
}

// resolveAddr rewrites host:port through the installed resolver. IP literals
// and unresolvable domains pass through unchanged.
func resolveAddr(addr string) string {
	hostResolverMu.RLock()
	r := hostResolver
	hostResolverMu.RUnlock()

	if r == nil {
		return addr
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil || net.ParseIP(host) != nil {
		return addr
	}

	if ip, ok := r.Resolve(host).Get(); ok && ip != "" {
		return net.JoinHostPort(ip, port)
	}
	return addr
}
