package hosts

import (
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/metafates/gache"
	"github.com/miekg/dns"
	"github.com/samber/mo"
	"github.com/vidgate/vidgate/filesystem"
	"github.com/vidgate/vidgate/log"
	"github.com/vidgate/vidgate/where"
)

// resolvConf is consulted for the upstream DNS server addresses.
const resolvConf = "/etc/resolv.conf"

// Options tunes the resolver's DNS cache and lookups.
type Options struct {
	// DNSCacheSize bounds the number of cached answers.
	DNSCacheSize int
	// DNSTTL is how long a live answer stays cached.
	DNSTTL time.Duration
	// LookupTimeout bounds one live DNS exchange.
	LookupTimeout time.Duration
}

// Resolver consults the override table first, then the DNS cache, then
// performs a live lookup and caches the answer.
type Resolver struct {
	opts  Options
	table *gache.Cache[map[string]*Entry]

	mu       sync.Mutex
	dnsCache map[string]*dnsRecord
}

// NewResolver constructs a Resolver persisting its override table under the
// app config directory.
func NewResolver(opts Options) *Resolver {
	if opts.DNSCacheSize <= 0 {
		opts.DNSCacheSize = 512
	}
	if opts.DNSTTL <= 0 {
		opts.DNSTTL = 5 * time.Minute
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = 5 * time.Second
	}

	return &Resolver{
		opts: opts,
		table: gache.New[map[string]*Entry](&gache.Options{
			Path:       where.Hosts(),
			FileSystem: &filesystem.GacheFs{},
		}),
		dnsCache: make(map[string]*dnsRecord),
	}
}

// Entries returns the full override table.
func (r *Resolver) Entries() (map[string]*Entry, error) {
	cached, expired, err := r.table.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Entry), nil
	}
	return cached, nil
}

// Put inserts or updates an override.
func (r *Resolver) Put(domain, ip string, ttl time.Duration, enabled bool) error {
	entries, err := r.Entries()
	if err != nil {
		return err
	}

	domain = strings.ToLower(strings.TrimSpace(domain))
	now := time.Now()

	if existing, ok := entries[domain]; ok {
		existing.IP = ip
		existing.TTL = ttl
		existing.Enabled = enabled
		existing.UpdateTime = now
	} else {
		entries[domain] = &Entry{
			Domain:     domain,
			IP:         ip,
			TTL:        ttl,
			Enabled:    enabled,
			CreateTime: now,
			UpdateTime: now,
		}
	}

	return r.table.Set(entries)
}

// Remove deletes an override.
func (r *Resolver) Remove(domain string) error {
	entries, err := r.Entries()
	if err != nil {
		return err
	}

	delete(entries, strings.ToLower(strings.TrimSpace(domain)))
	return r.table.Set(entries)
}

// Resolve maps a domain to an IP. Override table first, DNS cache second,
// live lookup last. Returns None when every source fails.
func (r *Resolver) Resolve(domain string) mo.Option[string] {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return mo.None[string]()
	}

	if ip := net.ParseIP(domain); ip != nil {
		return mo.Some(domain)
	}

	now := time.Now()

	if entries, err := r.Entries(); err == nil {
		if entry, ok := entries[domain]; ok && entry.Enabled && !entry.Expired(now) {
			return mo.Some(entry.IP)
		}
	}

	r.mu.Lock()
	if rec, ok := r.dnsCache[domain]; ok && now.Before(rec.expireTime) {
		ip := rec.ip
		r.mu.Unlock()
		return mo.Some(ip)
	}
	r.mu.Unlock()

	ip, err := r.lookup(domain)
	if err != nil {
		log.Debugf("hosts: lookup %s: %v", domain, err)
		return mo.None[string]()
	}

	r.remember(domain, ip, now)
	return mo.Some(ip)
}

// remember caches a live answer, evicting expired records first and, if the
// cache is still over budget, the oldest quarter by creation time.
func (r *Resolver) remember(domain, ip string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.dnsCache) >= r.opts.DNSCacheSize {
		for key, rec := range r.dnsCache {
			if now.After(rec.expireTime) {
				delete(r.dnsCache, key)
			}
		}
	}

	if len(r.dnsCache) >= r.opts.DNSCacheSize {
		records := make([]*dnsRecord, 0, len(r.dnsCache))
		for _, rec := range r.dnsCache {
			records = append(records, rec)
		}
		sort.Slice(records, func(i, j int) bool {
			return records[i].createTime.Before(records[j].createTime)
		})
		for _, rec := range records[:len(records)/4+1] {
			delete(r.dnsCache, rec.domain)
		}
	}

	r.dnsCache[domain] = &dnsRecord{
		domain:     domain,
		ip:         ip,
		createTime: now,
		expireTime: now.Add(r.opts.DNSTTL),
	}
}

// lookup performs one live DNS exchange against the system resolver,
// falling back to the net package when no upstream answers.
func (r *Resolver) lookup(domain string) (string, error) {
	conf, err := dns.ClientConfigFromFile(resolvConf)
	if err == nil && len(conf.Servers) > 0 {
		client := &dns.Client{Timeout: r.opts.LookupTimeout}

		msg := new(dns.Msg)
		msg.SetQuestion(dns.Fqdn(domain), dns.TypeA)

		for _, server := range conf.Servers {
			reply, _, err := client.Exchange(msg, net.JoinHostPort(server, conf.Port))
			if err != nil {
				continue
			}
			for _, answer := range reply.Answer {
				if a, ok := answer.(*dns.A); ok {
					return a.A.String(), nil
				}
			}
		}
	}

	addrs, err := net.LookupIP(domain)
	if err != nil {
		return "", err
	}
	for _, addr := range addrs {
		if v4 := addr.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return addrs[0].String(), nil
}
