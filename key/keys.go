// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Proxy Server - these keys govern the loopback listener and its admission control.
const (
	ProxyPort           = "proxy.port"
	ProxyMaxConnections = "proxy.max_connections"
	ProxyAllowedPeers   = "proxy.allowed_peers"
)

// Bandwidth Governance - these keys define the shared per-window transfer budget.
const (
	BandwidthLimitBytes = "bandwidth.limit_bytes"
	BandwidthWindowMs   = "bandwidth.window_ms"
)

// Cache Engine - these keys configure the tiered content cache and its maintenance.
const (
	CacheMemoryMaxBytes  = "cache.memory_max_bytes"
	CacheDiskMaxBytes    = "cache.disk_max_bytes"
	CacheTTLSeconds      = "cache.ttl_seconds"
	CacheSweepIntervalMs = "cache.sweep_interval_ms"
)

// Resolution Pipeline - these keys control the strategy chain that turns page URLs into streams.
const (
	ResolverTimeoutMs     = "resolver.timeout_ms"
	ResolverParseEndpoint = "resolver.parse_endpoint"
	ResolverUserAgent     = "resolver.user_agent"
)

// Hosts Resolution - these keys configure the domain override table and the DNS cache.
const (
	HostsDNSCacheSize  = "hosts.dns_cache_size"
	HostsDNSTTLSeconds = "hosts.dns_ttl_seconds"
	HostsLookupTimeout = "hosts.lookup_timeout_ms"
)

// History Tracking - these keys configure the persistence of resolved-stream records.
const (
	HistorySaveOnResolve = "history.save_on_resolve"
)

// Iconography - these keys manage the visual rendering of CLI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern general CLI behavior.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
