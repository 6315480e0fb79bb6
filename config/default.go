// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"text/template"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/vidgate/vidgate/color"
	"github.com/vidgate/vidgate/constant"
	"github.com/vidgate/vidgate/key"
	"github.com/vidgate/vidgate/style"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f *Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f *Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Vidgate + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f *Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
		Type        string `json:"type"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
		Type:        f.typeName(),
	})
}

// typeName returns the string representation of the field's underlying value type.
func (f *Field) typeName() string {
	switch f.Value.(type) {
	case string:
		return "string"
	case int:
		return "int"
	case bool:
		return "bool"
	case []string:
		return "[]string"
	case []int:
		return "[]int"
	default:
		return "unknown"
	}
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed holds keys that are bound to environment variables.
var EnvExposed []string

func init() {
	// register validates and adds a new configuration field to the global registry.
	register := func(k string, v any, desc string) {
		if _, exists := Default[k]; exists {
			panic("Duplicate config key: " + k)
		}
		f := Field{Key: k, Value: v, Description: desc}
		Default[k] = f
		EnvExposed = append(EnvExposed, k)
	}

	register(key.ProxyPort, 0, "Preferred loopback port for the proxy server.\n0 picks any free port")
	register(key.ProxyMaxConnections, 64, "Maximum simultaneous connections.\nNew connections beyond the limit are refused, not queued")
	register(key.ProxyAllowedPeers, []string{}, "Peer addresses allowed to connect.\nEmpty list or \"*\" allows every address")
	register(key.BandwidthLimitBytes, 0, "Byte budget per bandwidth window shared across connections.\n0 disables throttling")
	register(key.BandwidthWindowMs, 1000, "Length of the bandwidth accounting window in milliseconds")
	register(key.CacheMemoryMaxBytes, 32*1024*1024, "Byte budget of the in-memory cache tier")
	register(key.CacheDiskMaxBytes, 256*1024*1024, "Byte budget of the on-disk cache tier")
	register(key.CacheTTLSeconds, 3600, "Default time-to-live for cached resolutions in seconds.\n0 or negative values never expire")
	register(key.CacheSweepIntervalMs, 60000, "Interval between background sweeps removing expired cache entries")
	register(key.ResolverTimeoutMs, 30000, "Timeout for each individual resolution attempt in milliseconds")
	register(key.ResolverParseEndpoint, "", "Optional parser endpoint for the structured-response strategy.\nThe target URL is appended url-encoded")
	register(key.ResolverUserAgent, constant.UserAgent, "User-Agent sent to origin sites during resolution")
	register(key.HostsDNSCacheSize, 512, "Maximum number of cached DNS answers")
	register(key.HostsDNSTTLSeconds, 300, "Time-to-live for cached DNS answers in seconds")
	register(key.HostsLookupTimeout, 5000, "Timeout for live DNS lookups in milliseconds")
	register(key.HistorySaveOnResolve, true, "Save resolved streams to the localized history")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Enable automatic version check")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":    style.Faint,
	"bold":     style.Bold,
	"purple":   style.Fg(color.Purple),
	"blue":     style.Fg(color.Blue),
	"cyan":     style.Fg(color.Cyan),
	"value":    func(k string) any { return viper.Get(k) },
	"typename": func(v any) string { return reflect.TypeOf(v).String() },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}
{{ blue "Type:" }}    {{ typename .Value }}`))
