// Package cmd implements the command-line interface for vidgate.
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vidgate/vidgate/access"
	"github.com/vidgate/vidgate/bandwidth"
	"github.com/vidgate/vidgate/cache"
	"github.com/vidgate/vidgate/color"
	"github.com/vidgate/vidgate/hosts"
	"github.com/vidgate/vidgate/icon"
	"github.com/vidgate/vidgate/key"
	"github.com/vidgate/vidgate/log"
	"github.com/vidgate/vidgate/network"
	"github.com/vidgate/vidgate/proxy"
	"github.com/vidgate/vidgate/resolver"
	"github.com/vidgate/vidgate/rule"
	"github.com/vidgate/vidgate/style"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 0, "Listen port (0 picks the configured or any free port)")
	lo.Must0(viper.BindPFlag(key.ProxyPort, serveCmd.Flags().Lookup("port")))
}

// serveCmd starts the loopback proxy with the full resolution pipeline wired in.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local media proxy",
	Run: func(cmd *cobra.Command, args []string) {
		network.SetHostResolver(hosts.NewResolver(hosts.Options{
			DNSCacheSize:  viper.GetInt(key.HostsDNSCacheSize),
			DNSTTL:        time.Duration(viper.GetInt(key.HostsDNSTTLSeconds)) * time.Second,
			LookupTimeout: time.Duration(viper.GetInt(key.HostsLookupTimeout)) * time.Millisecond,
		}))

		streams := cache.New[resolver.Media](cache.Options{
			Name:           "streams",
			Tier:           cache.TierMemoryDisk,
			MemoryMaxBytes: viper.GetInt64(key.CacheMemoryMaxBytes),
			DiskMaxBytes:   viper.GetInt64(key.CacheDiskMaxBytes),
			DefaultTTL:     time.Duration(viper.GetInt(key.CacheTTLSeconds)) * time.Second,
			SweepInterval:  time.Duration(viper.GetInt(key.CacheSweepIntervalMs)) * time.Millisecond,
		})
		defer streams.Close()

		server := proxy.NewServer(proxy.Options{
			Guard: access.New(viper.GetStringSlice(key.ProxyAllowedPeers)),
			Limiter: bandwidth.New(
				viper.GetInt64(key.BandwidthLimitBytes),
				time.Duration(viper.GetInt(key.BandwidthWindowMs))*time.Millisecond,
			),
			Rules:          rule.NewEngine(),
			Chain:          buildChain(),
			Streams:        streams,
			MaxConnections: viper.GetInt(key.ProxyMaxConnections),
		})

		port, err := server.Start(viper.GetInt(key.ProxyPort))
		handleErr(err)
		defer server.Stop()

		fmt.Printf(
			"%s %s listening on %s\n",
			icon.Get(icon.Proxy),
			style.Bold("vidgate"),
			style.Fg(color.Green)(fmt.Sprintf("http://127.0.0.1:%d", port)),
		)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		log.Info("shutting down")
	},
}

// buildChain registers the strategies in their fallback order.
func buildChain() *resolver.Chain {
	timeout := time.Duration(viper.GetInt(key.ResolverTimeoutMs)) * time.Millisecond

	return resolver.NewChain(timeout,
		resolver.Sniff{},
		resolver.NewJSONAPI(viper.GetString(key.ResolverParseEndpoint)),
		resolver.PageScan{},
		resolver.NewSite(),
	)
}
