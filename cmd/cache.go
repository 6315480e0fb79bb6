// Package cmd implements the command-line interface for vidgate.
package cmd

import (
	"fmt"
	"io"
	"net/http"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vidgate/vidgate/icon"
	"github.com/vidgate/vidgate/key"
	"github.com/vidgate/vidgate/util"
	"github.com/vidgate/vidgate/where"
)

// clearTarget defines a filesystem resource eligible for automated cleanup.
type clearTarget struct {
	name     string
	argLong  string
	argShort mo.Option[string]
	location func() string
}

// clearTargets registry of all application artifacts that can be selectively cleared.
var clearTargets = []clearTarget{
	{"cache directory", "cache", mo.Some("c"), where.Cache},
	{"history file", "history", mo.Some("s"), where.History},
	{"rule registry", "rules", mo.Some("r"), where.Rules},
	{"host overrides", "hosts", mo.None[string](), where.Hosts},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
}

// cacheCmd serves as the parent command for cache maintenance.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear the content cache",
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheStatsCmd.Flags().IntP("port", "p", 0, "Port of the running server (defaults to the configured port)")
}

// cacheStatsCmd queries a running server for its counters.
var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache and connection counters of a running server",
	Run: func(cmd *cobra.Command, args []string) {
		port := lo.Must(cmd.Flags().GetInt("port"))
		if port == 0 {
			port = viper.GetInt(key.ProxyPort)
		}

		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/stats", port))
		handleErr(err)
		defer util.Ignore(resp.Body.Close)

		body, err := io.ReadAll(resp.Body)
		handleErr(err)

		fmt.Println(string(body))
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)

	for _, target := range clearTargets {
		help := fmt.Sprintf("clear %s", target.name)
		if target.argShort.IsPresent() {
			cacheClearCmd.Flags().BoolP(target.argLong, target.argShort.MustGet(), false, help)
		} else {
			cacheClearCmd.Flags().Bool(target.argLong, false, help)
		}
	}
}

// cacheClearCmd manages the cleanup of persisted application artifacts.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear persisted application artifacts",
	Run: func(cmd *cobra.Command, args []string) {
		var anyCleared bool

		doClear := func(what string) bool {
			return lo.Must(cmd.Flags().GetBool(what))
		}

		for _, target := range clearTargets {
			if doClear(target.argLong) {
				anyCleared = true
				e := util.PrintErasable(fmt.Sprintf("%s Clearing %s...", icon.Get(icon.Progress), util.Capitalize(target.name)))
				handleErr(util.Delete(target.location()))
				e()
				fmt.Printf("%s %s cleared\n", icon.Get(icon.Success), util.Capitalize(target.name))
			}
		}

		if !anyCleared {
			handleErr(cmd.Help())
		}
	},
}
