// Package cmd implements the command-line interface for vidgate.
package cmd

import (
	"fmt"
	"net"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/vidgate/vidgate/color"
	"github.com/vidgate/vidgate/hosts"
	"github.com/vidgate/vidgate/icon"
	"github.com/vidgate/vidgate/style"
	"github.com/vidgate/vidgate/util"
)

func init() {
	rootCmd.AddCommand(hostsCmd)
}

// hostsCmd serves as the parent command for the domain override table.
var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Manage domain to IP overrides",
}

func init() {
	hostsCmd.AddCommand(hostsListCmd)
}

// hostsListCmd prints the override table.
var hostsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List domain overrides",
	Run: func(cmd *cobra.Command, args []string) {
		resolver := hosts.NewResolver(hosts.Options{})
		entries, err := resolver.Entries()
		handleErr(err)

		if len(entries) == 0 {
			fmt.Println(style.Faint("no overrides registered"))
			return
		}

		fmt.Println(style.Bold(util.Quantify(len(entries), "override", "overrides")))
		for _, entry := range entries {
			state := style.Fg(color.Green)("enabled")
			if !entry.Enabled {
				state = style.Fg(color.Red)("disabled")
			}

			fmt.Printf(
				"%s %s -> %s %s\n",
				icon.Get(icon.Link),
				style.Fg(color.Purple)(entry.Domain),
				style.Fg(color.Yellow)(entry.IP),
				state,
			)
		}
	},
}

func init() {
	hostsCmd.AddCommand(hostsAddCmd)
	hostsAddCmd.Flags().IntP("ttl", "t", 0, "Override lifetime in seconds (0 never expires)")
	hostsAddCmd.Flags().Bool("disabled", false, "Register the override disabled")
}

// hostsAddCmd registers a domain override.
var hostsAddCmd = &cobra.Command{
	Use:   "add [domain] [ip]",
	Short: "Register a domain override",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if net.ParseIP(args[1]) == nil {
			handleErr(fmt.Errorf("%s is not a valid ip address", args[1]))
		}

		resolver := hosts.NewResolver(hosts.Options{})
		handleErr(resolver.Put(
			args[0],
			args[1],
			time.Duration(lo.Must(cmd.Flags().GetInt("ttl")))*time.Second,
			!lo.Must(cmd.Flags().GetBool("disabled")),
		))

		fmt.Printf(
			"%s %s now resolves to %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(args[0]),
			style.Fg(color.Yellow)(args[1]),
		)
	},
}

func init() {
	hostsCmd.AddCommand(hostsRemoveCmd)
}

// hostsRemoveCmd deletes a domain override.
var hostsRemoveCmd = &cobra.Command{
	Use:     "remove [domain]",
	Short:   "Remove a domain override",
	Aliases: []string{"delete"},
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		resolver := hosts.NewResolver(hosts.Options{})
		handleErr(resolver.Remove(args[0]))

		fmt.Printf(
			"%s removed override for %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(args[0]),
		)
	},
}
