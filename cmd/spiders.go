// Package cmd implements the command-line interface for vidgate.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/vidgate/vidgate/color"
	"github.com/vidgate/vidgate/icon"
	"github.com/vidgate/vidgate/spider"
	"github.com/vidgate/vidgate/spider/custom"
	"github.com/vidgate/vidgate/style"
	"github.com/vidgate/vidgate/util"
)

func completionSpiderNames(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return lo.Map(spider.Customs(), func(s *spider.Spider, _ int) string {
		return s.Name
	}), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	rootCmd.AddCommand(spidersCmd)
}

// spidersCmd serves as the parent command for installed extraction scripts.
var spidersCmd = &cobra.Command{
	Use:   "spiders",
	Short: "Manage installed extraction scripts",
}

func init() {
	spidersCmd.AddCommand(spidersListCmd)
}

// spidersListCmd lists the installed Lua spiders.
var spidersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed spiders",
	Run: func(cmd *cobra.Command, args []string) {
		spiders := spider.Customs()

		if len(spiders) == 0 {
			fmt.Println(style.Faint("no spiders installed"))
			return
		}

		fmt.Println(style.Bold(util.Quantify(len(spiders), "spider", "spiders")))
		for _, s := range spiders {
			fmt.Printf(
				"%s %s %s\n",
				icon.Get(icon.Lua),
				style.Fg(color.Purple)(s.Name),
				style.Faint(s.ID),
			)
		}
	},
}

func init() {
	spidersCmd.AddCommand(spidersReloadCmd)
}

// spidersReloadCmd drops compiled script bytecode so edited scripts take
// effect without restarting.
var spidersReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Recompile installed spiders on next use",
	Run: func(cmd *cobra.Command, args []string) {
		count := spider.Reload()
		fmt.Printf(
			"%s %s invalidated\n",
			icon.Get(icon.Success),
			util.Quantify(count, "spider", "spiders"),
		)
	},
}

func init() {
	spidersCmd.AddCommand(spidersRunCmd)
	spidersRunCmd.Flags().StringSliceP("vip", "V", []string{}, "Hostnames the script should treat as premium sources")
	spidersRunCmd.Flags().BoolP("resolve", "r", false, "Feed the descriptor through the resolution chain when it needs parsing")
}

// spidersRunCmd invokes one spider's PlayerContent and prints the descriptor.
// With --resolve, a descriptor whose parse flag demands it is fed through the
// strategy chain and the resolved stream is printed instead.
var spidersRunCmd = &cobra.Command{
	Use:               "run [name] [flag] [id]",
	Short:             "Invoke a spider against one page id",
	Args:              cobra.ExactArgs(3),
	ValidArgsFunction: completionSpiderNames,
	Run: func(cmd *cobra.Command, args []string) {
		s, ok := spider.Get(args[0])
		if !ok {
			handleErr(errors.New("no spider named " + args[0]))
		}

		source, err := s.Create()
		handleErr(err)

		descriptor, err := source.PlayerContent(args[1], args[2], lo.Must(cmd.Flags().GetStringSlice("vip")))
		handleErr(err)

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")

		if lo.Must(cmd.Flags().GetBool("resolve")) && descriptor.Parse == custom.ParseSniff {
			result := buildChain().Resolve(context.Background(), descriptor.StreamURL(), "", "")
			if !result.OK() {
				handleErr(result.Err)
			}
			handleErr(encoder.Encode(result))
			return
		}

		handleErr(encoder.Encode(descriptor))
	},
}
