// Package cmd implements the command-line interface for vidgate.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/vidgate/vidgate/color"
	"github.com/vidgate/vidgate/icon"
	"github.com/vidgate/vidgate/style"
	"github.com/vidgate/vidgate/util"
)

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringP("strategy", "s", "", "Try this strategy first (sniff, json, pagescan, site)")
	resolveCmd.Flags().BoolP("json", "j", false, "Format the output as a JSON string")
}

// resolveCmd runs the strategy chain once against a URL, for debugging
// spiders and parser endpoints.
var resolveCmd = &cobra.Command{
	Use:   "resolve [url]",
	Short: "Resolve a page URL to a playable stream without serving it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var (
			preferred = lo.Must(cmd.Flags().GetString("strategy"))
			asJson    = lo.Must(cmd.Flags().GetBool("json"))
		)

		erase := util.PrintErasable(fmt.Sprintf("%s Resolving...", icon.Get(icon.Progress)))
		result := buildChain().Resolve(context.Background(), args[0], "", preferred)
		erase()

		if !result.OK() {
			handleErr(result.Err)
		}

		if asJson {
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			handleErr(encoder.Encode(result))
			return
		}

		fmt.Printf(
			"%s resolved by %s in %s\n%s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(result.Strategy),
			style.Faint(result.Elapsed.String()),
			style.Fg(color.Yellow)(result.Media.URL),
		)

		for k, v := range result.Media.Headers {
			fmt.Printf("  %s: %s\n", style.Faint(k), v)
		}
	},
}
