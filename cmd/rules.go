// Package cmd implements the command-line interface for vidgate.
package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/vidgate/vidgate/color"
	"github.com/vidgate/vidgate/icon"
	"github.com/vidgate/vidgate/rule"
	"github.com/vidgate/vidgate/style"
	"github.com/vidgate/vidgate/util"
)

func init() {
	rootCmd.AddCommand(rulesCmd)
}

// rulesCmd serves as the parent command for managing the rewrite rule registry.
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage URL rewrite rules",
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
}

// rulesListCmd prints the registered rules in priority order.
var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered rules in matching order",
	Run: func(cmd *cobra.Command, args []string) {
		engine := rule.NewEngine()
		rules := engine.Rules()

		if len(rules) == 0 {
			fmt.Println(style.Faint("no rules registered"))
			return
		}

		fmt.Println(style.Bold(util.Quantify(len(rules), "rule", "rules")))
		for _, r := range rules {
			state := style.Fg(color.Green)("enabled")
			if !r.Enabled {
				state = style.Fg(color.Red)("disabled")
			}

			fmt.Printf(
				"%s %s %s %s -> %s (%s, priority %d)\n",
				icon.Get(icon.Link),
				style.Fg(color.Purple)(r.ID),
				state,
				r.Pattern,
				r.Target,
				r.MatchKind,
				r.Priority,
			)
		}
	},
}

func init() {
	rulesCmd.AddCommand(rulesAddCmd)
	rulesAddCmd.Flags().StringP("kind", "k", string(rule.MatchURLPattern), "Match kind (urlPattern, domain, path, regex, exact)")
	rulesAddCmd.Flags().IntP("priority", "p", 0, "Rule priority, higher wins")
	rulesAddCmd.Flags().Bool("disabled", false, "Register the rule disabled")
}

// rulesAddCmd registers a new rule.
var rulesAddCmd = &cobra.Command{
	Use:   "add [id] [pattern] [target]",
	Short: "Register a rewrite rule",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		engine := rule.NewEngine()

		for _, r := range engine.Rules() {
			if r.ID == args[0] {
				handleErr(fmt.Errorf("rule %s already exists", args[0]))
			}
		}

		rules := append(engine.Rules(), &rule.Rule{
			ID:        args[0],
			Pattern:   args[1],
			Target:    args[2],
			MatchKind: rule.MatchKind(lo.Must(cmd.Flags().GetString("kind"))),
			Priority:  lo.Must(cmd.Flags().GetInt("priority")),
			Enabled:   !lo.Must(cmd.Flags().GetBool("disabled")),
		})

		engine.Replace(rules)
		handleErr(engine.Save())

		fmt.Printf(
			"%s added rule %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(args[0]),
		)
	},
}

func init() {
	rulesCmd.AddCommand(rulesRemoveCmd)
}

// rulesRemoveCmd deletes a rule by id.
var rulesRemoveCmd = &cobra.Command{
	Use:     "remove [id]",
	Short:   "Remove a rule by id",
	Aliases: []string{"delete"},
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		engine := rule.NewEngine()

		kept := lo.Filter(engine.Rules(), func(r *rule.Rule, _ int) bool {
			return r.ID != args[0]
		})
		if len(kept) == len(engine.Rules()) {
			handleErr(fmt.Errorf("no rule named %s", args[0]))
		}

		engine.Replace(kept)
		handleErr(engine.Save())

		fmt.Printf(
			"%s removed rule %s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(args[0]),
		)
	},
}

func init() {
	rulesCmd.AddCommand(rulesEnableCmd)
	rulesEnableCmd.Flags().BoolP("off", "o", false, "Disable the rule instead")
}

// rulesEnableCmd toggles a rule's enabled flag.
var rulesEnableCmd = &cobra.Command{
	Use:   "enable [id]",
	Short: "Enable or disable a rule",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		engine := rule.NewEngine()
		enable := !lo.Must(cmd.Flags().GetBool("off"))

		rules := engine.Rules()
		found := false
		for _, r := range rules {
			if r.ID == args[0] {
				r.Enabled = enable
				found = true
			}
		}

		if !found {
			handleErr(errors.New("no rule named " + args[0]))
		}

		engine.Replace(rules)
		handleErr(engine.Save())

		fmt.Printf(
			"%s rule %s enabled=%s\n",
			style.Fg(color.Green)(icon.Get(icon.Success)),
			style.Fg(color.Purple)(args[0]),
			style.Fg(color.Yellow)(strconv.FormatBool(enable)),
		)
	},
}
