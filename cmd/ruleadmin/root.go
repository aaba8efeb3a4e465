// Package main implements ruleadmin, a local-only operator debug CLI (spec
// SPEC_FULL §K.7). It is explicitly not the product's external interface —
// that contract is the Programmatic API (spec §6) the embedding host calls
// directly — this is a development convenience for inspecting cache state,
// evaluating a rule program by hand, and listing configured triggers against
// a running Postgres instance.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds flags shared by every subcommand.
type RootOptions struct {
	DSN        string
	ConfigPath string
}

func newRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ruleadmin",
		Short: "Operator debug CLI for the rule execution engine",
		Long: `ruleadmin is a local-only debugging tool: evaluate a rule program by
hand, inspect compiled-rule cache stats, and list configured triggers
against a running Postgres instance. It is not the engine's product
interface.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DSN, "db", os.Getenv("RULE_ENGINE_DSN"), "Postgres connection string")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "optional YAML config file")

	cmd.AddCommand(newEvaluateCommand(opts))
	cmd.AddCommand(newCacheCommand(opts))
	cmd.AddCommand(newTriggerCommand(opts))

	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
