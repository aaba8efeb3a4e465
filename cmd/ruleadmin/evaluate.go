package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ksd-co/rule-engine-postgres/api"
	"github.com/ksd-co/rule-engine-postgres/cache"
	"github.com/ksd-co/rule-engine-postgres/configloader"
	"github.com/spf13/cobra"
)

func newEvaluateCommand(root *RootOptions) *cobra.Command {
	var rulesPath, factsPath string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a rule program against a facts document",
		Long: `Reads a rule program from --rules and a facts document from --facts
(or stdin, if --facts is omitted) and prints the resulting facts text.

Example:
  ruleadmin evaluate --rules discount.rules --facts order.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(root, rulesPath, factsPath, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "path to a rule program source file (required)")
	cmd.Flags().StringVar(&factsPath, "facts", "", "path to a facts JSON file (defaults to stdin)")
	_ = cmd.MarkFlagRequired("rules")

	return cmd
}

func runEvaluate(root *RootOptions, rulesPath, factsPath string, out io.Writer) error {
	rulesSource, err := os.ReadFile(rulesPath)
	if err != nil {
		return fmt.Errorf("reading rules file: %w", err)
	}

	var factsText []byte
	if factsPath != "" {
		factsText, err = os.ReadFile(factsPath)
		if err != nil {
			return fmt.Errorf("reading facts file: %w", err)
		}
	} else {
		factsText, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading facts from stdin: %w", err)
		}
	}

	cfg, err := configloader.Load(root.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	engine := api.NewEngine(cache.New(cfg.CacheCapacity), nil, nil, cfg)
	result, evalErr := engine.Evaluate(string(factsText), string(rulesSource))
	if evalErr != nil {
		return fmt.Errorf("evaluate failed: [%s] %s", evalErr.Code, evalErr.Message)
	}

	fmt.Fprintln(out, result)
	return nil
}
