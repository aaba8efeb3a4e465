package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ksd-co/rule-engine-postgres/api"
	"github.com/ksd-co/rule-engine-postgres/store"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newTriggerCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Inspect and manage configured triggers",
	}
	cmd.AddCommand(newTriggerListCommand(root))
	cmd.AddCommand(newTriggerCreateCommand(root))
	return cmd
}

func newTriggerListCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every configured trigger against --db",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriggerList(root, cmd.OutOrStdout())
		},
	}
	return cmd
}

func runTriggerList(root *RootOptions, out io.Writer) error {
	if root.DSN == "" {
		return fmt.Errorf("--db (or RULE_ENGINE_DSN) is required")
	}
	db, err := store.Open(root.DSN)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", root.DSN, err)
	}
	defer db.DB.Close()

	triggers := store.NewTriggerConfigRepository(db)
	rows, err := triggers.List(context.Background())
	if err != nil {
		return fmt.Errorf("listing triggers: %w", err)
	}

	for _, row := range rows {
		fmt.Fprintf(out, "%s\ttable=%s\top=%s\ttiming=%s\tmode=%s\tprogram=%s\tenabled=%t\n",
			row.ID, row.TableName, row.Operation, row.Timing, row.Mode, row.ProgramName, row.Enabled)
	}
	return nil
}

func newTriggerCreateCommand(root *RootOptions) *cobra.Command {
	var specPath string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a trigger from a YAML spec file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriggerCreate(root, specPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&specPath, "spec", "", "path to a YAML file describing the trigger (required)")
	cmd.MarkFlagRequired("spec")
	return cmd
}

// runTriggerCreate decodes a loosely-typed YAML document into
// api.NewTriggerSpec via mapstructure, the same generic map->struct
// decoding idiom the teacher's node configuration loading uses (each node's
// Init decodes a raw configuration map into its typed Configuration
// struct), rather than requiring a dedicated parser per command.
func runTriggerCreate(root *RootOptions, specPath string, out io.Writer) error {
	if root.DSN == "" {
		return fmt.Errorf("--db (or RULE_ENGINE_DSN) is required")
	}
	raw, err := os.ReadFile(specPath)
	if err != nil {
		return fmt.Errorf("reading spec file: %w", err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parsing spec YAML: %w", err)
	}

	spec, err := decodeTriggerSpec(doc)
	if err != nil {
		return fmt.Errorf("decoding trigger spec: %w", err)
	}

	db, err := store.Open(root.DSN)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", root.DSN, err)
	}
	defer db.DB.Close()

	engine := &api.TriggerEngine{
		Engine:   &api.Engine{},
		Triggers: store.NewTriggerConfigRepository(db),
		History:  store.NewTriggerHistoryRepository(db),
	}
	row, cerr := engine.CreateTrigger(context.Background(), spec)
	if cerr != nil {
		return fmt.Errorf("creating trigger: [%s] %s", cerr.Code, cerr.Message)
	}
	fmt.Fprintf(out, "created trigger %s\n", row.ID)
	return nil
}

// decodeTriggerSpec is the testable core of runTriggerCreate's YAML-to-spec
// decoding, isolated from the store.Open/DSN dependency so it can be
// exercised without a live database.
func decodeTriggerSpec(doc map[string]interface{}) (api.NewTriggerSpec, error) {
	var spec api.NewTriggerSpec
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &spec,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return spec, err
	}
	if err := decoder.Decode(doc); err != nil {
		return spec, err
	}
	return spec, nil
}
