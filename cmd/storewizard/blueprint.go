package main

import (
	"os"

	"github.com/aretw0/storewizard/internal/cli"
	"github.com/spf13/cobra"
)

var blueprintCmd = &cobra.Command{
	Use:   "blueprint",
	Short: "Inspect and validate wizard blueprints",
}

var blueprintValidateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check blueprint files for structural errors",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.ValidateBlueprintFiles(args, os.Stdout)
	},
}

var blueprintShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the configured blueprint",
	Long:  `Prints the blueprint selected by --kind or --blueprint as YAML, JSON or a Mermaid flowchart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		bp, err := cli.LoadBlueprint(cfg.Blueprints)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		return cli.WriteBlueprint(bp, format, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(blueprintCmd)
	blueprintCmd.AddCommand(blueprintValidateCmd, blueprintShowCmd)
	blueprintShowCmd.Flags().StringP("format", "f", cli.FormatYAML, "Output format: yaml, json or mermaid")
}
