package main

import (
	"os"

	"github.com/aretw0/storewizard/internal/cli"
	"github.com/aretw0/storewizard/internal/config"
	"github.com/spf13/cobra"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Manage autosaved drafts",
	Long:  `List, inspect, and remove drafts in the configured store. Keys may be given as <kind>:<session-key>.`,
}

func fileByDefault(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		if !cmd.Flags().Changed("store") && cfg.Store.Driver == config.StoreMemory {
			cfg.Store.Driver = config.StoreFile
		}
	}
}

var draftLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List autosaved drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := buildStack(cmd, fileByDefault(cmd))
		if err != nil {
			return err
		}
		defer stack.Close()
		kind, _ := cmd.Flags().GetString("only")
		return cli.ListDrafts(cmd.Context(), stack.Store, kind, os.Stdout)
	},
}

var draftInspectCmd = &cobra.Command{
	Use:   "inspect <key>",
	Short: "Print a stored draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := buildStack(cmd, fileByDefault(cmd))
		if err != nil {
			return err
		}
		defer stack.Close()
		return cli.InspectDraft(cmd.Context(), stack.Store, args[0], os.Stdout)
	},
}

var draftRmCmd = &cobra.Command{
	Use:   "rm <key>...",
	Short: "Remove one or more drafts",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := buildStack(cmd, fileByDefault(cmd))
		if err != nil {
			return err
		}
		defer stack.Close()
		return cli.RemoveDrafts(cmd.Context(), stack.Store, args, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(draftCmd)
	draftCmd.AddCommand(draftLsCmd, draftInspectCmd, draftRmCmd)
	draftLsCmd.Flags().String("only", "", "Only list drafts of this blueprint kind")
}
