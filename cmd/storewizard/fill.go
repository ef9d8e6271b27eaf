package main

import (
	"context"
	"os"

	"github.com/aretw0/storewizard/internal/cli"
	"github.com/aretw0/storewizard/internal/config"
	"github.com/spf13/cobra"
)

var fillCmd = &cobra.Command{
	Use:   "fill [session-key]",
	Short: "Fill a wizard interactively",
	Long: `Runs the wizard in the terminal. Drafts are autosaved (to .storewizard/drafts
unless another store is configured), so running fill again with the same
session key resumes where you left off.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionKey := "default"
		if len(args) > 0 {
			sessionKey = args[0]
		}
		headless, _ := cmd.Flags().GetBool("headless")
		fresh, _ := cmd.Flags().GetBool("fresh")

		stack, err := buildStack(cmd, func(cfg *config.Config) {
			if !cmd.Flags().Changed("store") && cfg.Store.Driver == config.StoreMemory {
				cfg.Store.Driver = config.StoreFile
			}
		})
		if err != nil {
			return err
		}
		defer stack.Close()

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		return cli.RunFill(sigCtx, stack, cli.FillOptions{
			SessionKey: sessionKey,
			Headless:   headless,
			Fresh:      fresh,
			Input:      os.Stdin,
			Output:     os.Stdout,
		})
	},
}

func init() {
	rootCmd.AddCommand(fillCmd)
	fillCmd.Flags().Bool("headless", false, "Plain output without prompts or banner")
	fillCmd.Flags().Bool("fresh", false, "Discard the autosaved draft before starting")
}
