package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/storewizard/internal/cli"
	"github.com/aretw0/storewizard/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "storewizard",
	Short: "Guided multi-step creation of products and services",
	Long: `storewizard walks a user through a multi-step form, autosaves the draft,
validates each step and finally creates the primary record and its dependents.

It can run interactively (fill), as an HTTP API (serve) or as an MCP server (mcp).`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML or JSON config file")
	rootCmd.PersistentFlags().String("kind", "", "Built-in blueprint kind (digital_product, service)")
	rootCmd.PersistentFlags().String("blueprint", "", "Path to a blueprint YAML file (overrides --kind)")
	rootCmd.PersistentFlags().String("store", "", "Draft store driver: memory, file or redis")
	rootCmd.PersistentFlags().String("templates", "", "Directory of template documents")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// loadConfig reads --config and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	if v, _ := cmd.Flags().GetString("kind"); v != "" {
		cfg.Blueprints.Kind = v
		cfg.Blueprints.File = ""
	}
	if v, _ := cmd.Flags().GetString("blueprint"); v != "" {
		cfg.Blueprints.File = v
	}
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		cfg.Store.Driver = v
	}
	if v, _ := cmd.Flags().GetString("templates"); v != "" {
		cfg.Templates.Dir = v
	}
	return cfg, cfg.Validate()
}

func loadLogger(cmd *cobra.Command, cfg config.Config) (*slog.Logger, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.CreateLogger(cfg.Log, debug)
}

// buildStack loads the config and assembles the stack for a command.
func buildStack(cmd *cobra.Command, mutate func(*config.Config), opts ...cli.StackOption) (*cli.Stack, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}
	logger, err := loadLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	return cli.NewStack(cfg, logger, opts...)
}
