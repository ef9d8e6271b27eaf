package main

import (
	"context"

	"github.com/aretw0/storewizard/internal/cli"
	"github.com/aretw0/storewizard/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the wizard HTTP API",
	Long: `Starts the wizard session API described by /openapi.yaml, including the
remote uniqueness endpoint and per-session event streams.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		stack, err := buildStack(cmd, func(cfg *config.Config) {
			if v, _ := cmd.Flags().GetString("addr"); cmd.Flags().Changed("addr") {
				cfg.Server.Addr = v
			}
			if cmd.Flags().Changed("metrics") {
				cfg.Metrics.Enabled, _ = cmd.Flags().GetBool("metrics")
			}
		}, cli.WithRegisterer(reg))
		if err != nil {
			return err
		}
		defer stack.Close()

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()
		return cli.Serve(sigCtx, stack, reg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics")
}
