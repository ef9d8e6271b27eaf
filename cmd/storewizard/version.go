package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/storewizard"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of storewizard",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("storewizard version %s\n", strings.TrimSpace(storewizard.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
