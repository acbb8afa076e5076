// Package cmd defines the CLI commands for the sitewatch executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitewatch",
		Short: "Watches web pages for target phrases and notifies on first sight",
		Long: `sitewatch periodically fetches a set of web pages, searches each for a
set of target phrases using normalized text matching, and sends a Pushover
notification exactly once per (page, phrase) combination the first time it
is detected.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./sitewatch.yaml)")

	cmd.AddCommand(newWatchCmd())
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
