// Package main implements the ans CLI: chat with answerd locally, or talk to
// a running answerd daemon over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL of a running answerd. Empty means local.
	serverURL string
	// configPath overrides ~/.config/answerd/config.yaml for local commands.
	configPath string
	// verbose enables structured logs on stdout for local commands.
	verbose bool
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ans",
	Short: "Ask, teach and chat with answerd",
	Long: `ans is a command-line interface for answerd.

Without --server every command works directly on the local knowledge file
and profile. With --server the commands talk to a running answerd daemon.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "answerd server URL (e.g. http://localhost:9191); empty works locally")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/answerd/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stdout")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(teachCmd)
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ans %s\n", version)
	},
}
