// Package cli provides the command-line interface for rss-opinion.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// Version and Commit are set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "rssopinion",
	Short: "Republish new opinion columns from newspaper RSS feeds",
	Long: "rssopinion polls newspaper opinion feeds, detects articles published since the last stored snapshot " +
		"and announces them on Telegram and Twitter.",
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "rssopinion %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
