package cli

import (
	"github.com/spf13/cobra"
)

// envFile is the optional dotenv file named by --env-file.
var envFile string

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "Personal memory with decay, dedupe and identity linking",
	Long: "Recall stores memories extracted from a user's email, calendar and chat, " +
		"ranks them by a decaying strength, and keeps the entity graph deduplicated.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before the environment (default: .env when present)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dedupeCmd)
	rootCmd.AddCommand(identityCmd)
}
