package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "confluence-downloader",
	Short: "Export a Confluence space to a local markdown tree",
	Long: `confluence-downloader exports every page and attachment of a Confluence
Cloud space into a local directory of markdown documents, suitable for
storage, diffing and search indexing.

Credentials and the target space are read from CONFLUENCE_URL,
CONFLUENCE_EMAIL, CONFLUENCE_TOKEN, CONFLUENCE_SPACE and OUTPUT_DIR
(a .env file is honored); anything missing is prompted for.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file")
}
