package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/alakob/confluence-downloader/internal/config"
	"github.com/alakob/confluence-downloader/pkg/confluence"
	"github.com/alakob/confluence-downloader/pkg/export"
	"github.com/alakob/confluence-downloader/pkg/markdown"
)

var (
	exportSpace    string
	exportOutput   string
	exportWorkers  int
	exportMatch    string
	exportNoAttach bool
	exportNoImages bool
	exportTimeout  time.Duration
	exportRate     float64
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all pages and attachments of a space",
	Long: `Export downloads every current page of the configured space, converts
each body to markdown with rewritten attachment links, and writes one
document per page under <output>/<space key>/.

A single page or attachment failing does not abort the run; failures are
logged and counted in the final summary.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if exportSpace != "" {
			cfg.SpaceKey = exportSpace
		}
		if exportOutput != "" {
			cfg.OutputDir = exportOutput
		}

		client, err := confluence.New(cfg.SiteURL, cfg.Email, cfg.Token,
			confluence.WithTimeout(exportTimeout),
			confluence.WithRateLimit(exportRate),
		)
		if err != nil {
			fatal("Failed to create client", err)
		}

		conv := markdown.New(markdown.Options{
			ConvertImages: !exportNoImages,
			ConvertTables: true,
		})
		opts := []export.Option{
			export.WithLogger(slog.Default()),
			export.WithWorkers(exportWorkers),
			export.WithConverter(conv),
			export.WithMatch(exportMatch),
		}
		if exportNoAttach {
			opts = append(opts, export.WithoutAttachments())
		}
		exporter := export.New(client, cfg.OutputDir, opts...)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		summary, err := exporter.Run(ctx, cfg.SpaceKey)
		if err != nil {
			fatal("Export failed", err)
		}

		if summary.Exported == 0 && summary.Failed == 0 {
			fmt.Printf("No pages found in space %s\n", cfg.SpaceKey)
			return
		}
		dir := summary.SpaceDir
		if abs, err := filepath.Abs(dir); err == nil {
			dir = abs
		}
		fmt.Printf("\nDownload completed! %d pages exported, %d failed.\nContent saved to: %s\n",
			summary.Exported, summary.Failed, dir)
	},
}

// loadConfig assembles configuration from file, environment and
// interactive prompts. Any problem here is fatal: it happens before the
// first remote call.
func loadConfig() *config.Config {
	prompter := config.NewTerminalPrompter()
	cfg, err := config.Load(configFile, prompter)
	prompter.Close()
	if err != nil {
		fatal("Invalid configuration", err)
	}
	return cfg
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportSpace, "space", "", "Space key (overrides CONFLUENCE_SPACE)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output directory (overrides OUTPUT_DIR)")
	exportCmd.Flags().IntVar(&exportWorkers, "workers", 1, "Number of pages exported concurrently")
	exportCmd.Flags().StringVar(&exportMatch, "match", "", "Only export pages whose title matches this glob")
	exportCmd.Flags().BoolVar(&exportNoAttach, "skip-attachments", false, "Do not download attachments")
	exportCmd.Flags().BoolVar(&exportNoImages, "no-images", false, "Render images as their alt text instead of links")
	exportCmd.Flags().DurationVar(&exportTimeout, "timeout", confluence.DefaultTimeout, "Per-request timeout")
	exportCmd.Flags().Float64Var(&exportRate, "rate-limit", 0, "Max requests per second (0 = unlimited)")
}
