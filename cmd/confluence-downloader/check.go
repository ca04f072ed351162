package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/alakob/confluence-downloader/pkg/confluence"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify credentials and space access",
	Long: `Check connects with the configured credentials, lists the spaces the
account can see, then looks up the target space and probes page-level
access. Useful before a long export to catch permission problems early.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		client, err := confluence.New(cfg.SiteURL, cfg.Email, cfg.Token)
		if err != nil {
			fatal("Failed to create client", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Println("Testing connection and permissions...")
		fmt.Printf("URL: %s\n", client.BaseURL())
		fmt.Printf("Email: %s\n", cfg.Email)

		spaces, err := client.ListSpaces(ctx)
		if err != nil {
			fatal("Failed to list spaces", err)
		}
		fmt.Println("\nAccessible spaces:")
		for _, s := range spaces {
			fmt.Printf("- %s: %s\n", s.Key, s.Name)
		}

		fmt.Printf("\nLooking up space %s...\n", cfg.SpaceKey)
		space, err := client.GetSpace(ctx, cfg.SpaceKey)
		if err != nil {
			fatal("Failed to access space", err)
		}
		fmt.Printf("Key: %s\nName: %s\nType: %s\n", space.Key, space.Name, space.Type)

		page, err := client.SamplePage(ctx, cfg.SpaceKey)
		if err != nil {
			fatal("Failed to list pages", err)
		}
		if page == nil {
			fmt.Println("No pages found in the space (or no access to pages)")
			return
		}
		fmt.Printf("Successfully accessed pages. Sample page title: %s\n", page.Title)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
