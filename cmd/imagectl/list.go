package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fpang/massive-shoot/internal/api"
	"github.com/fpang/massive-shoot/internal/config"
	"github.com/fpang/massive-shoot/internal/lambdaboot"
	"github.com/fpang/massive-shoot/internal/store"
)

var (
	listBaseURL     string
	listImagePrefix string
	listSavePrefix  string
	listOwner       string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the image feed as the API serves it",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := config.Load[config.Table]()
		if err != nil {
			return err
		}
		clients := lambdaboot.InitAWS()
		images := lambdaboot.InitImageStore(clients.Config, table)

		records, err := images.ScanImages(cmd.Context())
		if err != nil {
			return fmt.Errorf("scan %s: %w", table.Name, err)
		}
		return printFeed(cmd, records)
	},
}

func printFeed(cmd *cobra.Command, records []store.ImageRecord) error {
	if listOwner != "" {
		records = api.FilterOwner(records, listOwner)
	}
	feed := api.BuildFeed(records, api.Options{
		BaseURL:     config.NormalizeBaseURL(listBaseURL),
		ImagePrefix: config.NormalizePrefix(listImagePrefix),
		SavePrefix:  config.NormalizePrefix(listSavePrefix),
	})
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(feed)
}

func init() {
	listCmd.Flags().StringVar(&listBaseURL, "base-url", "https://localhost/", "CDN base URL for image links")
	listCmd.Flags().StringVar(&listImagePrefix, "image-prefix", "", "Public path prefix; empty uses object keys")
	listCmd.Flags().StringVar(&listSavePrefix, "save-prefix", ".images", "Storage key prefix")
	listCmd.Flags().StringVar(&listOwner, "owner", "", "Only list images owned by this user id")
}
