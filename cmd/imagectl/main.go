// Command imagectl is the operator CLI for the image pipeline.
//
//	imagectl route /images/U1/L123 --accept image/webp --thumbnail
//	imagectl list --base-url https://cdn.example.com
//	imagectl backfill
//
// list and backfill read the same environment variables as the Lambdas
// (TABLE_NAME, BUCKET_NAME, FANOUT_TOPIC_ARN, ...) and use the default AWS
// credential chain.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/fpang/massive-shoot/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "imagectl",
	Short: "Inspect and repair the image pipeline",
	Long: `imagectl helps operate the image pipeline.

It can show how the CDN maps a public image URL to a stored rendition,
print the image feed the API serves, and republish stored originals so
that renditions and index records are rebuilt.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init()
	},
}

func init() {
	rootCmd.AddCommand(routeCmd, listCmd, backfillCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
