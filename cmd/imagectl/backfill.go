package main

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/massive-shoot/internal/config"
	"github.com/fpang/massive-shoot/internal/fanout"
	"github.com/fpang/massive-shoot/internal/lambdaboot"
)

type backfillConfig struct {
	Storage config.Storage
	Fanout  config.Fanout
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Republish every stored original to the fan-out destination",
	Long: `backfill lists all originals under SAVE_IMAGE_PREFIX and publishes an
ObjectCreated notification for each, so every rendition worker and the
indexer process them again. Existing outputs are overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load[backfillConfig]()
		if err != nil {
			return err
		}
		if err := cfg.Fanout.Validate(); err != nil {
			return err
		}
		clients := lambdaboot.InitAWS()
		objects, err := lambdaboot.NewObjectStore(clients.Config, cfg.Storage)
		if err != nil {
			return err
		}

		var pub fanout.Publisher
		if cfg.Fanout.TopicARN != "" {
			pub = fanout.NewSNSPublisher(sns.NewFromConfig(clients.Config), cfg.Fanout.TopicARN)
		} else {
			pub = fanout.NewEventBridgePublisher(eventbridge.NewFromConfig(clients.Config), cfg.Fanout.EventBus)
		}

		prefix := config.NormalizePrefix(cfg.Storage.SavePrefix)
		n, err := fanout.Backfill(cmd.Context(), objects, pub, cfg.Storage.Bucket, prefix)
		log.Info().Int("published", n).Str("bucket", cfg.Storage.Bucket).Str("prefix", prefix).Msg("Backfill finished")
		if err != nil {
			return fmt.Errorf("backfill stopped after %d originals: %w", n, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "published %d originals\n", n)
		return nil
	},
}
