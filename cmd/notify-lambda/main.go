// Package main provides the Lambda entry point for storage fan-out.
//
// Invoked directly by the bucket's ObjectCreated notification. Events for
// originals are republished to either an SNS topic or an EventBridge bus,
// whichever is configured, so each rendition worker and the indexer get
// their own copy.
package main

import (
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"

	"github.com/fpang/massive-shoot/internal/config"
	"github.com/fpang/massive-shoot/internal/fanout"
	"github.com/fpang/massive-shoot/internal/lambdaboot"
	"github.com/fpang/massive-shoot/internal/lambdawrap"
	"github.com/fpang/massive-shoot/internal/logging"
)

const functionName = "notify-lambda"

// commitHash is overridden by -ldflags at build.
var commitHash = "dev"

type lambdaConfig struct {
	Common     config.Common
	Fanout     config.Fanout
	SavePrefix string `env:"SAVE_IMAGE_PREFIX" envDefault:".images"`
}

var handler lambdawrap.Handler[events.S3Event, int]

func init() {
	initStart := time.Now()
	logging.Init()

	cfg := lambdaboot.MustLoad[lambdaConfig]()
	if err := cfg.Fanout.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid fan-out configuration")
	}
	obs := lambdaboot.InitObservability(cfg.Common, functionName, commitHash)
	clients := lambdaboot.InitAWS()

	startup := lambdaboot.StartupLogWith(functionName, commitHash, initStart, obs)
	var pub fanout.Publisher
	if cfg.Fanout.TopicARN != "" {
		pub = fanout.NewSNSPublisher(sns.NewFromConfig(clients.Config), cfg.Fanout.TopicARN)
		startup.Topic("fanout", cfg.Fanout.TopicARN)
	} else {
		pub = fanout.NewEventBridgePublisher(eventbridge.NewFromConfig(clients.Config), cfg.Fanout.EventBus)
		startup.Topic("fanout", cfg.Fanout.EventBus)
	}

	prefix := config.NormalizePrefix(cfg.SavePrefix)
	notifier := fanout.NewNotifier(pub, prefix)
	handler = lambdawrap.Wrap(functionName, obs.Deps(), notifier.Handle)

	startup.Config("savePrefix", prefix).Log()
}

func main() {
	lambda.Start(handler)
}
