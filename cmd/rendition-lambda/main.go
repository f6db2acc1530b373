// Package main provides the Lambda entry point for one rendition worker.
//
// The same binary is deployed once per derivative (RENDITION_VARIANT is
// one of webp_resized, webp_original_size, resized_original_format). Each
// deployment consumes its own queue subscribed to the fan-out
// destination and writes the derivative next to the original.
package main

import (
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/massive-shoot/internal/config"
	"github.com/fpang/massive-shoot/internal/lambdaboot"
	"github.com/fpang/massive-shoot/internal/lambdawrap"
	"github.com/fpang/massive-shoot/internal/logging"
	"github.com/fpang/massive-shoot/internal/queue"
	"github.com/fpang/massive-shoot/internal/rendition"
)

const functionName = "rendition-lambda"

// commitHash is overridden by -ldflags at build.
var commitHash = "dev"

type lambdaConfig struct {
	Common    config.Common
	Storage   config.Storage
	Rendition config.Rendition
}

var handler lambdawrap.Handler[events.SQSEvent, events.SQSEventResponse]

func init() {
	initStart := time.Now()
	logging.Init()

	cfg := lambdaboot.MustLoad[lambdaConfig]()
	obs := lambdaboot.InitObservability(cfg.Common, functionName, commitHash)
	clients := lambdaboot.InitAWS()
	prefix := config.NormalizePrefix(cfg.Storage.SavePrefix)

	worker, err := rendition.NewWorker(lambdaboot.InitObjectStore(clients.Config, cfg.Storage), cfg.Rendition.Variant, prefix)
	if err != nil {
		log.Fatal().Err(err).Str("variant", cfg.Rendition.Variant).Msg("Invalid rendition variant")
	}
	name := functionName + ":" + worker.Rendition().String()
	batch := &queue.Batch{
		Name:     name,
		Process:  worker.ProcessRecord,
		Reporter: obs.Reporter,
		Tracer:   obs.Tracing.Tracer(),
	}
	handler = lambdawrap.Wrap(name, obs.Deps(), batch.Handle)

	lambdaboot.StartupLogWith(functionName, commitHash, initStart, obs).
		Bucket("images", cfg.Storage.Bucket).
		Config("variant", worker.Rendition().String()).
		Config("storageBackend", cfg.Storage.Backend).
		Config("savePrefix", prefix).
		Log()
}

func main() {
	lambda.Start(handler)
}
