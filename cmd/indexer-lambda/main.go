// Package main provides the Lambda entry point for the image indexer.
//
// Consumes fan-out notifications for originals and (re)writes the image
// record from the object's metadata. The ingest Lambda already writes the
// same record; this path covers originals written by other producers and
// is idempotent with it.
package main

import (
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/fpang/massive-shoot/internal/config"
	"github.com/fpang/massive-shoot/internal/indexer"
	"github.com/fpang/massive-shoot/internal/lambdaboot"
	"github.com/fpang/massive-shoot/internal/lambdawrap"
	"github.com/fpang/massive-shoot/internal/logging"
	"github.com/fpang/massive-shoot/internal/queue"
)

const functionName = "indexer-lambda"

// commitHash is overridden by -ldflags at build.
var commitHash = "dev"

type lambdaConfig struct {
	Common  config.Common
	Storage config.Storage
	Table   config.Table
}

var handler lambdawrap.Handler[events.SQSEvent, events.SQSEventResponse]

func init() {
	initStart := time.Now()
	logging.Init()

	cfg := lambdaboot.MustLoad[lambdaConfig]()
	obs := lambdaboot.InitObservability(cfg.Common, functionName, commitHash)
	clients := lambdaboot.InitAWS()
	prefix := config.NormalizePrefix(cfg.Storage.SavePrefix)

	ix := indexer.New(
		lambdaboot.InitObjectStore(clients.Config, cfg.Storage),
		lambdaboot.InitImageStore(clients.Config, cfg.Table),
		prefix,
	)
	batch := &queue.Batch{
		Name:     functionName,
		Process:  ix.ProcessRecord,
		Reporter: obs.Reporter,
		Tracer:   obs.Tracing.Tracer(),
	}
	handler = lambdawrap.Wrap(functionName, obs.Deps(), batch.Handle)

	lambdaboot.StartupLogWith(functionName, commitHash, initStart, obs).
		Bucket("images", cfg.Storage.Bucket).
		Table("images", cfg.Table.Name).
		Config("savePrefix", prefix).
		Log()
}

func main() {
	lambda.Start(handler)
}
