// Package main provides the Lambda entry point for image ingestion.
//
// Triggered by the save-image SQS queue (ReportBatchItemFailures). Each
// message is a LINE image event; the original bytes are downloaded from
// the LINE content API, stored under the save prefix with owner metadata,
// and indexed in DynamoDB.
package main

import (
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/fpang/massive-shoot/internal/config"
	"github.com/fpang/massive-shoot/internal/ingest"
	"github.com/fpang/massive-shoot/internal/lambdaboot"
	"github.com/fpang/massive-shoot/internal/lambdawrap"
	"github.com/fpang/massive-shoot/internal/logging"
	"github.com/fpang/massive-shoot/internal/queue"
)

const functionName = "ingest-lambda"

// commitHash is overridden by -ldflags at build.
var commitHash = "dev"

type lambdaConfig struct {
	Common  config.Common
	Storage config.Storage
	Table   config.Table
	Channel config.Channel
}

var handler lambdawrap.Handler[events.SQSEvent, events.SQSEventResponse]

func init() {
	initStart := time.Now()
	logging.Init()

	cfg := lambdaboot.MustLoad[lambdaConfig]()
	obs := lambdaboot.InitObservability(cfg.Common, functionName, commitHash)
	clients := lambdaboot.InitAWS()

	token := lambdaboot.MustResolveSecret(clients.SSM, cfg.Channel.AccessToken, cfg.Channel.AccessTokenParam)
	prefix := config.NormalizePrefix(cfg.Storage.SavePrefix)

	worker := ingest.NewWorker(
		lambdaboot.InitLineClient(token),
		lambdaboot.InitObjectStore(clients.Config, cfg.Storage),
		lambdaboot.InitImageStore(clients.Config, cfg.Table),
		cfg.Storage.Bucket,
		prefix,
	)
	batch := &queue.Batch{
		Name:     functionName,
		Process:  worker.ProcessRecord,
		Reporter: obs.Reporter,
		Tracer:   obs.Tracing.Tracer(),
	}
	handler = lambdawrap.Wrap(functionName, obs.Deps(), batch.Handle)

	lambdaboot.StartupLogWith(functionName, commitHash, initStart, obs).
		Bucket("images", cfg.Storage.Bucket).
		Table("images", cfg.Table.Name).
		SSMParam("channelAccessToken", cfg.Channel.AccessTokenParam).
		Config("storageBackend", cfg.Storage.Backend).
		Config("savePrefix", prefix).
		Log()
}

func main() {
	lambda.Start(handler)
}
