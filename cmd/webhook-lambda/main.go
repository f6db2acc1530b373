// Package main provides the Lambda entry point for the LINE webhook.
//
// API Gateway routes POST /callback here. The handler verifies the
// X-Line-Signature header, echoes text messages back to the sender and
// forwards image message events to the ingestion queue.
//
// Credentials come from env or SSM Parameter Store at cold start:
//   - CHANNEL_SECRET or SSM_CHANNEL_SECRET_PARAM
//   - CHANNEL_ACCESS_TOKEN or SSM_CHANNEL_ACCESS_TOKEN_PARAM
package main

import (
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"github.com/fpang/massive-shoot/internal/config"
	"github.com/fpang/massive-shoot/internal/lambdaboot"
	"github.com/fpang/massive-shoot/internal/lambdawrap"
	"github.com/fpang/massive-shoot/internal/logging"
	"github.com/fpang/massive-shoot/internal/queue"
	"github.com/fpang/massive-shoot/internal/webhook"
)

const functionName = "webhook-lambda"

// commitHash is overridden by -ldflags at build.
var commitHash = "dev"

type lambdaConfig struct {
	Common  config.Common
	Channel config.Channel
	Queue   config.Queue
}

var handler lambdawrap.Handler[events.APIGatewayProxyRequest, events.APIGatewayProxyResponse]

func init() {
	initStart := time.Now()
	logging.Init()

	cfg := lambdaboot.MustLoad[lambdaConfig]()
	obs := lambdaboot.InitObservability(cfg.Common, functionName, commitHash)
	clients := lambdaboot.InitAWS()

	secret := lambdaboot.MustResolveSecret(clients.SSM, cfg.Channel.Secret, cfg.Channel.SecretParam)
	token := lambdaboot.MustResolveSecret(clients.SSM, cfg.Channel.AccessToken, cfg.Channel.AccessTokenParam)

	sender := queue.NewSQSSender(sqs.NewFromConfig(clients.Config), cfg.Queue.SaveImageQueueURL)
	mux := http.NewServeMux()
	mux.Handle("/callback", webhook.NewHandler(secret, lambdaboot.InitLineClient(token), sender, obs.Reporter))

	adapter := httpadapter.New(mux)
	handler = lambdawrap.Wrap(functionName, obs.Deps(), adapter.ProxyWithContext)

	lambdaboot.StartupLogWith(functionName, commitHash, initStart, obs).
		Queue("saveImage", cfg.Queue.SaveImageQueueURL).
		SSMParam("channelSecret", cfg.Channel.SecretParam).
		SSMParam("channelAccessToken", cfg.Channel.AccessTokenParam).
		Log()
}

func main() {
	lambda.Start(handler)
}
