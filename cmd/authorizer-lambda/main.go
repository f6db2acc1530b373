// Package main provides the Lambda entry point for the API Gateway TOKEN
// authorizer. Bearer tokens are verified against LINE Login and must be
// issued for LINE_LOGIN_CHANNEL_ID.
package main

import (
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/fpang/massive-shoot/internal/authorizer"
	"github.com/fpang/massive-shoot/internal/config"
	"github.com/fpang/massive-shoot/internal/lambdaboot"
	"github.com/fpang/massive-shoot/internal/lambdawrap"
	"github.com/fpang/massive-shoot/internal/line"
	"github.com/fpang/massive-shoot/internal/logging"
)

const functionName = "authorizer-lambda"

// commitHash is overridden by -ldflags at build.
var commitHash = "dev"

type lambdaConfig struct {
	Common config.Common
	Login  config.Login
}

var handler lambdawrap.Handler[events.APIGatewayCustomAuthorizerRequest, events.APIGatewayCustomAuthorizerResponse]

func init() {
	initStart := time.Now()
	logging.Init()

	cfg := lambdaboot.MustLoad[lambdaConfig]()
	obs := lambdaboot.InitObservability(cfg.Common, functionName, commitHash)

	a := authorizer.New(line.NewLoginClient(), cfg.Login.ChannelID)
	handler = lambdawrap.Wrap(functionName, obs.Deps(), a.Handle)

	lambdaboot.StartupLogWith(functionName, commitHash, initStart, obs).
		Config("loginChannelId", cfg.Login.ChannelID).
		Log()
}

func main() {
	lambda.Start(handler)
}
