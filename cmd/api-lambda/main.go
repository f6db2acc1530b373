// Package main provides the Lambda entry point for the image feed API.
//
// API Gateway (REST, behind the TOKEN authorizer) proxies GET /images
// here. The handler scans the image table and returns every record with a
// CDN URL, newest first.
package main

import (
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"

	"github.com/fpang/massive-shoot/internal/api"
	"github.com/fpang/massive-shoot/internal/config"
	"github.com/fpang/massive-shoot/internal/lambdaboot"
	"github.com/fpang/massive-shoot/internal/lambdawrap"
	"github.com/fpang/massive-shoot/internal/logging"
)

const functionName = "api-lambda"

// commitHash is overridden by -ldflags at build.
var commitHash = "dev"

type lambdaConfig struct {
	Common     config.Common
	Table      config.Table
	API        config.API
	SavePrefix string `env:"SAVE_IMAGE_PREFIX" envDefault:".images"`
}

var handler lambdawrap.Handler[events.APIGatewayProxyRequest, events.APIGatewayProxyResponse]

func init() {
	initStart := time.Now()
	logging.Init()

	cfg := lambdaboot.MustLoad[lambdaConfig]()
	obs := lambdaboot.InitObservability(cfg.Common, functionName, commitHash)
	clients := lambdaboot.InitAWS()

	h := api.NewHandler(lambdaboot.InitImageStore(clients.Config, cfg.Table), api.Options{
		BaseURL:       config.NormalizeBaseURL(cfg.API.ImageBaseURL),
		ImagePrefix:   config.NormalizePrefix(cfg.API.ImagePrefix),
		SavePrefix:    config.NormalizePrefix(cfg.SavePrefix),
		ScopeToCaller: cfg.API.ScopeToCaller,
		Compress:      cfg.API.Compress,
	})
	adapter := httpadapter.New(h)
	handler = lambdawrap.Wrap(functionName, obs.Deps(), adapter.ProxyWithContext)

	lambdaboot.StartupLogWith(functionName, commitHash, initStart, obs).
		Table("images", cfg.Table.Name).
		Feature("scopeToCaller", cfg.API.ScopeToCaller).
		Feature("compress", cfg.API.Compress).
		Config("imageBaseURL", cfg.API.ImageBaseURL).
		Log()
}

func main() {
	lambda.Start(handler)
}
