// Package main provides the Lambda@Edge viewer-request function for the
// image CDN.
//
// Lambda@Edge functions get no environment variables, so the path
// prefixes are fixed at build time:
//
//	go build -ldflags="-X main.hostingPrefix=images -X main.savePrefix=.images"
package main

import (
	"time"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/fpang/massive-shoot/internal/edge"
	"github.com/fpang/massive-shoot/internal/lambdaboot"
	"github.com/fpang/massive-shoot/internal/lambdawrap"
	"github.com/fpang/massive-shoot/internal/line"
	"github.com/fpang/massive-shoot/internal/logging"
)

const functionName = "edge-lambda"

// loginTimeout bounds the token check. Viewer-request functions are cut
// off at 5 seconds.
const loginTimeout = 3 * time.Second

// Overridden by -ldflags at build.
var (
	commitHash    = "dev"
	hostingPrefix = "images"
	savePrefix    = ".images"
)

var handler lambdawrap.Handler[edge.Event, any]

func init() {
	initStart := time.Now()
	logging.Init()

	router := edge.NewRouter(line.NewLoginClientWithTimeout(loginTimeout), hostingPrefix, savePrefix)
	handler = lambdawrap.WithLogContext(functionName, router.Handle)

	lambdaboot.StartupLog(functionName, initStart).
		CommitHash(commitHash).
		Config("hostingPrefix", hostingPrefix).
		Config("savePrefix", savePrefix).
		Config("loginTimeout", loginTimeout.String()).
		Log()
}

func main() {
	lambda.Start(handler)
}
