// Package lambdaboot provides shared Lambda cold-start bootstrap logic.
//
// Every Lambda in the project needs some subset of: typed env config, AWS
// config, object storage, the image table, SSM secrets, observability and
// startup logging. This package extracts the common init patterns so each
// Lambda's init() is a short composition of helpers.
package lambdaboot

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/massive-shoot/internal/config"
	"github.com/fpang/massive-shoot/internal/errtrack"
	"github.com/fpang/massive-shoot/internal/lambdawrap"
	"github.com/fpang/massive-shoot/internal/line"
	"github.com/fpang/massive-shoot/internal/logging"
	"github.com/fpang/massive-shoot/internal/metrics"
	"github.com/fpang/massive-shoot/internal/objectstore"
	"github.com/fpang/massive-shoot/internal/store"
	"github.com/fpang/massive-shoot/internal/tracing"
)

// Storage backends accepted in STORAGE_BACKEND.
const (
	BackendS3    = "s3"
	BackendMinIO = "minio"
)

// AWSClients holds the core AWS SDK clients used across Lambdas.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// MustLoad parses T from the environment. Fatals on a missing or malformed
// variable.
func MustLoad[T any]() T {
	cfg, err := config.Load[T]()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	return cfg
}

// InitObjectStore returns the object store selected by STORAGE_BACKEND.
func InitObjectStore(cfg aws.Config, st config.Storage) objectstore.Store {
	s, err := NewObjectStore(cfg, st)
	if err != nil {
		log.Fatal().Err(err).Str("backend", st.Backend).Msg("Failed to initialize object store")
	}
	return s
}

// NewObjectStore is InitObjectStore without the fatal.
func NewObjectStore(cfg aws.Config, st config.Storage) (objectstore.Store, error) {
	switch st.Backend {
	case BackendS3, "":
		return objectstore.NewS3(s3.NewFromConfig(cfg)), nil
	case BackendMinIO:
		if st.MinIO.Endpoint == "" {
			return nil, fmt.Errorf("MINIO_ENDPOINT is required for the minio backend")
		}
		return objectstore.NewMinIO(objectstore.MinIOConfig{
			Endpoint:  st.MinIO.Endpoint,
			AccessKey: st.MinIO.AccessKey,
			SecretKey: st.MinIO.SecretKey,
			UseSSL:    st.MinIO.UseSSL,
			Region:    st.MinIO.Region,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", st.Backend)
	}
}

// InitImageStore creates the DynamoDB-backed image index.
func InitImageStore(cfg aws.Config, table config.Table) *store.DynamoImageStore {
	return store.NewDynamoImageStore(dynamodb.NewFromConfig(cfg), table.Name)
}

// InitLineClient creates the Messaging API client for a channel access token.
func InitLineClient(accessToken string) *line.Client {
	c, err := line.NewClient(accessToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create LINE client")
	}
	return c
}

// ParameterGetter is the SSM subset ResolveSecret needs.
type ParameterGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ResolveSecret returns value when set, otherwise the decrypted SSM
// parameter at param.
func ResolveSecret(ctx context.Context, client ParameterGetter, value, param string) (string, error) {
	if value != "" {
		return value, nil
	}
	if param == "" {
		return "", fmt.Errorf("secret not set and no SSM parameter configured")
	}
	ssmStart := time.Now()
	result, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &param,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("read SSM parameter %s: %w", param, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("SSM parameter %s has no value", param)
	}
	log.Debug().Str("param", param).Dur("elapsed", time.Since(ssmStart)).Msg("Secret loaded from SSM")
	return *result.Parameter.Value, nil
}

// MustResolveSecret is ResolveSecret that fatals on error.
func MustResolveSecret(client ParameterGetter, value, param string) string {
	s, err := ResolveSecret(context.Background(), client, value, param)
	if err != nil {
		log.Fatal().Err(err).Str("param", param).Msg("Failed to load secret")
	}
	return s
}

// Observability is the per-process telemetry set up at cold start.
type Observability struct {
	Reporter errtrack.Reporter
	Tracing  *tracing.Provider
}

// Deps returns the wrapper dependencies for lambdawrap.Wrap.
func (o Observability) Deps() lambdawrap.Deps {
	return lambdawrap.Deps{
		Tracer:   o.Tracing.Tracer(),
		Flush:    o.Tracing.ForceFlush,
		Reporter: o.Reporter,
	}
}

// InitObservability configures logging level, the metrics namespace,
// error tracking and tracing from the common config. Failures in the
// optional backends are logged and fall back to no-ops.
func InitObservability(common config.Common, function, release string) Observability {
	logging.SetLevel(common.LogLevel)
	metrics.SetNamespace(common.MetricsNamespace)

	rep, err := errtrack.New(errtrack.Options{
		DSN:         common.SentryDSN,
		Release:     release,
		Environment: common.ServiceName,
		ServerName:  function,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Error tracking disabled")
		rep = errtrack.Nop{}
	}

	tp, err := tracing.Init(context.Background(), common.ServiceName+"/"+function, common.OTLPEndpoint)
	if err != nil {
		log.Warn().Err(err).Msg("Tracing disabled")
		tp, _ = tracing.Init(context.Background(), function, "")
	}
	return Observability{Reporter: rep, Tracing: tp}
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}

// StartupLogWith adds the features every Lambda reports.
func StartupLogWith(name, commitHash string, initStart time.Time, obs Observability) *logging.StartupLogger {
	return StartupLog(name, initStart).
		CommitHash(commitHash).
		Feature("errorTracking", obs.Reporter != nil && !isNop(obs.Reporter)).
		Feature("tracing", obs.Tracing.Enabled())
}

func isNop(r errtrack.Reporter) bool {
	_, ok := r.(errtrack.Nop)
	return ok
}
