// Package config reads Lambda configuration from the environment.
//
// Each Lambda parses only the sections it needs. Missing required
// variables are a configuration error: callers treat them as fatal at
// cold start rather than handling them per request.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v6"
)

// Common is shared by every Lambda.
type Common struct {
	ServiceName      string `env:"SERVICE_NAME" envDefault:"massive-shoot"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	SentryDSN        string `env:"SENTRY_DSN"`
	OTLPEndpoint     string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"MassiveShoot"`
}

// Storage selects and addresses the object store.
type Storage struct {
	Backend    string `env:"STORAGE_BACKEND" envDefault:"s3"`
	Bucket     string `env:"BUCKET_NAME,required"`
	SavePrefix string `env:"SAVE_IMAGE_PREFIX" envDefault:".images"`
	MinIO      MinIO  `envPrefix:"MINIO_"`
}

// MinIO holds connection settings for the minio storage backend.
type MinIO struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"true"`
	Region    string `env:"REGION"`
}

// Table names the image index table.
type Table struct {
	Name string `env:"TABLE_NAME,required"`
}

// Channel holds messaging-channel credentials. Secrets may be empty when
// the matching SSM parameter path is used instead.
type Channel struct {
	AccessToken      string `env:"CHANNEL_ACCESS_TOKEN"`
	Secret           string `env:"CHANNEL_SECRET"`
	AccessTokenParam string `env:"SSM_CHANNEL_ACCESS_TOKEN_PARAM" envDefault:"/massive-shoot/prod/channel-access-token"`
	SecretParam      string `env:"SSM_CHANNEL_SECRET_PARAM" envDefault:"/massive-shoot/prod/channel-secret"`
}

// Login holds the login channel used to verify bearer tokens.
type Login struct {
	ChannelID string `env:"LINE_LOGIN_CHANNEL_ID,required"`
}

// Queue addresses the ingestion queue.
type Queue struct {
	SaveImageQueueURL string `env:"SAVE_IMAGE_QUEUE_URL,required"`
}

// Fanout addresses the fan-out destination. Exactly one of TopicARN or
// EventBus must be set.
type Fanout struct {
	TopicARN string `env:"FANOUT_TOPIC_ARN"`
	EventBus string `env:"FANOUT_EVENT_BUS"`
}

// Validate reports whether exactly one fan-out destination is configured.
func (f Fanout) Validate() error {
	switch {
	case f.TopicARN == "" && f.EventBus == "":
		return fmt.Errorf("one of FANOUT_TOPIC_ARN or FANOUT_EVENT_BUS is required")
	case f.TopicARN != "" && f.EventBus != "":
		return fmt.Errorf("FANOUT_TOPIC_ARN and FANOUT_EVENT_BUS are mutually exclusive")
	}
	return nil
}

// Rendition selects which derivative a rendition Lambda produces.
type Rendition struct {
	Variant string `env:"RENDITION_VARIANT,required"`
}

// API configures the read API.
type API struct {
	ImageBaseURL  string `env:"IMAGE_BASE_URL,required"`
	ImagePrefix   string `env:"IMAGE_PREFIX"`
	ScopeToCaller bool   `env:"SCOPE_IMAGES_TO_CALLER" envDefault:"false"`
	// Compress enables gzip responses. Only set it when the REST API
	// declares binary media types.
	Compress bool `env:"COMPRESS_RESPONSES" envDefault:"false"`
}

// Load parses the environment into a new T.
func Load[T any]() (T, error) {
	var cfg T
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	return cfg, nil
}

// NormalizePrefix strips trailing slashes from a key prefix.
func NormalizePrefix(prefix string) string {
	return strings.TrimRight(prefix, "/")
}

// NormalizeBaseURL ensures a base URL ends with exactly one slash.
func NormalizeBaseURL(base string) string {
	return strings.TrimRight(base, "/") + "/"
}
