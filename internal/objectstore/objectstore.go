// Package objectstore abstracts the binary store that holds originals and
// renditions. The S3 backend is used in production; MinIO serves
// self-hosted deployments; Memory backs tests and local runs.
package objectstore

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Object describes a stored object without its body.
type Object struct {
	Bucket      string
	Key         string
	ContentType string
	Size        int64
	// Metadata holds user metadata with lower-case keys and no
	// transport prefix (x-amz-meta-).
	Metadata map[string]string
}

// Store reads and writes objects. Put overwrites an existing key.
type Store interface {
	Head(ctx context.Context, bucket, key string) (*Object, error)
	Get(ctx context.Context, bucket, key string) ([]byte, *Object, error)
	Put(ctx context.Context, bucket, key string, body []byte, contentType string, metadata map[string]string) error
	// List calls fn for every object under prefix, stopping at the first error.
	List(ctx context.Context, bucket, prefix string, fn func(Object) error) error
}

const metaHeaderPrefix = "x-amz-meta-"

// Cost-allocation tag applied to every object written by the pipeline.
const (
	projectTagKey   = "Project"
	projectTagValue = "massive-shoot"
)

// projectTagging is the URL-encoded tagging string for PutObject.
func projectTagging() *string {
	t := projectTagKey + "=" + projectTagValue
	return &t
}

// normalizeMetadata lower-cases keys and strips the x-amz-meta- prefix so
// every backend reports metadata the same way.
func normalizeMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		k = strings.ToLower(k)
		k = strings.TrimPrefix(k, metaHeaderPrefix)
		out[k] = v
	}
	return out
}
