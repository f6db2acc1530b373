package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds connection settings for a MinIO (or other
// S3-compatible) endpoint.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// MinIO implements Store on an S3-compatible server via minio-go.
type MinIO struct {
	client *minio.Client
}

var _ Store = (*MinIO)(nil)

// NewMinIO connects to the endpoint. A scheme in Endpoint overrides UseSSL.
func NewMinIO(cfg MinIOConfig) (*MinIO, error) {
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if strings.HasPrefix(endpoint, "http") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse endpoint: %w", err)
		}
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &MinIO{client: client}, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (m *MinIO) Head(ctx context.Context, bucket, key string) (*Object, error) {
	info, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("minio StatObject %s/%s: %w", bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("minio StatObject %s/%s: %w", bucket, key, err)
	}
	return objectFromInfo(bucket, info), nil
}

func (m *MinIO) Get(ctx context.Context, bucket, key string) ([]byte, *Object, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("minio GetObject %s/%s: %w", bucket, key, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		if isNoSuchKey(err) {
			return nil, nil, fmt.Errorf("minio GetObject %s/%s: %w", bucket, key, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("minio Stat %s/%s: %w", bucket, key, err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}
	return data, objectFromInfo(bucket, info), nil
}

func (m *MinIO) Put(ctx context.Context, bucket, key string, body []byte, contentType string, metadata map[string]string) error {
	_, err := m.client.PutObject(ctx, bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: metadata,
		UserTags:     map[string]string{projectTagKey: projectTagValue},
	})
	if err != nil {
		return fmt.Errorf("minio PutObject %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (m *MinIO) List(ctx context.Context, bucket, prefix string, fn func(Object) error) error {
	for info := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return fmt.Errorf("minio ListObjects %s/%s: %w", bucket, prefix, info.Err)
		}
		if err := fn(Object{Bucket: bucket, Key: info.Key, Size: info.Size}); err != nil {
			return err
		}
	}
	return nil
}

func objectFromInfo(bucket string, info minio.ObjectInfo) *Object {
	return &Object{
		Bucket:      bucket,
		Key:         info.Key,
		ContentType: info.ContentType,
		Size:        info.Size,
		Metadata:    normalizeMetadata(info.UserMetadata),
	}
}
