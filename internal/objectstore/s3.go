package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"
)

// S3 implements Store on AWS S3.
type S3 struct {
	client *s3.Client
}

var _ Store = (*S3)(nil)

// NewS3 wraps an S3 client initialized from the shared AWS config.
func NewS3(client *s3.Client) *S3 {
	return &S3{client: client}
}

// Head reads content type, size and user metadata.
func (s *S3) Head(ctx context.Context, bucket, key string) (*Object, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return nil, fmt.Errorf("S3 HeadObject %s/%s: %w", bucket, key, ErrNotFound)
		}
		return nil, fmt.Errorf("S3 HeadObject %s/%s: %w", bucket, key, err)
	}
	return &Object{
		Bucket:      bucket,
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
		Metadata:    normalizeMetadata(out.Metadata),
	}, nil
}

// Get downloads the whole object into memory.
func (s *S3) Get(ctx context.Context, bucket, key string) ([]byte, *Object, error) {
	log.Debug().Str("bucket", bucket).Str("key", key).Msg("Downloading from S3")
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil, fmt.Errorf("S3 GetObject %s/%s: %w", bucket, key, ErrNotFound)
		}
		return nil, nil, fmt.Errorf("S3 GetObject %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s/%s: %w", bucket, key, err)
	}
	return data, &Object{
		Bucket:      bucket,
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		Size:        int64(len(data)),
		Metadata:    normalizeMetadata(out.Metadata),
	}, nil
}

// Put uploads body, replacing any existing object at key.
func (s *S3) Put(ctx context.Context, bucket, key string, body []byte, contentType string, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &bucket,
		Key:           &key,
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   &contentType,
		Metadata:      metadata,
		Tagging:       projectTagging(),
	})
	if err != nil {
		return fmt.Errorf("S3 PutObject %s/%s: %w", bucket, key, err)
	}
	log.Debug().Str("bucket", bucket).Str("key", key).Int("size", len(body)).Msg("Uploaded to S3")
	return nil
}

// List pages through ListObjectsV2 under prefix.
func (s *S3) List(ctx context.Context, bucket, prefix string, fn func(Object) error) error {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: &bucket,
		Prefix: &prefix,
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("S3 ListObjectsV2 %s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if err := fn(Object{
				Bucket: bucket,
				Key:    aws.ToString(obj.Key),
				Size:   aws.ToInt64(obj.Size),
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
