// Package store persists the image index: one record per logical image,
// keyed by (UserId, ImageId). Records are written by ingestion and
// rewritten with the same values by the indexer, so every Put is an
// idempotent upsert. Nothing in the pipeline deletes records.
package store

import (
	"context"
	"time"
)

// ImageRecord is one row of the image index table.
type ImageRecord struct {
	UserID  string `dynamodbav:"UserId" json:"userId"`
	ImageID string `dynamodbav:"ImageId" json:"imageId"`
	// Created is unix seconds; sub-second precision is kept.
	Created     float64 `dynamodbav:"Created" json:"created"`
	ContentType string  `dynamodbav:"ContentType" json:"contentType"`
	// ObjectKey is the canonical storage key of the original.
	ObjectKey string `dynamodbav:"ObjectKey,omitempty" json:"objectKey,omitempty"`
	// TakenAt is the EXIF capture time in unix seconds, when known.
	TakenAt *float64 `dynamodbav:"TakenAt,omitempty" json:"takenAt,omitempty"`
}

// CreatedTime converts Created to a UTC time.
func (r ImageRecord) CreatedTime() time.Time {
	sec := int64(r.Created)
	nsec := int64((r.Created - float64(sec)) * 1e9)
	// Round to microseconds; float seconds cannot carry more.
	return time.Unix(sec, nsec).UTC().Round(time.Microsecond)
}

// ImageStore reads and writes image records.
//
// PutImage replaces any record with the same key. ScanImages returns every
// record, following pagination internally.
type ImageStore interface {
	PutImage(ctx context.Context, rec *ImageRecord) error
	ScanImages(ctx context.Context) ([]ImageRecord, error)
}
