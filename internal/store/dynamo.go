package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog/log"
)

// dynamoAPI is the subset of the DynamoDB client used here.
type dynamoAPI interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoImageStore implements ImageStore using AWS DynamoDB.
type DynamoImageStore struct {
	client    dynamoAPI
	tableName string
}

// Compile-time interface check.
var _ ImageStore = (*DynamoImageStore)(nil)

// NewDynamoImageStore creates a DynamoImageStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoImageStore(client *dynamodb.Client, tableName string) *DynamoImageStore {
	return newDynamoImageStore(client, tableName)
}

func newDynamoImageStore(client dynamoAPI, tableName string) *DynamoImageStore {
	return &DynamoImageStore{
		client:    client,
		tableName: tableName,
	}
}

// PutImage marshals rec and writes it with PutItem (full-item replace).
func (s *DynamoImageStore) PutImage(ctx context.Context, rec *ImageRecord) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem UserId=%s ImageId=%s: %w", rec.UserID, rec.ImageID, err)
	}
	log.Debug().Str("userId", rec.UserID).Str("imageId", rec.ImageID).Msg("Image record written")
	return nil
}

// ScanImages reads the whole table, following LastEvaluatedKey until the
// scan is exhausted.
func (s *DynamoImageStore) ScanImages(ctx context.Context) ([]ImageRecord, error) {
	var records []ImageRecord
	pages := 0
	p := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{TableName: &s.tableName})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("Scan %s (page %d): %w", s.tableName, pages+1, err)
		}
		pages++
		var batch []ImageRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal scan page %d: %w", pages, err)
		}
		records = append(records, batch...)
	}
	log.Debug().Int("pages", pages).Int("records", len(records)).Msg("Image table scanned")
	return records, nil
}
