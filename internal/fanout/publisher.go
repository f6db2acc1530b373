// Package fanout republishes storage events for new originals so every
// downstream consumer (renditions, indexer) gets its own copy, and decodes
// those copies on the consumer side.
//
// Two transports are supported: an SNS topic whose subscribers are SQS
// queues, or an EventBridge bus whose rules target SQS queues.
package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	eventbridgetypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

const (
	// EventSource is the EventBridge source of republished storage events.
	EventSource = "massive-shoot.storage"
	// DetailTypeObjectCreated is the EventBridge detail type.
	DetailTypeObjectCreated = "Object Created"
)

// Publisher sends one storage record to every fan-out consumer.
type Publisher interface {
	Publish(ctx context.Context, rec events.S3EventRecord) error
}

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPublisher publishes a single-record S3 event document to a topic.
type SNSPublisher struct {
	client   snsAPI
	topicARN string
}

var _ Publisher = (*SNSPublisher)(nil)

// NewSNSPublisher creates a publisher for topicARN.
func NewSNSPublisher(client *sns.Client, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN}
}

func (p *SNSPublisher) Publish(ctx context.Context, rec events.S3EventRecord) error {
	doc, err := json.Marshal(events.S3Event{Records: []events.S3EventRecord{rec}})
	if err != nil {
		return fmt.Errorf("marshal S3 event: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: &p.topicARN,
		Message:  aws.String(string(doc)),
		Subject:  aws.String("Amazon S3 Notification"),
	})
	if err != nil {
		return fmt.Errorf("SNS Publish %s: %w", rec.S3.Object.Key, err)
	}
	return nil
}

type eventBridgeAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// EventBridgePublisher puts one "Object Created" event on a bus.
type EventBridgePublisher struct {
	client  eventBridgeAPI
	busName string
}

var _ Publisher = (*EventBridgePublisher)(nil)

// NewEventBridgePublisher creates a publisher for busName.
func NewEventBridgePublisher(client *eventbridge.Client, busName string) *EventBridgePublisher {
	return &EventBridgePublisher{client: client, busName: busName}
}

// Detail mirrors the shape of native S3 EventBridge notifications.
type Detail struct {
	Bucket struct {
		Name string `json:"name"`
	} `json:"bucket"`
	Object struct {
		Key  string `json:"key"`
		Size int64  `json:"size,omitempty"`
		ETag string `json:"etag,omitempty"`
	} `json:"object"`
}

func (p *EventBridgePublisher) Publish(ctx context.Context, rec events.S3EventRecord) error {
	var d Detail
	d.Bucket.Name = rec.S3.Bucket.Name
	d.Object.Key = rec.S3.Object.Key
	d.Object.Size = rec.S3.Object.Size
	d.Object.ETag = rec.S3.Object.ETag
	detail, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal detail: %w", err)
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []eventbridgetypes.PutEventsRequestEntry{{
			EventBusName: &p.busName,
			Source:       aws.String(EventSource),
			DetailType:   aws.String(DetailTypeObjectCreated),
			Detail:       aws.String(string(detail)),
			Resources:    []string{"arn:aws:s3:::" + rec.S3.Bucket.Name},
		}},
	})
	if err != nil {
		return fmt.Errorf("PutEvents: %w", err)
	}
	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil || entry.ErrorMessage != nil {
				return fmt.Errorf("PutEvents entry %d failed: %s - %s", i, aws.ToString(entry.ErrorCode), aws.ToString(entry.ErrorMessage))
			}
		}
	}
	return nil
}
