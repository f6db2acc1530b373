// Package queue holds the SQS side of the pipeline: a sender for the
// ingestion queue and the partial-batch consumer loop shared by every
// queue-triggered Lambda.
package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Sender enqueues one message body.
type Sender interface {
	Send(ctx context.Context, body string) (messageID string, err error)
}

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSender sends to a single queue URL.
type SQSSender struct {
	client   sqsAPI
	queueURL string
}

var _ Sender = (*SQSSender)(nil)

// NewSQSSender creates a sender for queueURL.
func NewSQSSender(client *sqs.Client, queueURL string) *SQSSender {
	return &SQSSender{client: client, queueURL: queueURL}
}

func (s *SQSSender) Send(ctx context.Context, body string) (string, error) {
	out, err := s.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &s.queueURL,
		MessageBody: &body,
	})
	if err != nil {
		return "", fmt.Errorf("SQS SendMessage: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
