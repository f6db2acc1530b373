package fanout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	eventbridgetypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/fpang/massive-shoot/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(&bytes.Buffer{})
	os.Exit(m.Run())
}

type recordingPublisher struct {
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, rec events.S3EventRecord) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, rec.S3.Object.Key)
	return nil
}

func s3Rec(eventName, bucket, key string) events.S3EventRecord {
	var r events.S3EventRecord
	r.EventName = eventName
	r.S3.Bucket.Name = bucket
	r.S3.Object.Key = key
	return r
}

func TestNotifier_ForwardsOnlyOriginals(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewNotifier(pub, ".images")

	ev := events.S3Event{Records: []events.S3EventRecord{
		s3Rec("ObjectCreated:Put", "b", ".images/original/U1/L1"),
		s3Rec("ObjectCreated:Put", "b", ".images/webp/400/U1/L1"),
		s3Rec("ObjectCreated:Put", "b", ".images/original_format/400/U1/L1"),
		s3Rec("ObjectRemoved:Delete", "b", ".images/original/U1/L2"),
	}}
	count, err := n.Handle(context.Background(), ev)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if count != 1 || len(pub.keys) != 1 || pub.keys[0] != ".images/original/U1/L1" {
		t.Errorf("unexpected publishes: %v", pub.keys)
	}
}

func TestNotifier_PublishFailureFailsInvocation(t *testing.T) {
	n := NewNotifier(&recordingPublisher{err: errors.New("throttled")}, ".images")
	_, err := n.Handle(context.Background(), events.S3Event{Records: []events.S3EventRecord{
		s3Rec("ObjectCreated:Put", "b", ".images/original/U1/L1"),
	}})
	if err == nil {
		t.Fatal("expected error")
	}
}

type fakeSNS struct{ input *sns.PublishInput }

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	return &sns.PublishOutput{}, nil
}

type fakeEventBridge struct {
	input  *eventbridge.PutEventsInput
	failed bool
}

func (f *fakeEventBridge) PutEvents(_ context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	f.input = in
	if f.failed {
		code, msg := "InternalFailure", "try again"
		return &eventbridge.PutEventsOutput{
			FailedEntryCount: 1,
			Entries:          []eventbridgetypes.PutEventsResultEntry{{ErrorCode: &code, ErrorMessage: &msg}},
		}, nil
	}
	return &eventbridge.PutEventsOutput{}, nil
}

// The SNS message delivered to a subscribed queue must decode back to the
// same object reference.
func TestSNSPublisher_RoundTripThroughQueueBody(t *testing.T) {
	fake := &fakeSNS{}
	p := &SNSPublisher{client: fake, topicARN: "arn:aws:sns:us-east-1:1:fanout"}
	if err := p.Publish(context.Background(), s3Rec("ObjectCreated:Put", "b", ".images/original/U1/L1")); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	queueBody, _ := json.Marshal(map[string]string{
		"Type":     "Notification",
		"TopicArn": *fake.input.TopicArn,
		"Message":  *fake.input.Message,
	})
	refs, err := DecodeNotification(string(queueBody))
	if err != nil {
		t.Fatalf("DecodeNotification: %v", err)
	}
	if len(refs) != 1 || refs[0] != (ObjectRef{Bucket: "b", Key: ".images/original/U1/L1"}) {
		t.Errorf("unexpected refs: %+v", refs)
	}
}

func TestEventBridgePublisher_RoundTripThroughQueueBody(t *testing.T) {
	fake := &fakeEventBridge{}
	p := &EventBridgePublisher{client: fake, busName: "images"}
	if err := p.Publish(context.Background(), s3Rec("ObjectCreated:Put", "b", ".images/original/U1/L1")); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	entry := fake.input.Entries[0]
	if *entry.DetailType != DetailTypeObjectCreated || *entry.Source != EventSource || *entry.EventBusName != "images" {
		t.Errorf("unexpected entry: %+v", entry)
	}

	queueBody := `{"version":"0","detail-type":"Object Created","source":"massive-shoot.storage","detail":` + *entry.Detail + `}`
	refs, err := DecodeNotification(queueBody)
	if err != nil {
		t.Fatalf("DecodeNotification: %v", err)
	}
	if len(refs) != 1 || refs[0] != (ObjectRef{Bucket: "b", Key: ".images/original/U1/L1"}) {
		t.Errorf("unexpected refs: %+v", refs)
	}
}

func TestEventBridgePublisher_FailedEntry(t *testing.T) {
	p := &EventBridgePublisher{client: &fakeEventBridge{failed: true}, busName: "images"}
	if err := p.Publish(context.Background(), s3Rec("ObjectCreated:Put", "b", "k")); err == nil {
		t.Fatal("expected error for failed entry")
	}
}

func TestDecodeNotification(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []ObjectRef
		wantErr bool
	}{
		{
			name: "bare S3 event with encoded key",
			body: `{"Records":[{"eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"b"},"object":{"key":".images/original/U+1/L%3D1"}}}]}`,
			want: []ObjectRef{{Bucket: "b", Key: ".images/original/U 1/L=1"}},
		},
		{
			name: "S3 test event",
			body: `{"Service":"Amazon S3","Event":"s3:TestEvent","Bucket":"b"}`,
		},
		{
			name:    "unknown",
			body:    `{"hello":"world"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			body:    `nope`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeNotification(tt.body)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ref %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
