package fanout

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ObjectRef names one object from a fan-out message.
type ObjectRef struct {
	Bucket string
	Key    string
}

// ErrUnknownShape is returned for bodies that are neither an SNS
// envelope, an EventBridge envelope, nor an S3 event document.
var ErrUnknownShape = errors.New("unrecognized fan-out message")

type envelope struct {
	// SNS
	Type    string `json:"Type"`
	Message string `json:"Message"`

	// EventBridge
	DetailType string          `json:"detail-type"`
	Detail     json.RawMessage `json:"detail"`

	// Bare S3 event document
	Records []s3Record `json:"Records"`
	// S3 test notification sent when the notification is configured.
	Event string `json:"Event"`
}

type s3Record struct {
	EventName string `json:"eventName"`
	S3        struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

// DecodeNotification extracts object references from a fan-out queue body.
// It accepts an SNS notification whose Message is an S3 event document,
// an EventBridge event whose detail carries bucket.name and object.key, or
// an S3 event document delivered directly. The S3 test event yields no refs.
func DecodeNotification(body string) ([]ObjectRef, error) {
	var env envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return nil, fmt.Errorf("decode fan-out message: %w", err)
	}

	switch {
	case env.Message != "":
		return DecodeNotification(env.Message)
	case len(env.Detail) > 0:
		var d Detail
		if err := json.Unmarshal(env.Detail, &d); err != nil {
			return nil, fmt.Errorf("decode EventBridge detail: %w", err)
		}
		if d.Bucket.Name == "" || d.Object.Key == "" {
			return nil, fmt.Errorf("%w: detail without bucket or key", ErrUnknownShape)
		}
		return []ObjectRef{{Bucket: d.Bucket.Name, Key: decodeKey(d.Object.Key)}}, nil
	case env.Records != nil:
		refs := make([]ObjectRef, 0, len(env.Records))
		for _, r := range env.Records {
			refs = append(refs, ObjectRef{Bucket: r.S3.Bucket.Name, Key: decodeKey(r.S3.Object.Key)})
		}
		return refs, nil
	case env.Event == "s3:TestEvent":
		return nil, nil
	}
	return nil, ErrUnknownShape
}
