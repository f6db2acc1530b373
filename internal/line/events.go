package line

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// Webhook is the body LINE posts to the callback URL.
type Webhook struct {
	Destination string
	Events      []Event
}

// Event is the part of a webhook event the pipeline reads, decoded through
// the bot SDK. Raw keeps the original JSON so it can be forwarded verbatim.
type Event struct {
	Type        string
	ReplyToken  string
	Timestamp   int64
	UserID      string
	MessageID   string
	MessageType string
	Text        string

	Raw json.RawMessage
}

// EventKind is the closed set of event shapes the webhook handles.
type EventKind int

const (
	KindOther EventKind = iota
	KindTextMessage
	KindImageMessage
)

func (k EventKind) String() string {
	switch k {
	case KindTextMessage:
		return "text"
	case KindImageMessage:
		return "image"
	}
	return "other"
}

// Kind classifies the event.
func (e Event) Kind() EventKind {
	if e.Type != "message" {
		return KindOther
	}
	switch e.MessageType {
	case "text":
		return KindTextMessage
	case "image":
		return KindImageMessage
	}
	return KindOther
}

func decodeEvent(raw json.RawMessage) (Event, error) {
	payload, err := webhook.UnmarshalEvent(raw)
	if err != nil {
		return Event{}, err
	}
	ev := Event{Type: payload.GetType(), Raw: raw}

	msg, ok := payload.(webhook.MessageEvent)
	if !ok {
		return ev, nil
	}
	ev.ReplyToken = msg.ReplyToken
	ev.Timestamp = msg.Timestamp
	ev.UserID = sourceUserID(msg.Source)

	switch m := msg.Message.(type) {
	case webhook.TextMessageContent:
		ev.MessageType, ev.MessageID, ev.Text = "text", m.Id, m.Text
	case webhook.ImageMessageContent:
		ev.MessageType, ev.MessageID = "image", m.Id
	case nil:
	default:
		ev.MessageType = m.GetType()
	}
	return ev, nil
}

func sourceUserID(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	}
	return ""
}

// ParseWebhook decodes a webhook body, keeping each event's raw JSON.
// Signature checks happen before this, on the raw body.
func ParseWebhook(body []byte) (*Webhook, error) {
	var envelope struct {
		Destination string            `json:"destination"`
		Events      []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}

	wh := &Webhook{Destination: envelope.Destination, Events: make([]Event, 0, len(envelope.Events))}
	for i, raw := range envelope.Events {
		ev, err := decodeEvent(raw)
		if err != nil {
			return nil, fmt.Errorf("decode event %d: %w", i, err)
		}
		wh.Events = append(wh.Events, ev)
	}
	return wh, nil
}

// ErrIncompleteEvent is returned for image events lacking a message id or
// sender user id.
var ErrIncompleteEvent = errors.New("image event missing message id or user id")

// ParseImageEvent decodes a single forwarded image message event.
func ParseImageEvent(body []byte) (*Event, error) {
	ev, err := decodeEvent(json.RawMessage(body))
	if err != nil {
		return nil, fmt.Errorf("decode image event: %w", err)
	}
	if ev.MessageID == "" || ev.UserID == "" {
		return nil, ErrIncompleteEvent
	}
	return &ev, nil
}
