// Package line wraps the LINE platform APIs the image pipeline needs.
//
// Messaging API calls (text replies, message content download) and webhook
// decoding go through the official bot SDK. LINE Login token verification
// and profile lookup are not part of the bot SDK and use net/http directly
// (login.go).
package line

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/rs/zerolog/log"
)

const (
	// defaultAPIBaseURL serves token verification and profiles.
	defaultAPIBaseURL = "https://api.line.me"

	// defaultTimeout is the HTTP client timeout for API calls.
	defaultTimeout = 10 * time.Second

	// maxContentSize caps a downloaded message body. LINE limits images
	// to 10 MB; the margin covers other media kinds.
	maxContentSize = 50 << 20
)

// Client calls the LINE Messaging API with a channel access token.
type Client struct {
	bot  *messaging_api.MessagingApiAPI
	blob *messaging_api.MessagingApiBlobAPI
}

// NewClient creates a Messaging API client against the public LINE hosts.
// accessToken is the channel access token, loaded from the environment or
// SSM at cold start.
func NewClient(accessToken string) (*Client, error) {
	return NewClientWithEndpoints(accessToken, &http.Client{Timeout: defaultTimeout}, "", "")
}

// NewClientWithEndpoints points the client at other hosts. Empty URLs keep
// the SDK defaults (api.line.me and api-data.line.me).
func NewClientWithEndpoints(accessToken string, httpClient *http.Client, apiURL, dataURL string) (*Client, error) {
	botOpts := []messaging_api.MessagingApiAPIOption{messaging_api.WithHTTPClient(httpClient)}
	if apiURL != "" {
		botOpts = append(botOpts, messaging_api.WithEndpoint(apiURL))
	}
	bot, err := messaging_api.NewMessagingApiAPI(accessToken, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("create messaging api client: %w", err)
	}

	blobOpts := []messaging_api.MessagingApiBlobAPIOption{messaging_api.WithBlobHTTPClient(httpClient)}
	if dataURL != "" {
		blobOpts = append(blobOpts, messaging_api.WithBlobEndpoint(dataURL))
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(accessToken, blobOpts...)
	if err != nil {
		return nil, fmt.Errorf("create messaging api blob client: %w", err)
	}
	return &Client{bot: bot, blob: blob}, nil
}

// Content is a downloaded message body.
type Content struct {
	Data        []byte
	ContentType string
}

// GetMessageContent downloads the binary content of a message.
//
//	GET {data}/v2/bot/message/{messageId}/content
func (c *Client) GetMessageContent(ctx context.Context, messageID string) (*Content, error) {
	resp, err := c.blob.WithContext(ctx).GetMessageContent(messageID)
	if err != nil {
		return nil, fmt.Errorf("get message content %s: %w", messageID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxContentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read message content %s: %w", messageID, err)
	}
	if len(data) > maxContentSize {
		return nil, fmt.Errorf("message content %s exceeds %d bytes", messageID, maxContentSize)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	log.Debug().Str("messageId", messageID).Str("contentType", ct).Int("size", len(data)).Msg("Message content downloaded")
	return &Content{Data: data, ContentType: ct}, nil
}

// ReplyText answers a webhook event with a single text message.
//
//	POST {api}/v2/bot/message/reply
func (c *Client) ReplyText(ctx context.Context, replyToken, text string) error {
	_, err := c.bot.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	return nil
}
