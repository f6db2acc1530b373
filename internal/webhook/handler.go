// Package webhook receives LINE Messaging API webhooks.
//
// POST /callback carries a JSON body signed with X-Line-Signature
// (base64 HMAC-SHA256 keyed by the channel secret). After the signature
// checks out, each event is classified and dispatched:
//
//	text message   reply with the same text
//	image message  forward the raw event JSON to the ingestion queue
//	anything else  debug-log and drop
//
// Bodies over 1 MB are refused with 413 before any signature check.
// Dispatch failures are logged and reported but never change the response:
// LINE only needs to know the delivery was accepted.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	linewebhook "github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/fpang/massive-shoot/internal/errtrack"
	"github.com/fpang/massive-shoot/internal/line"
	"github.com/fpang/massive-shoot/internal/logging"
	"github.com/fpang/massive-shoot/internal/metrics"
)

const (
	// maxBodySize is the maximum allowed request body size (1 MB).
	maxBodySize = 1 << 20

	signatureHeader = "X-Line-Signature"
)

// Replier sends a text reply to a webhook event.
type Replier interface {
	ReplyText(ctx context.Context, replyToken, text string) error
}

// Enqueuer forwards an image event to the ingestion queue.
type Enqueuer interface {
	Send(ctx context.Context, body string) (string, error)
}

// Handler handles LINE webhook deliveries.
type Handler struct {
	channelSecret string
	replier       Replier
	queue         Enqueuer
	reporter      errtrack.Reporter
}

// NewHandler creates a webhook handler. reporter may be nil.
func NewHandler(channelSecret string, replier Replier, queue Enqueuer, reporter errtrack.Reporter) *Handler {
	if reporter == nil {
		reporter = errtrack.Nop{}
	}
	return &Handler{
		channelSecret: channelSecret,
		replier:       replier,
		queue:         queue,
		reporter:      reporter,
	}
}

type response struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response{Message: msg})
}

// ServeHTTP accepts POST only.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	h.handleCallback(w, r)
}

func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.Ctx(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		logger.Error().Err(err).Msg("Webhook: failed to read body")
		writeJSON(w, http.StatusBadRequest, "Invalid request")
		return
	}
	defer r.Body.Close()

	if len(body) > maxBodySize {
		logger.Warn().Int64("contentLength", r.ContentLength).Msg("Webhook: body too large")
		writeJSON(w, http.StatusRequestEntityTooLarge, "Request body too large")
		return
	}

	if !linewebhook.ValidateSignature(h.channelSecret, r.Header.Get(signatureHeader), body) {
		logger.Warn().Int("bodySize", len(body)).Msg("Webhook: invalid signature")
		metrics.Default().Dimension("Handler", "webhook").Count("InvalidSignature").Flush()
		writeJSON(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	wh, err := line.ParseWebhook(body)
	if err != nil {
		logger.Warn().Err(err).Msg("Webhook: malformed payload")
		writeJSON(w, http.StatusBadRequest, "Invalid request")
		return
	}

	for _, ev := range wh.Events {
		h.dispatch(ctx, ev)
	}
	logger.Info().Int("events", len(wh.Events)).Msg("Webhook delivery accepted")
	writeJSON(w, http.StatusOK, "OK")
}

// dispatch routes one event to exactly one handler.
func (h *Handler) dispatch(ctx context.Context, ev line.Event) {
	var err error
	kind := ev.Kind()
	switch kind {
	case line.KindTextMessage:
		err = h.handleText(ctx, ev)
	case line.KindImageMessage:
		err = h.handleImage(ctx, ev)
	default:
		h.handleOther(ctx, ev)
	}
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("kind", kind.String()).Msg("Webhook event handler failed")
		h.reporter.Capture(ctx, err, map[string]string{"eventKind": kind.String()})
	}
}

func (h *Handler) handleText(ctx context.Context, ev line.Event) error {
	return h.replier.ReplyText(ctx, ev.ReplyToken, ev.Text)
}

func (h *Handler) handleImage(ctx context.Context, ev line.Event) error {
	id, err := h.queue.Send(ctx, string(ev.Raw))
	if err != nil {
		return err
	}
	logging.Ctx(ctx).Info().
		Str("lineMessageId", ev.MessageID).
		Str("sqsMessageId", id).
		Msg("Image event enqueued")
	return nil
}

func (h *Handler) handleOther(ctx context.Context, ev line.Event) {
	logging.Ctx(ctx).Debug().RawJSON("event", ev.Raw).Str("type", ev.Type).Msg("Ignoring webhook event")
}
