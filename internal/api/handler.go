// Package api serves the authenticated image feed.
//
//	GET /images  every indexed image, newest first
//
// Requests reach the handler only after the token authorizer allowed them;
// the authorizer's principal is available from the API Gateway request
// context when feed results are scoped to the caller.
//
// Gzip responses are off unless Options.Compress is set. Behind a REST API
// Gateway the gzip body is returned through the proxy integration as
// binary, so the API must list "*/*" (or application/json) under binary
// media types before compression is turned on; otherwise clients receive
// a mangled body.
package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/klauspost/compress/gzhttp"

	"github.com/fpang/massive-shoot/internal/imagekey"
	"github.com/fpang/massive-shoot/internal/logging"
	"github.com/fpang/massive-shoot/internal/store"
)

// Options configures URL construction and visibility.
type Options struct {
	// BaseURL is the CDN origin, normalized to end with "/".
	BaseURL string
	// ImagePrefix is the public path prefix served by the edge router.
	// When empty, URLs use the record's object key.
	ImagePrefix string
	// SavePrefix is the storage prefix, used to compute a key for records
	// written without one.
	SavePrefix string
	// ScopeToCaller restricts the feed to the caller's own images.
	ScopeToCaller bool
	// Compress gzips responses for clients that accept it. Requires binary
	// media types on a REST API Gateway.
	Compress bool
	// Caller resolves the authenticated owner id. Defaults to the API
	// Gateway authorizer principal.
	Caller func(r *http.Request) (string, bool)
}

// Image is one entry of the feed.
type Image struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id"`
}

type handler struct {
	images store.ImageStore
	opts   Options
}

// NewHandler returns the API's http.Handler with CORS and request metrics
// applied, plus gzip when opts.Compress is set.
func NewHandler(images store.ImageStore, opts Options) http.Handler {
	if opts.Caller == nil {
		opts.Caller = AuthorizerPrincipal
	}
	h := &handler{images: images, opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /images", h.handleListImages)

	var inner http.Handler = mux
	if opts.Compress {
		inner = gzhttp.GzipHandler(mux)
	}
	return withMetrics(withCORS(inner))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func (h *handler) handleListImages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.Ctx(ctx)

	records, err := h.images.ScanImages(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to scan image table")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if h.opts.ScopeToCaller {
		owner, ok := h.opts.Caller(r)
		if !ok {
			logger.Warn().Msg("No authorizer principal on scoped request")
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		records = FilterOwner(records, owner)
	}

	feed := BuildFeed(records, h.opts)
	w.Header().Set("X-Content-Length", strconv.Itoa(len(feed)))
	writeJSON(w, http.StatusOK, feed)
	logger.Debug().Int("count", len(feed)).Msg("Image feed served")
}

// BuildFeed orders records newest first and renders them as feed
// entries. records is sorted in place.
func BuildFeed(records []store.ImageRecord, opts Options) []Image {
	sortNewestFirst(records)
	feed := make([]Image, 0, len(records))
	for _, rec := range records {
		feed = append(feed, Image{
			ID:        rec.ImageID,
			URL:       imageURL(opts, rec),
			Timestamp: FormatTimestamp(rec.CreatedTime()),
			UserID:    rec.UserID,
		})
	}
	return feed
}

func imageURL(opts Options, rec store.ImageRecord) string {
	if opts.ImagePrefix != "" {
		return opts.BaseURL + strings.Join([]string{opts.ImagePrefix, rec.UserID, rec.ImageID}, "/")
	}
	key := rec.ObjectKey
	if key == "" {
		key = imagekey.Key(opts.SavePrefix, imagekey.Original, rec.UserID, rec.ImageID)
	}
	return opts.BaseURL + key
}

// FormatTimestamp renders t in UTC as ISO-8601 with a numeric offset,
// including microseconds only when they are non-zero.
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/1000 != 0 {
		return t.Format("2006-01-02T15:04:05.000000-07:00")
	}
	return t.Format("2006-01-02T15:04:05-07:00")
}

func sortNewestFirst(records []store.ImageRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Created != b.Created {
			return a.Created > b.Created
		}
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		return a.ImageID < b.ImageID
	})
}

// FilterOwner keeps the records owned by owner, reusing the backing array.
func FilterOwner(records []store.ImageRecord, owner string) []store.ImageRecord {
	out := records[:0]
	for _, r := range records {
		if r.UserID == owner {
			out = append(out, r)
		}
	}
	return out
}

// AuthorizerPrincipal reads the principal set by the token authorizer from
// the API Gateway request context.
func AuthorizerPrincipal(r *http.Request) (string, bool) {
	rc, ok := core.GetAPIGatewayContextFromContext(r.Context())
	if !ok {
		return "", false
	}
	for _, k := range []string{"principalId", "user_id"} {
		if v, ok := rc.Authorizer[k].(string); ok && v != "" && v != "anonymous" {
			return v, true
		}
	}
	return "", false
}
