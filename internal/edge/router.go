package edge

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/fpang/massive-shoot/internal/imagekey"
	"github.com/fpang/massive-shoot/internal/logging"
)

const defaultAccept = "*/*"

// TokenChecker validates a bearer token. Any error means invalid; the
// response body of a successful check is not inspected.
type TokenChecker interface {
	CheckToken(ctx context.Context, accessToken string) error
}

// Router rewrites public image paths and authorizes viewers.
type Router struct {
	tokens        TokenChecker
	hostingPrefix string
	savePrefix    string
}

// NewRouter creates a router serving /{hostingPrefix}/{owner}/{image} from
// /{savePrefix}/{rendition path}/{owner}/{image}.
func NewRouter(tokens TokenChecker, hostingPrefix, savePrefix string) *Router {
	return &Router{
		tokens:        tokens,
		hostingPrefix: strings.Trim(hostingPrefix, "/"),
		savePrefix:    strings.Trim(savePrefix, "/"),
	}
}

// errBadPath marks an image URI with the wrong number of segments.
var errBadPath = errors.New("image path must be /{prefix}/{owner}/{image}")

// Handle processes one viewer-request event and returns either the
// request to forward or a Response.
func (rt *Router) Handle(ctx context.Context, ev Event) (any, error) {
	if len(ev.Records) == 0 {
		return nil, errors.New("event has no records")
	}
	req := ev.Records[0].CF.Request
	logger := logging.Ctx(ctx).With().Str("method", req.Method).Str("uri", req.URI).Logger()

	req, err := rt.Rewrite(req)
	if err != nil {
		logger.Info().Err(err).Msg("Rejected image path")
		return Forbidden, nil
	}

	if req.Method == http.MethodOptions {
		return req, nil
	}

	auth, _ := req.header("authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		logger.Info().Msg("Rejected: missing bearer token")
		return Forbidden, nil
	}
	if err := rt.tokens.CheckToken(ctx, token); err != nil {
		logger.Info().Err(err).Msg("Rejected: token verification failed")
		return Forbidden, nil
	}
	return req, nil
}

// Rewrite maps a public image URI to the storage key of the rendition the
// viewer should get. URIs outside the hosting prefix are returned as is.
func (rt *Router) Rewrite(req Request) (Request, error) {
	rest, ok := strings.CutPrefix(req.URI, "/"+rt.hostingPrefix+"/")
	if !ok {
		return req, nil
	}
	segs := strings.Split(rest, "/")
	if len(segs) != 2 || segs[0] == "" || segs[1] == "" {
		return req, errBadPath
	}

	accept, ok := req.header("accept")
	if !ok {
		accept = defaultAccept
	}
	r := imagekey.Route(SupportsWebP(accept), wantsThumbnail(req.Querystring))
	req.URI = "/" + imagekey.Key(rt.savePrefix, r, segs[0], segs[1])
	return req, nil
}

// SupportsWebP reports whether any media range of an Accept header names
// image/webp exactly. Wildcards do not count.
func SupportsWebP(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, _ := strings.Cut(part, ";")
		if strings.EqualFold(strings.TrimSpace(mediaType), "image/webp") {
			return true
		}
	}
	return false
}

func wantsThumbnail(querystring string) bool {
	q, _ := url.ParseQuery(querystring)
	v, ok := q["thumbnail"]
	if !ok || len(v) == 0 {
		return false
	}
	b, err := ParseBool(v[0])
	return err == nil && b
}

// ParseBool accepts y/yes/t/true/on/1 and n/no/f/false/off/0, ignoring case.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "y", "yes", "t", "true", "on", "1":
		return true, nil
	case "n", "no", "f", "false", "off", "0":
		return false, nil
	}
	return false, errors.New("invalid truth value " + s)
}
