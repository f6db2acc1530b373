// Package edge implements the CDN viewer-request function that maps public
// image URLs onto stored renditions and gates access on a valid token.
package edge

import "encoding/json"

// Event is a CloudFront Lambda@Edge event.
type Event struct {
	Records []Record `json:"Records"`
}

// Record wraps one CloudFront request.
type Record struct {
	CF struct {
		Config  json.RawMessage `json:"config,omitempty"`
		Request Request         `json:"request"`
	} `json:"cf"`
}

// Header is one value of a CloudFront header list.
type Header struct {
	Key   string `json:"key,omitempty"`
	Value string `json:"value"`
}

// Request is the viewer request. Returning it (possibly modified) lets
// CloudFront continue to the cache and origin. Origin and Body are carried
// through untouched.
type Request struct {
	ClientIP    string              `json:"clientIp,omitempty"`
	Method      string              `json:"method"`
	URI         string              `json:"uri"`
	Querystring string              `json:"querystring"`
	Headers     map[string][]Header `json:"headers"`
	Origin      json.RawMessage     `json:"origin,omitempty"`
	Body        json.RawMessage     `json:"body,omitempty"`
}

// header returns the first value of a lower-case header name.
func (r Request) header(name string) (string, bool) {
	vals := r.Headers[name]
	if len(vals) == 0 {
		return "", false
	}
	return vals[0].Value, true
}

// Response is a generated response; returning one short-circuits the CDN.
type Response struct {
	Status            string              `json:"status"`
	StatusDescription string              `json:"statusDescription"`
	Headers           map[string][]Header `json:"headers,omitempty"`
	Body              string              `json:"body,omitempty"`
}

// Forbidden is the fixed denial response.
var Forbidden = Response{
	Status:            "403",
	StatusDescription: "Forbidden",
	Body:              "Forbidden",
}
