// Package imagekey defines the canonical object-key layout for originals and
// renditions:
//
//	{prefix}/{category}[/{variant}]/{ownerID}/{imageID}
//
// Every key is a pure function of (prefix, rendition, owner, image), so
// repeated or concurrent writers for the same image always target the same
// key and a duplicate delivery overwrites instead of duplicating.
package imagekey

import (
	"errors"
	"fmt"
	"strings"
)

// SourceLINE is the provenance tag prepended to LINE message ids.
const SourceLINE = "L"

// Rendition identifies one stored encoding of an image.
type Rendition int

const (
	Original Rendition = iota
	ResizedOriginalFormat
	WebPOriginalSize
	WebPResized
)

// Renditions lists every rendition, original first.
var Renditions = []Rendition{Original, ResizedOriginalFormat, WebPOriginalSize, WebPResized}

// ErrInvalidKey is returned when a key does not match the layout.
var ErrInvalidKey = errors.New("key does not match image layout")

// Path returns the category[/variant] portion of the key.
func (r Rendition) Path() string {
	switch r {
	case ResizedOriginalFormat:
		return "original_format/400"
	case WebPOriginalSize:
		return "webp/original_size"
	case WebPResized:
		return "webp/400"
	default:
		return "original"
	}
}

// String returns the configuration name of the rendition.
func (r Rendition) String() string {
	switch r {
	case ResizedOriginalFormat:
		return "resized_original_format"
	case WebPOriginalSize:
		return "webp_original_size"
	case WebPResized:
		return "webp_resized"
	default:
		return "original"
	}
}

// ParseRendition maps a configuration name back to a Rendition.
func ParseRendition(name string) (Rendition, error) {
	for _, r := range Renditions {
		if r.String() == name {
			return r, nil
		}
	}
	return Original, fmt.Errorf("unknown rendition %q", name)
}

// Resized reports whether the rendition is bounded to the thumbnail box.
func (r Rendition) Resized() bool {
	return r == ResizedOriginalFormat || r == WebPResized
}

// WebP reports whether the rendition is WebP-encoded.
func (r Rendition) WebP() bool {
	return r == WebPOriginalSize || r == WebPResized
}

// Key returns the canonical key for one rendition of an image.
func Key(prefix string, r Rendition, ownerID, imageID string) string {
	return strings.Join([]string{prefix, r.Path(), ownerID, imageID}, "/")
}

// ImageID derives an image id from a provider message id.
func ImageID(source, messageID string) string {
	return source + messageID
}

// Ref identifies one image by owner and image id.
type Ref struct {
	OwnerID string
	ImageID string
}

// OriginalPrefix is the key prefix under which originals live.
func OriginalPrefix(prefix string) string {
	return prefix + "/" + Original.Path() + "/"
}

// IsOriginal reports whether key is an original under prefix.
func IsOriginal(prefix, key string) bool {
	_, err := ParseOriginal(prefix, key)
	return err == nil
}

// ParseOriginal extracts owner and image ids from an original's key.
func ParseOriginal(prefix, key string) (Ref, error) {
	rest, ok := strings.CutPrefix(key, OriginalPrefix(prefix))
	if !ok {
		return Ref{}, fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	owner, image, ok := strings.Cut(rest, "/")
	if !ok || owner == "" || image == "" || strings.Contains(image, "/") {
		return Ref{}, fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return Ref{OwnerID: owner, ImageID: image}, nil
}
