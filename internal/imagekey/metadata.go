package imagekey

import (
	"errors"
	"fmt"
	"strconv"
)

// User-metadata keys carried by every stored object.
const (
	MetaUserID  = "userid"
	MetaImageID = "imageid"
	MetaCreated = "created"
	MetaTakenAt = "takenat"
)

// ErrMissingMetadata is returned when an object lacks owner or image id.
var ErrMissingMetadata = errors.New("object metadata missing userid or imageid")

// Metadata is the decoded form of an object's user metadata.
type Metadata struct {
	UserID  string
	ImageID string
	// Created and TakenAt are unix seconds.
	Created float64
	TakenAt *float64
}

// Encode renders m as object user metadata.
func (m Metadata) Encode() map[string]string {
	out := map[string]string{
		MetaUserID:  m.UserID,
		MetaImageID: m.ImageID,
		MetaCreated: FormatSeconds(m.Created),
	}
	if m.TakenAt != nil {
		out[MetaTakenAt] = FormatSeconds(*m.TakenAt)
	}
	return out
}

// DecodeMetadata parses object user metadata. Keys are expected in lower
// case. An unparsable takenat is ignored; an unparsable created is an error.
func DecodeMetadata(meta map[string]string) (Metadata, error) {
	m := Metadata{UserID: meta[MetaUserID], ImageID: meta[MetaImageID]}
	if m.UserID == "" || m.ImageID == "" {
		return m, ErrMissingMetadata
	}
	if v, ok := meta[MetaCreated]; ok && v != "" {
		created, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return m, fmt.Errorf("parse created %q: %w", v, err)
		}
		m.Created = created
	}
	if v, ok := meta[MetaTakenAt]; ok {
		if taken, err := strconv.ParseFloat(v, 64); err == nil {
			m.TakenAt = &taken
		}
	}
	return m, nil
}

// FormatSeconds renders unix seconds without exponent or trailing zeros.
func FormatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
