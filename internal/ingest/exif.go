package ingest

import (
	"bytes"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// captureTime extracts the EXIF capture time.
// Priority: DateTimeOriginal > CreateDate > ModifyDate.
// Images without EXIF (most chat uploads are re-encoded) report false.
func captureTime(data []byte) (t time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Interface("panic", r).Msg("EXIF decode panicked")
			t, ok = time.Time{}, false
		}
	}()

	exif, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return time.Time{}, false
	}
	for _, ts := range []time.Time{exif.DateTimeOriginal(), exif.CreateDate(), exif.ModifyDate()} {
		if !ts.IsZero() {
			return ts, true
		}
	}
	return time.Time{}, false
}
