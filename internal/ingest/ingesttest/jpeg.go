// Package ingesttest builds image fixtures for ingest tests.
package ingesttest

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

// JPEG encodes a small w by h JPEG with no metadata.
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// JPEGWithCaptureTime returns a JPEG carrying an EXIF APP1 segment whose
// only date is DateTimeOriginal. taken uses the EXIF layout
// "2006:01:02 15:04:05".
func JPEGWithCaptureTime(t testing.TB, w, h int, taken string) []byte {
	t.Helper()
	if len(taken) != 19 {
		t.Fatalf("EXIF date %q must be 19 characters", taken)
	}
	plain := JPEG(t, w, h)

	// Little-endian TIFF: IFD0 at 8 points to the Exif IFD at 26, whose one
	// entry points to the ASCII date at 44.
	le := binary.LittleEndian
	tiff := make([]byte, 0, 64)
	tiff = append(tiff, 'I', 'I')
	tiff = le.AppendUint16(tiff, 42)
	tiff = le.AppendUint32(tiff, 8)

	tiff = le.AppendUint16(tiff, 1)      // IFD0 entries
	tiff = le.AppendUint16(tiff, 0x8769) // ExifIFDPointer
	tiff = le.AppendUint16(tiff, 4)      // LONG
	tiff = le.AppendUint32(tiff, 1)
	tiff = le.AppendUint32(tiff, 26)
	tiff = le.AppendUint32(tiff, 0) // no IFD1

	tiff = le.AppendUint16(tiff, 1)      // Exif IFD entries
	tiff = le.AppendUint16(tiff, 0x9003) // DateTimeOriginal
	tiff = le.AppendUint16(tiff, 2)      // ASCII
	tiff = le.AppendUint32(tiff, 20)
	tiff = le.AppendUint32(tiff, 44)
	tiff = le.AppendUint32(tiff, 0)

	tiff = append(tiff, taken...)
	tiff = append(tiff, 0)

	payload := append([]byte("Exif\x00\x00"), tiff...)
	var out bytes.Buffer
	out.Write(plain[:2]) // SOI
	out.Write([]byte{0xFF, 0xE1})
	_ = binary.Write(&out, binary.BigEndian, uint16(2+len(payload)))
	out.Write(payload)
	out.Write(plain[2:])
	return out.Bytes()
}
