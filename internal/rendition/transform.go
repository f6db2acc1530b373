// Package rendition derives resized and WebP renditions from stored
// originals. Each variant is produced by its own deployment of the same
// worker, selected by configuration.
package rendition

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/fpang/massive-shoot/internal/imagekey"
)

// MaxDimension bounds both sides of a resized rendition.
const MaxDimension = 400

const (
	jpegQuality = 90
	webpQuality = 80
)

// Result is an encoded rendition.
type Result struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	// SourceFormat is the decoder name of the original (jpeg, png, gif, webp).
	SourceFormat string
}

// Transform decodes data and produces rendition r.
func Transform(data []byte, r imagekey.Rendition) (*Result, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if r.Resized() {
		img = fit(img, MaxDimension, MaxDimension)
	}

	outFormat := format
	if r.WebP() {
		outFormat = "webp"
	}
	out, err := encode(img, outFormat)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	return &Result{
		Data:         out,
		ContentType:  "image/" + outFormat,
		Width:        b.Dx(),
		Height:       b.Dy(),
		SourceFormat: format,
	}, nil
}

// fit scales img down to fit inside maxW x maxH, keeping the aspect ratio.
// Images already inside the box are returned unchanged.
func fit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	newW, newH := maxW, maxH
	if w*maxH > h*maxW {
		newH = max(1, h*maxW/w)
	} else {
		newW = max(1, w*maxH/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func encode(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "webp":
		err = webp.Encode(&buf, img, &webp.Options{Quality: webpQuality})
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
