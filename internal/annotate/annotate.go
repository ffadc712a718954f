// Package annotate turns raw image bytes plus an optional detection box
// into an annotated JPEG. Decoding happens fully in memory; no temp files.
package annotate

import (
	"bytes"
	"image"
	"image/jpeg"
	"path/filepath"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/fogleman/gg"
	"github.com/rs/zerolog/log"

	"github.com/visionglue/inference-api/internal/apierr"
	"github.com/visionglue/inference-api/internal/detection"
)

const (
	// Rectangle outline style, matching the detection overlay convention:
	// pure green, 2px stroke.
	strokeWidth = 2.0

	jpegQuality = 90
)

// Render decodes data, draws the box outline if one is present, and
// re-encodes as JPEG. A nil box produces a pass-through re-encode. The
// output image always has the same dimensions as the input.
func Render(data []byte, box *detection.Box) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apierr.Wrap(apierr.KindImageDecode, err, "failed to decode image")
	}

	bounds := img.Bounds()
	log.Debug().
		Str("format", format).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Bool("has_box", box != nil).
		Msg("Rendering annotation")

	out := img
	if box != nil {
		// Upstream coordinates are not guaranteed to be in bounds.
		clamped := box.Clamp(bounds.Dx(), bounds.Dy())
		if !clamped.Empty() {
			dc := gg.NewContextForImage(img)
			dc.SetRGB255(0, 255, 0)
			dc.SetLineWidth(strokeWidth)
			dc.DrawRectangle(
				float64(clamped.X1),
				float64(clamped.Y1),
				float64(clamped.X2-clamped.X1),
				float64(clamped.Y2-clamped.Y1),
			)
			dc.Stroke()
			out = dc.Image()
		} else {
			log.Warn().
				Int("x1", box.X1).Int("y1", box.Y1).
				Int("x2", box.X2).Int("y2", box.Y2).
				Msg("Box degenerate after clamping, skipping draw")
		}
	}

	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, apierr.Wrap(apierr.KindImageEncode, err, "failed to encode image")
	}
	return buf.Bytes(), nil
}

// OutputFilename derives the stored filename from the uploaded one:
// directory components are stripped and the "output_" prefix added. The
// original extension is kept for naming even though the encoded format
// is always JPEG.
func OutputFilename(original string) string {
	base := filepath.Base(original)
	if base == "." || base == "/" || base == "" {
		base = "image.jpg"
	}
	return "output_" + base
}
