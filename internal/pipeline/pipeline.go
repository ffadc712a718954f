// Package pipeline composes the three stages of a request: detect a
// bounding box, render the annotation, upload the result. The stages run
// strictly in sequence and share nothing across requests; a failure at
// any stage aborts the whole run.
package pipeline

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/visionglue/inference-api/internal/annotate"
	"github.com/visionglue/inference-api/internal/apierr"
	"github.com/visionglue/inference-api/internal/detection"
)

// Image is an uploaded image as received at the HTTP boundary.
type Image struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Detector returns the first detected box for an image, or nil when the
// inference service finds nothing usable.
type Detector interface {
	Detect(ctx context.Context, data []byte, filename, contentType string) (*detection.Box, error)
}

// Uploader persists annotated bytes under a derived filename and returns
// a public URL.
type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte, contentType string) (string, error)
}

// Pipeline wires the stages together. Detector and Uploader are
// interfaces so tests can substitute doubles; annotation is a pure
// function and needs no seam.
type Pipeline struct {
	detector Detector
	uploader Uploader
}

func New(detector Detector, uploader Uploader) *Pipeline {
	return &Pipeline{detector: detector, uploader: uploader}
}

// Run executes detect → annotate → upload for one image and returns the
// public URL of the stored result. The input is validated before any
// network call is made.
func (p *Pipeline) Run(ctx context.Context, img Image) (string, error) {
	if len(img.Data) == 0 {
		return "", apierr.New(apierr.KindValidation, "empty file provided")
	}

	box, err := p.detector.Detect(ctx, img.Data, img.Filename, img.ContentType)
	if err != nil {
		return "", err
	}

	annotated, err := annotate.Render(img.Data, box)
	if err != nil {
		return "", err
	}

	outName := annotate.OutputFilename(img.Filename)
	url, err := p.uploader.Upload(ctx, outName, annotated, "image/jpeg")
	if err != nil {
		return "", err
	}

	log.Info().
		Str("filename", img.Filename).
		Bool("detected", box != nil).
		Str("resultsUrl", url).
		Msg("Pipeline complete")
	return url, nil
}
