package main

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/visionglue/inference-api/internal/apierr"
	"github.com/visionglue/inference-api/internal/detection"
	"github.com/visionglue/inference-api/internal/pipeline"
)

// maxUploadBytes bounds multipart parsing for a single image upload.
const maxUploadBytes = 50 << 20

// runner is the slice of the pipeline the HTTP layer depends on.
type runner interface {
	Run(ctx context.Context, img pipeline.Image) (string, error)
}

// newHandler assembles the route table and middleware chain.
func newHandler(pipe runner, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/inference/", handleInference(pipe))
	mux.HandleFunc("/healthz", handleHealthz)

	return withRequestID(withLogging(withCORS(allowedOrigins, withRecover(mux))))
}

// POST /inference/ — accepts a single multipart file field, runs the
// detect → annotate → store pipeline, and returns the stored object's
// public URL.
func handleInference(pipe runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			httpError(w, http.StatusBadRequest, "failed to parse multipart form")
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "no file uploaded")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			httpError(w, http.StatusBadRequest, "error reading file")
			return
		}

		url, err := pipe.Run(r.Context(), pipeline.Image{
			Data:        data,
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
		})
		if err != nil {
			kind := apierr.KindOf(err)
			log.Error().
				Err(err).
				Str("kind", string(kind)).
				Str("filename", header.Filename).
				Msg("Pipeline failed")

			detail := err.Error()
			if kind == apierr.KindInternal {
				// Unclassified failures stay generic; the full error is
				// in the log above.
				detail = "internal server error"
			}
			httpError(w, apierr.HTTPStatus(err), detail)
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"resultsUrl": url})
	}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// --- erroring stage stand-ins ---

// errDetector and errUploader take the place of stages whose configuration
// is incomplete, surfacing the construction error on first use.

type errDetector struct{ err error }

func (d errDetector) Detect(ctx context.Context, data []byte, filename, contentType string) (*detection.Box, error) {
	return nil, d.err
}

type errUploader struct{ err error }

func (u errUploader) Upload(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	return "", u.err
}
