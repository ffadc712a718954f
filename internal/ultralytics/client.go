// Package ultralytics provides a client for the Ultralytics hosted
// inference API. It submits an image as a multipart POST and normalizes
// the response down to the first detected bounding box.
//
// Only a single attempt is made per request; retry policy belongs to the
// caller if one is ever needed.
package ultralytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/visionglue/inference-api/internal/apierr"
	"github.com/visionglue/inference-api/internal/config"
	"github.com/visionglue/inference-api/internal/detection"
)

// Fixed inference parameters sent with every request.
const (
	imageSize     = "640"
	confThreshold = "0.25"
	iouThreshold  = "0.45"

	defaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of an upstream error body is kept for
	// diagnostics.
	maxErrorBody = 4 << 10
)

// Client calls the Ultralytics inference endpoint.
type Client struct {
	httpClient   *http.Client
	apiKey       string
	model        string
	inferenceURL string
}

// NewClient builds a client from configuration. All three settings are
// required; a missing one fails before any network call can happen.
func NewClient(cfg config.Ultralytics) (*Client, error) {
	if cfg.APIKey == "" || cfg.Model == "" || cfg.InferenceURL == "" {
		return nil, apierr.New(apierr.KindConfiguration,
			"missing required environment variables: %s, %s, and %s must be set",
			config.EnvUltralyticsAPIKey, config.EnvUltralyticsModelURL, config.EnvUltralyticsInferenceURL)
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		inferenceURL: cfg.InferenceURL,
	}, nil
}

// --- API response types ---

// inferenceResponse mirrors the Ultralytics result shape:
// {"images":[{"results":[{"box":{"x1","y1","x2","y2"}}]}]}
type inferenceResponse struct {
	Images []struct {
		Results []struct {
			Box *rawBox `json:"box"`
		} `json:"results"`
	} `json:"images"`
}

// rawBox uses pointers so an incomplete box object is distinguishable
// from coordinates that are legitimately zero.
type rawBox struct {
	X1 *float64 `json:"x1"`
	Y1 *float64 `json:"y1"`
	X2 *float64 `json:"x2"`
	Y2 *float64 `json:"y2"`
}

func (b *rawBox) complete() bool {
	return b != nil && b.X1 != nil && b.Y1 != nil && b.X2 != nil && b.Y2 != nil
}

// Detect runs one inference call and returns the first detected box, or
// (nil, nil) when the response carries no usable detection.
func (c *Client) Detect(ctx context.Context, data []byte, filename, contentType string) (*detection.Box, error) {
	if len(data) == 0 {
		return nil, apierr.New(apierr.KindValidation, "empty file provided")
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := map[string]string{
		"model": c.model,
		"imgsz": imageSize,
		"conf":  confThreshold,
		"iou":   iouThreshold,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", name, err)
		}
	}
	part, err := createFilePart(writer, filename, contentType)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.inferenceURL, body)
	if err != nil {
		return nil, fmt.Errorf("create inference request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("x-api-key", c.apiKey)

	log.Debug().
		Str("filename", filename).
		Int("size", len(data)).
		Msg("Sending inference request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, err, "inference API request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUpstream, err, "read inference response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apierr.New(apierr.KindUpstream,
			"inference API error: status %d: %s", resp.StatusCode, errorDetail(respBody))
	}

	var result inferenceResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, apierr.Wrap(apierr.KindResponseParse, err, "error parsing inference response")
	}

	if len(result.Images) == 0 || len(result.Images[0].Results) == 0 {
		log.Debug().Str("filename", filename).Msg("No detections in inference response")
		return nil, nil
	}
	raw := result.Images[0].Results[0].Box
	if !raw.complete() {
		log.Debug().Str("filename", filename).Msg("Incomplete box object in inference response")
		return nil, nil
	}

	box := &detection.Box{
		X1: int(*raw.X1),
		Y1: int(*raw.Y1),
		X2: int(*raw.X2),
		Y2: int(*raw.Y2),
	}
	log.Info().
		Str("filename", filename).
		Int("x1", box.X1).Int("y1", box.Y1).
		Int("x2", box.X2).Int("y2", box.Y2).
		Msg("Detection received")
	return box, nil
}

// createFilePart adds the image part with its declared content type
// instead of the application/octet-stream that CreateFormFile hardcodes.
func createFilePart(w *multipart.Writer, filename, contentType string) (io.Writer, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	h.Set("Content-Type", contentType)
	return w.CreatePart(h)
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// errorDetail keeps upstream error bodies readable: JSON bodies are
// compacted, anything else is passed through as trimmed text.
func errorDetail(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	compact := &bytes.Buffer{}
	if err := json.Compact(compact, body); err == nil {
		return compact.String()
	}
	return strings.TrimSpace(string(body))
}
