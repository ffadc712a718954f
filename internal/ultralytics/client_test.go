package ultralytics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/visionglue/inference-api/internal/apierr"
	"github.com/visionglue/inference-api/internal/config"
	"github.com/visionglue/inference-api/internal/detection"
)

func testConfig(url string) config.Ultralytics {
	return config.Ultralytics{
		APIKey:       "test-key",
		Model:        "https://hub.ultralytics.com/models/abc",
		InferenceURL: url,
	}
}

func TestNewClient_MissingConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Ultralytics
	}{
		{"no api key", config.Ultralytics{Model: "m", InferenceURL: "u"}},
		{"no model", config.Ultralytics{APIKey: "k", InferenceURL: "u"}},
		{"no endpoint", config.Ultralytics{APIKey: "k", Model: "m"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if kind := apierr.KindOf(err); kind != apierr.KindConfiguration {
				t.Errorf("kind = %q, want %q", kind, apierr.KindConfiguration)
			}
		})
	}
}

func TestDetect_Box(t *testing.T) {
	var gotAPIKey, gotModel, gotImgsz, gotConf, gotIou, gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.Header.Get("x-api-key")
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		gotImgsz = r.FormValue("imgsz")
		gotConf = r.FormValue("conf")
		gotIou = r.FormValue("iou")
		if _, hdr, err := r.FormFile("file"); err == nil {
			gotFilename = hdr.Filename
		} else {
			t.Errorf("form file: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"images":[{"results":[{"box":{"x1":10.4,"y1":10.9,"x2":100.0,"y2":90.2}}]}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	box, err := c.Detect(context.Background(), []byte("fake-image"), "dog.jpg", "image/jpeg")
	if err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	want := &detection.Box{X1: 10, Y1: 10, X2: 100, Y2: 90}
	if box == nil || *box != *want {
		t.Errorf("box = %+v, want %+v", box, want)
	}

	if gotAPIKey != "test-key" {
		t.Errorf("x-api-key = %q, want %q", gotAPIKey, "test-key")
	}
	if gotModel != "https://hub.ultralytics.com/models/abc" {
		t.Errorf("model field = %q", gotModel)
	}
	if gotImgsz != "640" || gotConf != "0.25" || gotIou != "0.45" {
		t.Errorf("inference params = imgsz %q conf %q iou %q, want 640/0.25/0.45", gotImgsz, gotConf, gotIou)
	}
	if gotFilename != "dog.jpg" {
		t.Errorf("uploaded filename = %q, want dog.jpg", gotFilename)
	}
}

func TestDetect_NoDetection(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no images", `{"images":[]}`},
		{"no results", `{"images":[{"results":[]}]}`},
		{"no box", `{"images":[{"results":[{}]}]}`},
		{"incomplete box", `{"images":[{"results":[{"box":{"x1":10,"y1":10}}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := NewClient(testConfig(srv.URL))
			if err != nil {
				t.Fatal(err)
			}
			box, err := c.Detect(context.Background(), []byte("fake-image"), "dog.jpg", "image/jpeg")
			if err != nil {
				t.Fatalf("Detect() error: %v", err)
			}
			if box != nil {
				t.Errorf("box = %+v, want nil", box)
			}
		})
	}
}

func TestDetect_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"message": "model is loading"}`))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Detect(context.Background(), []byte("fake-image"), "dog.jpg", "image/jpeg")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if kind := apierr.KindOf(err); kind != apierr.KindUpstream {
		t.Errorf("kind = %q, want %q", kind, apierr.KindUpstream)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error %q should contain upstream status 503", err)
	}
	if !strings.Contains(err.Error(), "model is loading") {
		t.Errorf("error %q should contain upstream body", err)
	}
}

func TestDetect_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Detect(context.Background(), []byte("fake-image"), "dog.jpg", "image/jpeg")
	if kind := apierr.KindOf(err); kind != apierr.KindResponseParse {
		t.Errorf("kind = %q, want %q", kind, apierr.KindResponseParse)
	}
}

func TestDetect_EmptyData(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c, err := NewClient(testConfig(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Detect(context.Background(), nil, "dog.jpg", "image/jpeg")
	if kind := apierr.KindOf(err); kind != apierr.KindValidation {
		t.Errorf("kind = %q, want %q", kind, apierr.KindValidation)
	}
	if called {
		t.Error("empty input must not reach the inference API")
	}
}
