package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(KindUpstream, "inference API returned 503")
	if got := KindOf(err); got != KindUpstream {
		t.Errorf("KindOf() = %q, want %q", got, KindUpstream)
	}

	// Classification survives further wrapping with %w.
	wrapped := fmt.Errorf("pipeline failed: %w", err)
	if got := KindOf(wrapped); got != KindUpstream {
		t.Errorf("KindOf(wrapped) = %q, want %q", got, KindUpstream)
	}

	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain) = %q, want %q", got, KindInternal)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{New(KindValidation, "empty file provided"), http.StatusBadRequest},
		{New(KindConfiguration, "missing STORAGE_BUCKET"), http.StatusInternalServerError},
		{New(KindUpstream, "status 503"), http.StatusInternalServerError},
		{New(KindImageDecode, "not an image"), http.StatusInternalServerError},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindStorage, cause, "upload failed")

	if !errors.Is(err, cause) {
		t.Error("wrapped error should match its cause with errors.Is")
	}
	if want := "upload failed: connection refused"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	if Wrap(KindStorage, nil, "no-op") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}
