// Package config loads service configuration from the environment into an
// explicit struct that is built once in main and passed into each stage.
// Stages validate their own section so a missing variable only fails the
// stage that needs it, before any network call is attempted.
package config

import (
	"os"
	"strings"
)

// Environment variable names.
const (
	EnvUltralyticsAPIKey       = "ULTRALYTICS_API_KEY"
	EnvUltralyticsModelURL     = "ULTRALYTICS_MODEL_URL"
	EnvUltralyticsInferenceURL = "ULTRALYTICS_INFERENCE_URL"
	EnvStorageEndpoint         = "STORAGE_ENDPOINT"
	EnvStorageAccessKeyID      = "STORAGE_ACCESS_KEY_ID"
	EnvStorageSecretAccessKey  = "STORAGE_SECRET_ACCESS_KEY"
	EnvStorageBucket           = "STORAGE_BUCKET"
	EnvStoragePublicURL        = "STORAGE_PUBLIC_URL"
	EnvAllowedOrigins          = "ALLOWED_ORIGINS"
)

// defaultAllowedOrigins is used when ALLOWED_ORIGINS is unset: the local
// dev frontend plus the production origin.
var defaultAllowedOrigins = []string{
	"http://localhost:5173",
	"https://app.visionglue.io",
}

// Ultralytics holds the inference client settings.
type Ultralytics struct {
	APIKey       string
	Model        string
	InferenceURL string
}

// Storage holds the S3-compatible uploader settings. PublicURL is optional;
// when empty the public URL is derived from Endpoint and Bucket.
type Storage struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

type Config struct {
	Ultralytics    Ultralytics
	Storage        Storage
	AllowedOrigins []string
}

// Load reads the environment. It never fails: required variables are
// checked by the stage that consumes them.
func Load() Config {
	return Config{
		Ultralytics: Ultralytics{
			APIKey:       strings.TrimSpace(os.Getenv(EnvUltralyticsAPIKey)),
			Model:        strings.TrimSpace(os.Getenv(EnvUltralyticsModelURL)),
			InferenceURL: strings.TrimSpace(os.Getenv(EnvUltralyticsInferenceURL)),
		},
		Storage: Storage{
			Endpoint:        strings.TrimSpace(os.Getenv(EnvStorageEndpoint)),
			AccessKeyID:     strings.TrimSpace(os.Getenv(EnvStorageAccessKeyID)),
			SecretAccessKey: strings.TrimSpace(os.Getenv(EnvStorageSecretAccessKey)),
			Bucket:          strings.TrimSpace(os.Getenv(EnvStorageBucket)),
			PublicURL:       strings.TrimSpace(os.Getenv(EnvStoragePublicURL)),
		},
		AllowedOrigins: parseOrigins(os.Getenv(EnvAllowedOrigins)),
	}
}

func parseOrigins(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultAllowedOrigins
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(o), "/"))
		if o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return defaultAllowedOrigins
	}
	return origins
}
