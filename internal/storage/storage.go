// Package storage uploads annotated images to an S3-compatible bucket
// (Supabase storage gateway, MinIO, AWS S3) and derives their public URLs.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/visionglue/inference-api/internal/apierr"
	"github.com/visionglue/inference-api/internal/config"
)

const (
	// keyPrefix is the fixed folder for annotated results inside the bucket.
	keyPrefix = "inference"

	// cacheControl keeps repeated fetches cheap without pinning stale
	// results for long; uploads are upsert so content can change in place.
	cacheControl = "max-age=3600"

	// Custom endpoints are region-agnostic; the SDK still requires one.
	signingRegion = "us-east-1"
)

// putObjectAPI is the slice of the S3 client the uploader needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader persists objects and derives public URLs.
type Uploader struct {
	client    putObjectAPI
	bucket    string
	publicURL string
}

// New builds an uploader from configuration. Endpoint, credentials, and
// bucket are required; a missing one fails before any upload is attempted.
func New(ctx context.Context, cfg config.Storage) (*Uploader, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" || cfg.Bucket == "" {
		return nil, apierr.New(apierr.KindConfiguration,
			"missing required environment variables: %s, %s, %s, and %s must be set",
			config.EnvStorageEndpoint, config.EnvStorageAccessKeyID,
			config.EnvStorageSecretAccessKey, config.EnvStorageBucket)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(signingRegion),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindConfiguration, err, "failed to load storage credentials")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		// S3-compatible services route by path, not virtual host.
		o.UsePathStyle = true
	})

	publicURL := strings.TrimSuffix(cfg.PublicURL, "/")
	if publicURL == "" {
		publicURL = strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}

	return &Uploader{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}, nil
}

// Upload writes data under the deterministic key for filename and returns
// the object's public URL. PutObject overwrites any existing object at the
// same key, so repeated uploads of the same filename replace in place.
func (u *Uploader) Upload(ctx context.Context, filename string, data []byte, contentType string) (string, error) {
	key := ObjectKey(filename)

	log.Debug().
		Str("bucket", u.bucket).
		Str("key", key).
		Int("size", len(data)).
		Msg("Uploading annotated image")

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return "", apierr.Wrap(apierr.KindStorage, err, "error saving image to storage")
	}

	url := u.publicURL + "/" + key
	log.Info().Str("url", url).Msg("Annotated image uploaded")
	return url, nil
}

// ObjectKey returns the bucket key for a stored filename.
func ObjectKey(filename string) string {
	return fmt.Sprintf("%s/%s", keyPrefix, filename)
}
