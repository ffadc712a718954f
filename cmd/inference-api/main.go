package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/visionglue/inference-api/internal/config"
	"github.com/visionglue/inference-api/internal/logging"
	"github.com/visionglue/inference-api/internal/pipeline"
	"github.com/visionglue/inference-api/internal/storage"
	"github.com/visionglue/inference-api/internal/ultralytics"
)

// CLI flags
var portFlag int

var rootCmd = &cobra.Command{
	Use:   "inference-api",
	Short: "Detection annotation service",
	Long: `inference-api runs an HTTP service that forwards uploaded images to the
Ultralytics inference API, draws the detected bounding box on the image,
and stores the annotated result in an S3-compatible bucket.

Examples:
  inference-api
  inference-api --port 9090`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()
	cfg := config.Load()

	// A stage with missing configuration still serves requests; it fails
	// with a configuration error when invoked, not at startup.
	var detector pipeline.Detector
	if c, err := ultralytics.NewClient(cfg.Ultralytics); err != nil {
		log.Warn().Err(err).Msg("Inference stage not configured")
		detector = errDetector{err: err}
	} else {
		detector = c
	}

	var uploader pipeline.Uploader
	if u, err := storage.New(context.Background(), cfg.Storage); err != nil {
		log.Warn().Err(err).Msg("Storage stage not configured")
		uploader = errUploader{err: err}
	} else {
		uploader = u
	}

	handler := newHandler(pipeline.New(detector, uploader), cfg.AllowedOrigins)

	addr := fmt.Sprintf(":%d", portFlag)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.Info().Int("port", portFlag).Strs("origins", cfg.AllowedOrigins).Msg("Starting inference service")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
