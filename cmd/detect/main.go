package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/SeaCloudHub/objdetect/adapters/engine"
	"github.com/SeaCloudHub/objdetect/adapters/engine/backend"
	"github.com/SeaCloudHub/objdetect/adapters/services"
	"github.com/SeaCloudHub/objdetect/domain/detection"
	"github.com/SeaCloudHub/objdetect/pkg/config"
	"github.com/SeaCloudHub/objdetect/pkg/logger"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

var (
	in         = flag.String("in", "", "image to run the detector on")
	out        = flag.String("out", "", "where to write the annotated JPEG (default annotated_<id>.jpg)")
	confidence = flag.Float64("conf", 0, "confidence threshold, 0 uses DETECTOR_CONFIDENCE")
	maxDet     = flag.Int("max", 0, "maximum number of detections, 0 uses DETECTOR_MAX_DETECTIONS")
)

func main() {
	flag.Parse()

	applog, err := logger.NewAppLogger()
	if err != nil {
		log.Fatalf("cannot init logger: %v\n", err)
	}
	defer logger.Sync(applog)

	if err := run(context.Background(), applog); err != nil {
		applog.Errorw("detection failed", zap.Error(err))
		logger.Sync(applog)
		os.Exit(1)
	}
}

func run(ctx context.Context, applog *zap.SugaredLogger) error {
	if *in == "" {
		flag.Usage()
		return fmt.Errorf("-in is required")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return err
	}

	loader, err := backend.NewLoader(cfg)
	if err != nil {
		return err
	}

	handle := engine.NewHandle(loader, applog)
	defer handle.Close()

	if _, err := handle.Load(ctx); err != nil {
		return err
	}

	svc := services.NewDetectionService(handle, cfg, applog, nil)
	outcome, err := svc.Detect(ctx, detection.Upload{
		Filename: filepath.Base(*in),
		Data:     data,
	}, detection.InferOptions{
		Confidence:    float32(*confidence),
		MaxDetections: *maxDet,
	})
	if err != nil {
		return err
	}

	annotated, err := base64.StdEncoding.DecodeString(outcome.OutputImage)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = fmt.Sprintf("annotated_%s.jpg", gonanoid.Must(8))
	}

	if err := os.WriteFile(path, annotated, 0o644); err != nil {
		return err
	}

	for _, d := range outcome.Result.Detections {
		fmt.Printf("%-16s %.2f  [%.0f %.0f %.0f %.0f]\n", d.Label, d.Confidence, d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2)
	}
	fmt.Printf("%d detection(s) in %s, written to %s\n", outcome.Result.Count(), outcome.Result.Speed, path)

	return nil
}
