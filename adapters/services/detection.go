package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SeaCloudHub/objdetect/domain"
	"github.com/SeaCloudHub/objdetect/domain/detection"
	"github.com/SeaCloudHub/objdetect/pkg/config"
	"github.com/SeaCloudHub/objdetect/pkg/imaging"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EngineProvider hands out the process wide engine, loading it on first use.
type EngineProvider interface {
	Engine(ctx context.Context) (detection.Engine, error)
}

type DetectionService struct {
	engines    EngineProvider
	dispatcher domain.EventDispatcher
	logger     *zap.SugaredLogger

	maxSize           int64
	maxPixels         int64
	inputSize         int
	quality           int
	requireDetections bool
	defaults          detection.InferOptions
}

func NewDetectionService(engines EngineProvider, cfg *config.Config, logger *zap.SugaredLogger,
	dispatcher domain.EventDispatcher) *DetectionService {
	return &DetectionService{
		engines:           engines,
		dispatcher:        dispatcher,
		logger:            logger,
		maxSize:           cfg.Upload.MaxSize,
		maxPixels:         cfg.Upload.MaxPixels,
		inputSize:         cfg.Detector.InputSize,
		quality:           cfg.Detector.JPEGQuality,
		requireDetections: cfg.Detector.RequireDetections,
		defaults: detection.InferOptions{
			Confidence:    cfg.Detector.Confidence,
			MaxDetections: cfg.Detector.MaxDetections,
		},
	}
}

// Detect runs one upload through the pipeline. Every buffer is request scoped;
// nothing touches the disk.
func (s *DetectionService) Detect(ctx context.Context, upload detection.Upload, opts detection.InferOptions) (*detection.Outcome, error) {
	start := time.Now()

	if upload.Filename == "" {
		return nil, detection.ErrMissingFile
	}

	if len(upload.Data) == 0 {
		return nil, detection.ErrEmptyFile
	}

	if s.maxSize > 0 && int64(len(upload.Data)) > s.maxSize {
		return nil, detection.ErrFileTooLarge
	}

	opts, err := opts.Normalize(s.defaults)
	if err != nil {
		return nil, err
	}

	mimeType := imaging.Sniff(upload.Data)
	if !imaging.IsImage(mimeType) {
		return nil, fmt.Errorf("%w: %s", detection.ErrUnsupportedFormat, mimeType)
	}

	// The header is checked first: a small compressed file can declare
	// dimensions that would not fit in memory once decoded.
	header, _, err := imaging.DecodeConfig(upload.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detection.ErrUnsupportedFormat, err)
	}

	if s.maxPixels > 0 && int64(header.Width)*int64(header.Height) > s.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", detection.ErrTooManyPixels, header.Width, header.Height)
	}

	img, _, err := imaging.Decode(upload.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", detection.ErrUnsupportedFormat, err)
	}

	frame := imaging.Fit(imaging.ToRGB(img), s.inputSize)

	engine, err := s.engines.Engine(ctx)
	if err != nil {
		return nil, err
	}

	result, err := engine.Infer(ctx, frame, opts)
	if err != nil {
		return nil, inferenceError(err)
	}

	// An engine that cannot be interrupted still has its result dropped once
	// the request is over.
	if err := ctx.Err(); err != nil {
		return nil, inferenceError(err)
	}

	if result.Empty() && s.requireDetections {
		return nil, detection.ErrNothingDetected
	}

	annotated, err := engine.Render(frame, result)
	if err != nil {
		return nil, inferenceError(err)
	}

	output, err := imaging.EncodeJPEG(annotated, s.quality)
	if err != nil {
		return nil, inferenceError(err)
	}

	outcome := &detection.Outcome{
		ID:          uuid.New().String(),
		Filename:    upload.Filename,
		Engine:      engine.Name(),
		InputMime:   mimeType,
		InputImage:  imaging.Base64(upload.Data),
		OutputImage: imaging.Base64(output),
		Result:      result,
	}

	elapsed := time.Since(start)
	s.logger.Debugw("detection completed",
		zap.String("id", outcome.ID),
		zap.String("filename", outcome.Filename),
		zap.Int("count", result.Count()),
		zap.Duration("elapsed", elapsed),
	)

	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(detection.NewDetectionCompletedEvent(outcome, elapsed)); err != nil {
			s.logger.Warnw("dispatch detection event", zap.Error(err))
		}
	}

	return outcome, nil
}

func inferenceError(err error) error {
	if errors.Is(err, detection.ErrInference) {
		return err
	}

	return fmt.Errorf("%w: %w", detection.ErrInference, err)
}
