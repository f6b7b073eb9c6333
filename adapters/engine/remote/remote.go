package remote

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/SeaCloudHub/objdetect/domain/detection"
	"github.com/SeaCloudHub/objdetect/pkg/config"
	"github.com/SeaCloudHub/objdetect/pkg/imaging"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

// uploadQuality is the JPEG quality of the frame sent to the server.
const uploadQuality = 95

type Options struct {
	URL     string
	Timeout time.Duration
	Debug   bool
}

func ParseFromConfig(c *config.Config) Options {
	return Options{
		URL:     c.Detector.InferenceURL,
		Timeout: c.Detector.InferenceTimeout,
		Debug:   c.Debug,
	}
}

// Engine delegates inference to an HTTP detection server. It holds no model
// state and is safe for concurrent use.
type Engine struct {
	host   *url.URL
	client *resty.Client
}

func New(opts Options) (*Engine, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid inference url: %q", opts.URL)
	}

	client := resty.New().SetBaseURL(u.String()).SetDebug(opts.Debug)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	return &Engine{
		host:   u,
		client: client,
	}, nil
}

func (e *Engine) Name() string {
	return "remote"
}

// Ping checks that the server answers its health endpoint.
func (e *Engine) Ping(ctx context.Context) error {
	resp, err := e.client.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("ping %s: %w", e.host, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("ping %s: %s", e.host, resp.Status())
	}

	return nil
}

func (e *Engine) Infer(ctx context.Context, frame image.Image, opts detection.InferOptions) (*detection.Result, error) {
	start := time.Now()
	bounds := frame.Bounds()

	data, err := imaging.EncodeJPEG(frame, uploadQuality)
	if err != nil {
		return nil, errors.Wrapf(detection.ErrInference, "encode frame: %v", err)
	}

	var result PredictResponse
	resp, err := e.client.R().SetContext(ctx).
		SetFileReader("file", "frame.jpg", bytes.NewReader(data)).
		SetFormData(map[string]string{
			"conf":    strconv.FormatFloat(float64(opts.Confidence), 'f', -1, 32),
			"max_det": strconv.Itoa(opts.MaxDetections),
		}).
		SetHeader("Accept", "application/json").
		SetResult(&result).
		Post("/predict")
	if err != nil {
		return nil, fmt.Errorf("%w: predict: %w", detection.ErrInference, err)
	}

	if resp.IsError() {
		return nil, errors.Wrapf(detection.ErrInference, "predict: %s", resp.Status())
	}

	dets := make([]detection.Detection, 0, len(result.Detections))
	for _, d := range result.Detections {
		box := detection.BoxFromXYWH(d.X, d.Y, d.Width, d.Height).Clip(bounds.Dx(), bounds.Dy())
		if box.Area() <= 0 {
			continue
		}

		dets = append(dets, detection.Detection{
			ClassID:    d.ClassID,
			Label:      d.Class,
			Confidence: d.Confidence,
			Box:        box,
		})
	}

	return &detection.Result{
		Detections: detection.Filter(dets, opts.Confidence, opts.MaxDetections),
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Speed:      time.Since(start),
	}, nil
}

func (e *Engine) Render(frame image.Image, result *detection.Result) (*image.RGBA, error) {
	return detection.Render(frame, result), nil
}

func (e *Engine) Close() error {
	return nil
}
