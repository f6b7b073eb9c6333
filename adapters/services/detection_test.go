package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/SeaCloudHub/objdetect/adapters/event"
	"github.com/SeaCloudHub/objdetect/domain"
	"github.com/SeaCloudHub/objdetect/domain/detection"
	"github.com/SeaCloudHub/objdetect/pkg/config"
	"github.com/SeaCloudHub/objdetect/pkg/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEngine reports one fixed box at the frame centre.
type fakeEngine struct {
	empty bool
	err   error
	delay time.Duration
	opts  detection.InferOptions
	size  image.Point
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Infer(ctx context.Context, frame image.Image, opts detection.InferOptions) (*detection.Result, error) {
	if e.err != nil {
		return nil, e.err
	}

	// ignores ctx like a backend stuck in a native call
	time.Sleep(e.delay)

	e.opts = opts
	b := frame.Bounds()
	e.size = b.Size()

	result := &detection.Result{Width: b.Dx(), Height: b.Dy()}
	if !e.empty {
		result.Detections = []detection.Detection{{
			ClassID:    15,
			Label:      "cat",
			Confidence: 0.87,
			Box:        detection.Box{X1: float64(b.Dx()) / 4, Y1: float64(b.Dy()) / 4, X2: float64(b.Dx()) * 3 / 4, Y2: float64(b.Dy()) * 3 / 4},
		}}
	}

	return result, nil
}

func (e *fakeEngine) Render(frame image.Image, r *detection.Result) (*image.RGBA, error) {
	return detection.Render(frame, r), nil
}

func (e *fakeEngine) Close() error { return nil }

type staticProvider struct {
	engine detection.Engine
	err    error
}

func (p staticProvider) Engine(context.Context) (detection.Engine, error) {
	return p.engine, p.err
}

func testConfig() *config.Config {
	return &config.Config{
		Upload: config.UploadConfig{MaxSize: 1 << 20},
		Detector: config.DetectorConfig{
			InputSize:     640,
			Confidence:    0.5,
			MaxDetections: 300,
			JPEGQuality:   75,
		},
	}
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return buf.Bytes()
}

func newService(engine detection.Engine, cfg *config.Config) *DetectionService {
	return NewDetectionService(staticProvider{engine: engine}, cfg, zap.NewNop().Sugar(), nil)
}

func TestDetect(t *testing.T) {
	engine := &fakeEngine{}
	svc := newService(engine, testConfig())
	data := pngImage(t, 1280, 320)

	outcome, err := svc.Detect(context.Background(), detection.Upload{Filename: "cat.png", Data: data}, detection.InferOptions{})
	require.NoError(t, err)

	assert.NotEmpty(t, outcome.ID)
	assert.Equal(t, "cat.png", outcome.Filename)
	assert.Equal(t, "fake", outcome.Engine)
	assert.Equal(t, "image/png", outcome.InputMime)
	assert.Equal(t, imaging.Base64(data), outcome.InputImage)
	assert.NotEmpty(t, outcome.OutputImage)
	assert.Equal(t, 1, outcome.Result.Count())

	// Thumbnail fit keeps the aspect ratio inside the input size.
	assert.Equal(t, image.Pt(640, 160), engine.size)
	assert.Equal(t, detection.InferOptions{Confidence: 0.5, MaxDetections: 300}, engine.opts)
}

func TestDetectIsDeterministic(t *testing.T) {
	svc := newService(&fakeEngine{}, testConfig())
	upload := detection.Upload{Filename: "cat.png", Data: pngImage(t, 64, 48)}

	first, err := svc.Detect(context.Background(), upload, detection.InferOptions{})
	require.NoError(t, err)

	second, err := svc.Detect(context.Background(), upload, detection.InferOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.OutputImage, second.OutputImage)
	assert.Equal(t, first.InputImage, second.InputImage)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestDetectErrors(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxSize = 64

	tests := []struct {
		name   string
		engine *fakeEngine
		upload detection.Upload
		opts   detection.InferOptions
		kind   error
		target error
	}{
		{
			name:   "missing file",
			upload: detection.Upload{},
			kind:   detection.ErrValidation,
			target: detection.ErrMissingFile,
		},
		{
			name:   "zero bytes",
			upload: detection.Upload{Filename: "empty.jpg"},
			kind:   detection.ErrValidation,
			target: detection.ErrEmptyFile,
		},
		{
			name:   "too large",
			upload: detection.Upload{Filename: "big.jpg", Data: make([]byte, 65)},
			kind:   detection.ErrValidation,
			target: detection.ErrFileTooLarge,
		},
		{
			name:   "plain text",
			upload: detection.Upload{Filename: "notes.txt", Data: []byte("hello world")},
			kind:   detection.ErrDecode,
			target: detection.ErrUnsupportedFormat,
		},
		{
			name:   "bad confidence",
			upload: detection.Upload{Filename: "notes.txt", Data: []byte("hello world")},
			opts:   detection.InferOptions{Confidence: 2},
			kind:   detection.ErrValidation,
			target: detection.ErrInvalidOptions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(&fakeEngine{}, cfg)

			_, err := svc.Detect(context.Background(), tt.upload, tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.Equal(t, tt.kind, detection.Kind(err))
		})
	}
}

func TestDetectInferenceError(t *testing.T) {
	svc := newService(&fakeEngine{err: errors.New("cuda out of memory")}, testConfig())

	_, err := svc.Detect(context.Background(), detection.Upload{Filename: "a.png", Data: pngImage(t, 8, 8)}, detection.InferOptions{})
	require.Error(t, err)
	assert.Equal(t, detection.ErrInference, detection.Kind(err))
}

func TestDetectTooManyPixels(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxPixels = 100 * 100
	engine := &fakeEngine{}

	_, err := newService(engine, cfg).
		Detect(context.Background(), detection.Upload{Filename: "wide.png", Data: pngImage(t, 200, 200)}, detection.InferOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, detection.ErrTooManyPixels)
	assert.Equal(t, detection.ErrValidation, detection.Kind(err))
	assert.Contains(t, err.Error(), "200x200")
	assert.Equal(t, image.Point{}, engine.size, "the engine must not see an oversized frame")

	_, err = newService(engine, cfg).
		Detect(context.Background(), detection.Upload{Filename: "small.png", Data: pngImage(t, 100, 100)}, detection.InferOptions{})
	assert.NoError(t, err)
}

func TestDetectDeadlineExceeded(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newService(&fakeEngine{delay: 100 * time.Millisecond}, testConfig()).
		Detect(ctx, detection.Upload{Filename: "a.png", Data: pngImage(t, 8, 8)}, detection.InferOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, detection.ErrInference, detection.Kind(err))
}

func TestDetectEngineUnavailable(t *testing.T) {
	svc := NewDetectionService(staticProvider{err: detection.ErrEngineUnavailable}, testConfig(), zap.NewNop().Sugar(), nil)

	_, err := svc.Detect(context.Background(), detection.Upload{Filename: "a.png", Data: pngImage(t, 8, 8)}, detection.InferOptions{})
	assert.ErrorIs(t, err, detection.ErrEngineUnavailable)
}

func TestDetectEmptyResult(t *testing.T) {
	upload := detection.Upload{Filename: "a.png", Data: pngImage(t, 16, 16)}

	outcome, err := newService(&fakeEngine{empty: true}, testConfig()).
		Detect(context.Background(), upload, detection.InferOptions{})
	require.NoError(t, err)
	assert.True(t, outcome.Result.Empty())
	assert.NotEmpty(t, outcome.OutputImage)

	cfg := testConfig()
	cfg.Detector.RequireDetections = true

	_, err = newService(&fakeEngine{empty: true}, cfg).
		Detect(context.Background(), upload, detection.InferOptions{})
	assert.ErrorIs(t, err, detection.ErrNothingDetected)
	assert.Equal(t, detection.ErrEmptyResult, detection.Kind(err))
}

func TestDetectDispatchesEvent(t *testing.T) {
	dispatcher := event.NewEventDispatcher()

	var got detection.DetectionCompletedEvent
	dispatcher.Register(detection.DetectionCompletedEvent{}.EventName(), func(e domain.BaseDomainEvent) error {
		got = e.(detection.DetectionCompletedEvent)
		return errors.New("listener failure is not fatal")
	})

	svc := NewDetectionService(staticProvider{engine: &fakeEngine{}}, testConfig(), zap.NewNop().Sugar(), dispatcher)

	outcome, err := svc.Detect(context.Background(), detection.Upload{Filename: "a.png", Data: pngImage(t, 16, 16)}, detection.InferOptions{})
	require.NoError(t, err)

	assert.Equal(t, outcome.ID, got.ID)
	assert.Equal(t, "fake", got.Engine)
	assert.Equal(t, map[string]int{"cat": 1}, got.Labels)
}
