package onnx

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/SeaCloudHub/objdetect/domain/detection"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	envOnce sync.Once
	envErr  error
)

type session struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
}

func (s *session) destroy() {
	if s.session != nil {
		_ = s.session.Destroy()
	}

	if s.input != nil {
		_ = s.input.Destroy()
	}

	if s.output != nil {
		_ = s.output.Destroy()
	}
}

// Engine runs a YOLO model exported to ONNX. A session is not safe for
// concurrent runs, so each Infer borrows one from a fixed pool.
type Engine struct {
	opts   Options
	labels []string
	layout layout

	inputName  string
	outputName string

	pool     chan *session
	sessions []*session
}

func initEnvironment(libraryPath string) error {
	envOnce.Do(func() {
		if libraryPath == "" {
			libraryPath = sharedLibraryPath()
		}

		ort.SetSharedLibraryPath(libraryPath)
		envErr = ort.InitializeEnvironment()
	})

	return envErr
}

func New(opts Options) (*Engine, error) {
	opts = opts.withDefaults()

	if err := initEnvironment(opts.LibraryPath); err != nil {
		return nil, errors.Wrap(err, "initialize onnxruntime")
	}

	inputs, outputs, err := ort.GetInputOutputInfo(opts.ModelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "read model %s", opts.ModelPath)
	}

	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has no inputs or outputs", opts.ModelPath)
	}

	dims := outputs[0].Dimensions
	if len(dims) != 3 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected output shape %v, want [1, 4+classes, anchors]", dims)
	}

	l := layout{
		classes:   int(dims[1]) - 4,
		anchors:   int(dims[2]),
		inputSize: opts.InputSize,
	}
	if l.anchors <= 0 {
		l.anchors = anchorCount(opts.InputSize)
	}

	labels, err := LoadLabels(opts.LabelsPath)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		opts:       opts,
		labels:     fitLabels(labels, l.classes),
		layout:     l,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
		pool:       make(chan *session, opts.PoolSize),
	}

	for i := 0; i < opts.PoolSize; i++ {
		s, err := e.newSession()
		if err != nil {
			e.Close()

			return nil, errors.Wrapf(err, "create session %d", i)
		}

		// A first run allocates the runtime's buffers.
		if err := s.session.Run(); err != nil {
			s.destroy()
			e.Close()

			return nil, errors.Wrapf(err, "warm up session %d", i)
		}

		e.sessions = append(e.sessions, s)
		e.pool <- s
	}

	return e, nil
}

func (e *Engine) newSession() (*session, error) {
	size := int64(e.opts.InputSize)

	input, err := ort.NewTensor(ort.NewShape(1, 3, size, size), make([]float32, 3*size*size))
	if err != nil {
		return nil, err
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+e.layout.classes), int64(e.layout.anchors)))
	if err != nil {
		_ = input.Destroy()

		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()

		return nil, err
	}
	defer options.Destroy()

	// Parallelism comes from the pool, one thread per session.
	_ = options.SetIntraOpNumThreads(1)
	_ = options.SetInterOpNumThreads(1)

	s, err := ort.NewAdvancedSession(e.opts.ModelPath,
		[]string{e.inputName}, []string{e.outputName},
		[]ort.Value{input}, []ort.Value{output}, options)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()

		return nil, err
	}

	return &session{session: s, input: input, output: output}, nil
}

func (e *Engine) Name() string {
	return "onnx"
}

func (e *Engine) Infer(ctx context.Context, frame image.Image, opts detection.InferOptions) (*detection.Result, error) {
	start := time.Now()
	bounds := frame.Bounds()
	input := preprocess(frame, e.opts.InputSize)

	var s *session
	select {
	case s = <-e.pool:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: wait for session: %w", detection.ErrInference, ctx.Err())
	}

	copy(s.input.GetData(), input)
	err := s.session.Run()

	var output []float32
	if err == nil {
		output = append(output, s.output.GetData()...)
	}
	e.pool <- s

	if err != nil {
		return nil, errors.Wrapf(detection.ErrInference, "run session: %v", err)
	}

	dets := decode(output, e.layout, e.labels, bounds.Dx(), bounds.Dy(), opts.Confidence)

	return &detection.Result{
		Detections: nms(dets, e.opts.IOU, opts.MaxDetections),
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Speed:      time.Since(start),
	}, nil
}

func (e *Engine) Render(frame image.Image, result *detection.Result) (*image.RGBA, error) {
	return detection.Render(frame, result), nil
}

// Close destroys every session. It must not be called while Infer runs.
func (e *Engine) Close() error {
	for _, s := range e.sessions {
		s.destroy()
	}

	e.sessions = nil

	return nil
}
