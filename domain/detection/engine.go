package detection

import (
	"context"
	"image"
)

// Engine is a loaded detection model.
type Engine interface {
	Name() string
	// Infer runs the model over frame and reports boxes in frame coordinates.
	Infer(ctx context.Context, frame image.Image, opts InferOptions) (*Result, error)
	// Render draws result onto a copy of frame.
	Render(frame image.Image, result *Result) (*image.RGBA, error)
	Close() error
}

// Loader loads an engine from its weights. It is called at most once per
// successful load.
type Loader func(ctx context.Context) (Engine, error)

type Service interface {
	Detect(ctx context.Context, upload Upload, opts InferOptions) (*Outcome, error)
}
