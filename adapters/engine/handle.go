package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SeaCloudHub/objdetect/domain/detection"
	"go.uber.org/zap"
)

type State int

const (
	Unloaded State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unloaded"
	}
}

// Handle owns the process wide engine. It moves Unloaded -> Loading -> Ready
// exactly once; a failed load goes back to Unloaded. There is no way back
// from Ready.
type Handle struct {
	loader detection.Loader
	logger *zap.SugaredLogger

	mu     sync.Mutex
	state  State
	engine detection.Engine
	done   chan struct{}
	err    error
}

func NewHandle(loader detection.Loader, logger *zap.SugaredLogger) *Handle {
	return &Handle{
		loader: loader,
		logger: logger,
	}
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.state
}

// Load loads the engine if it is not loaded yet. Concurrent callers share a
// single load.
func (h *Handle) Load(ctx context.Context) (detection.Engine, error) {
	h.mu.Lock()
	switch h.state {
	case Ready:
		e := h.engine
		h.mu.Unlock()

		return e, nil
	case Loading:
		done := h.done
		h.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", detection.ErrEngineUnavailable, ctx.Err())
		}

		h.mu.Lock()
		defer h.mu.Unlock()
		if h.state == Ready {
			return h.engine, nil
		}

		return nil, h.err
	}

	h.state = Loading
	h.done = make(chan struct{})
	done := h.done
	h.mu.Unlock()

	h.logger.Infow("loading detection engine")
	start := time.Now()

	// The load is not tied to the caller: a lazy load triggered by one
	// request must not be cancelled when that request goes away.
	e, err := h.loader(context.WithoutCancel(ctx))

	h.mu.Lock()
	if err != nil {
		h.state = Unloaded
		h.err = fmt.Errorf("%w: %v", detection.ErrEngineUnavailable, err)
		err = h.err
		h.logger.Errorw("cannot load detection engine", zap.Error(err))
	} else {
		h.state = Ready
		h.engine = e
		h.err = nil
		h.logger.Infow("detection engine ready",
			zap.String("engine", e.Name()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	close(done)
	h.mu.Unlock()

	return e, err
}

// Engine returns the ready engine, loading it first when needed.
func (h *Handle) Engine(ctx context.Context) (detection.Engine, error) {
	return h.Load(ctx)
}

// Close releases a ready engine at process exit.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != Ready {
		return nil
	}

	return h.engine.Close()
}
