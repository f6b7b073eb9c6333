package backend

import (
	"context"
	"fmt"

	"github.com/SeaCloudHub/objdetect/adapters/engine/onnx"
	"github.com/SeaCloudHub/objdetect/adapters/engine/remote"
	"github.com/SeaCloudHub/objdetect/domain/detection"
	"github.com/SeaCloudHub/objdetect/pkg/config"
)

// NewLoader returns the loader for the backend selected in cfg.
func NewLoader(cfg *config.Config) (detection.Loader, error) {
	switch cfg.Detector.Backend {
	case config.BackendONNX:
		opts := onnx.ParseFromConfig(cfg)

		return func(ctx context.Context) (detection.Engine, error) {
			return onnx.New(opts)
		}, nil
	case config.BackendRemote:
		opts := remote.ParseFromConfig(cfg)

		return func(ctx context.Context) (detection.Engine, error) {
			e, err := remote.New(opts)
			if err != nil {
				return nil, err
			}

			if err := e.Ping(ctx); err != nil {
				return nil, err
			}

			return e, nil
		}, nil
	}

	return nil, fmt.Errorf("unknown detector backend: %q", cfg.Detector.Backend)
}
