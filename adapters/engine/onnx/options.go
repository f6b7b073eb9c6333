package onnx

import (
	"math"
	"runtime"

	"github.com/SeaCloudHub/objdetect/pkg/config"
)

// MaxPoolSize bounds the number of sessions regardless of the CPU count.
const MaxPoolSize = 10

type Options struct {
	ModelPath   string
	LabelsPath  string
	LibraryPath string
	InputSize   int
	IOU         float32
	PoolSize    int
}

func ParseFromConfig(c *config.Config) Options {
	return Options{
		ModelPath:   c.Detector.ModelPath,
		LabelsPath:  c.Detector.LabelsPath,
		LibraryPath: c.Detector.LibraryPath,
		InputSize:   c.Detector.InputSize,
		IOU:         c.Detector.IOU,
		PoolSize:    c.Detector.PoolSize,
	}
}

// DefaultPoolSize is 80% of the available cores, at least 1 and at most
// MaxPoolSize.
func DefaultPoolSize() int {
	size := int(math.Round(float64(runtime.NumCPU()) * 0.8))
	if size < 1 {
		size = 1
	}

	if size > MaxPoolSize {
		size = MaxPoolSize
	}

	return size
}

func (o Options) withDefaults() Options {
	if o.InputSize <= 0 {
		o.InputSize = 640
	}

	if o.IOU <= 0 {
		o.IOU = 0.7
	}

	if o.PoolSize <= 0 {
		o.PoolSize = DefaultPoolSize()
	}

	return o
}

func sharedLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.dylib"
		}

		return "./third_party/onnxruntime.dylib"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
	}

	return "./third_party/onnxruntime.so"
}
