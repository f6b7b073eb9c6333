package detection

import "errors"

// Error kinds. Every error returned by the detection pipeline wraps exactly
// one of them.
var (
	ErrValidation  = errors.New("validation error")
	ErrDecode      = errors.New("decode error")
	ErrInference   = errors.New("inference error")
	ErrEmptyResult = errors.New("empty result")
)

var (
	ErrMissingFile       = kind(ErrValidation, "no file was submitted")
	ErrEmptyFile         = kind(ErrValidation, "the uploaded file is empty")
	ErrFileTooLarge      = kind(ErrValidation, "the uploaded file exceeds the size limit")
	ErrInvalidOptions    = kind(ErrValidation, "invalid detection options")
	ErrTooManyPixels     = kind(ErrValidation, "the image dimensions exceed the pixel limit")
	ErrUnsupportedFormat = kind(ErrDecode, "unsupported image format")
	ErrEngineUnavailable = kind(ErrInference, "detection engine is not available")
	ErrNothingDetected   = kind(ErrEmptyResult, "no objects were detected")
)

type kindError struct {
	kind error
	msg  string
}

func kind(k error, msg string) error {
	return &kindError{kind: k, msg: msg}
}

func (e *kindError) Error() string {
	return e.msg
}

func (e *kindError) Unwrap() error {
	return e.kind
}

// Kind reports which of the four error kinds err belongs to, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrDecode, ErrInference, ErrEmptyResult} {
		if errors.Is(err, k) {
			return k
		}
	}

	return nil
}
