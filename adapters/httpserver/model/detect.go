package model

import (
	"context"

	"github.com/SeaCloudHub/objdetect/domain/detection"
	"github.com/SeaCloudHub/objdetect/pkg/imaging"
	"github.com/SeaCloudHub/objdetect/pkg/validation"
)

const (
	EmbedBase64  = "base64"
	EmbedDataURL = "data_url"
)

// DetectRequest holds the optional form fields sent next to the file.
type DetectRequest struct {
	Confidence    float32 `form:"conf" query:"conf" validate:"omitempty,gt=0,lte=1"`
	MaxDetections int     `form:"max_det" query:"max_det" validate:"omitempty,min=1,max=1000"`
	Embed         string  `form:"embed" query:"embed" mod:"trim,lcase" validate:"omitempty,oneof=base64 data_url"`
}

func (r *DetectRequest) Validate(ctx context.Context) error {
	if err := validation.Conform().Struct(ctx, r); err != nil {
		return err
	}

	return validation.Validate().StructCtx(ctx, r)
}

func (r *DetectRequest) Options() detection.InferOptions {
	return detection.InferOptions{
		Confidence:    r.Confidence,
		MaxDetections: r.MaxDetections,
	}
}

type DetectResponse struct {
	ID          string                `json:"id"`
	Filename    string                `json:"filename"`
	Engine      string                `json:"engine"`
	InputMime   string                `json:"input_mime"`
	InputImage  string                `json:"input_image"`
	OutputImage string                `json:"output_image"`
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	Count       int                   `json:"count"`
	Detections  []detection.Detection `json:"detections"`
	SpeedMS     float64               `json:"speed_ms"`
}

func NewDetectResponse(o *detection.Outcome, embed string) DetectResponse {
	input, output := o.InputImage, o.OutputImage
	if embed == EmbedDataURL {
		input = imaging.DataURL(o.InputMime, input)
		output = imaging.DataURL("image/jpeg", output)
	}

	dets := o.Result.Detections
	if dets == nil {
		dets = []detection.Detection{}
	}

	return DetectResponse{
		ID:          o.ID,
		Filename:    o.Filename,
		Engine:      o.Engine,
		InputMime:   o.InputMime,
		InputImage:  input,
		OutputImage: output,
		Width:       o.Result.Width,
		Height:      o.Result.Height,
		Count:       o.Result.Count(),
		Detections:  dets,
		SpeedMS:     float64(o.Result.Speed.Microseconds()) / 1000,
	}
}
