package detection

import (
	"fmt"
	"image"
	"math"

	"github.com/SeaCloudHub/objdetect/pkg/imaging"
)

// Render is the default drawing routine shared by the engines: one coloured
// rectangle per detection with a "label 0.87" caption.
func Render(frame image.Image, r *Result) *image.RGBA {
	if r == nil {
		return imaging.ToRGB(frame)
	}

	annotations := make([]imaging.Annotation, 0, len(r.Detections))
	for _, d := range r.Detections {
		annotations = append(annotations, imaging.Annotation{
			Rect: image.Rect(
				int(math.Round(d.Box.X1)), int(math.Round(d.Box.Y1)),
				int(math.Round(d.Box.X2)), int(math.Round(d.Box.Y2)),
			),
			Caption: fmt.Sprintf("%s %.2f", d.Label, d.Confidence),
			Class:   d.ClassID,
		})
	}

	return imaging.Annotate(frame, annotations)
}
