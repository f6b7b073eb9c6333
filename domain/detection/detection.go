package detection

import (
	"math"
	"sort"
	"time"
)

// Box is an axis aligned rectangle in frame pixel coordinates.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

func BoxFromXYWH(x, y, w, h float64) Box {
	return Box{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

func (b Box) Width() float64 {
	return math.Max(0, b.X2-b.X1)
}

func (b Box) Height() float64 {
	return math.Max(0, b.Y2-b.Y1)
}

func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// Clip limits the box to a w x h frame.
func (b Box) Clip(w, h int) Box {
	clamp := func(v, max float64) float64 {
		return math.Min(math.Max(v, 0), max)
	}

	return Box{
		X1: clamp(b.X1, float64(w)),
		Y1: clamp(b.Y1, float64(h)),
		X2: clamp(b.X2, float64(w)),
		Y2: clamp(b.Y2, float64(h)),
	}
}

// IoU is the intersection over union of two boxes.
func (b Box) IoU(o Box) float64 {
	inter := Box{
		X1: math.Max(b.X1, o.X1),
		Y1: math.Max(b.Y1, o.Y1),
		X2: math.Min(b.X2, o.X2),
		Y2: math.Min(b.Y2, o.Y2),
	}.Area()

	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}

	return inter / union
}

type Detection struct {
	ClassID    int     `json:"class_id"`
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Result is what an engine reports for one frame.
type Result struct {
	Detections []Detection   `json:"detections"`
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Speed      time.Duration `json:"-"`
}

func (r *Result) Count() int {
	if r == nil {
		return 0
	}

	return len(r.Detections)
}

func (r *Result) Empty() bool {
	return r.Count() == 0
}

// Labels counts detections per label.
func (r *Result) Labels() map[string]int {
	labels := make(map[string]int)
	if r == nil {
		return labels
	}

	for _, d := range r.Detections {
		labels[d.Label]++
	}

	return labels
}

// Filter keeps detections at or above the confidence threshold, ordered by
// descending confidence and capped at max when max > 0.
func Filter(dets []Detection, confidence float32, max int) []Detection {
	kept := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Confidence >= confidence {
			kept = append(kept, d)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Confidence > kept[j].Confidence
	})

	if max > 0 && len(kept) > max {
		kept = kept[:max]
	}

	return kept
}

// Upload is the raw file submitted by the client. It lives for one request.
type Upload struct {
	Filename string
	Data     []byte
}

type InferOptions struct {
	Confidence    float32
	MaxDetections int
}

// Normalize fills unset options from defaults and checks ranges.
func (o InferOptions) Normalize(defaults InferOptions) (InferOptions, error) {
	if o.Confidence == 0 {
		o.Confidence = defaults.Confidence
	}

	if o.MaxDetections == 0 {
		o.MaxDetections = defaults.MaxDetections
	}

	if o.Confidence <= 0 || o.Confidence > 1 || o.MaxDetections < 0 {
		return o, ErrInvalidOptions
	}

	return o, nil
}

// Outcome is what the pipeline hands back to the transport layer.
type Outcome struct {
	ID          string  `json:"id"`
	Filename    string  `json:"filename"`
	Engine      string  `json:"engine"`
	InputMime   string  `json:"input_mime"`
	InputImage  string  `json:"input_image"`
	OutputImage string  `json:"output_image"`
	Result      *Result `json:"result"`
}
