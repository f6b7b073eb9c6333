package remote

// PredictResponse is the body returned by POST /predict. Boxes are top left
// corner and size in pixels of the submitted frame.
type PredictResponse struct {
	Detections []Prediction `json:"detections"`
}

type Prediction struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Class      string  `json:"class"`
	ClassID    int     `json:"class_id"`
	Confidence float32 `json:"confidence"`
}
