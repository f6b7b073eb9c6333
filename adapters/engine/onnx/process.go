package onnx

import (
	"image"
	"sort"

	"github.com/SeaCloudHub/objdetect/domain/detection"
	"github.com/nfnt/resize"
)

// preprocess stretches frame to size x size and lays it out as a CHW float32
// tensor scaled to [0, 1].
func preprocess(frame image.Image, size int) []float32 {
	resized := resize.Resize(uint(size), uint(size), frame, resize.Lanczos3)
	b := resized.Bounds()

	input := make([]float32, 3*size*size)
	stride := size * size
	idx := 0

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, _ := resized.At(b.Min.X+x, b.Min.Y+y).RGBA()
			input[idx] = float32(r>>8) / 255.0
			input[idx+stride] = float32(g>>8) / 255.0
			input[idx+2*stride] = float32(bl>>8) / 255.0
			idx++
		}
	}

	return input
}

// layout describes a [1, 4+classes, anchors] YOLO output tensor.
type layout struct {
	classes   int
	anchors   int
	inputSize int
}

// decode turns the raw output into detections in frame coordinates. Each
// anchor keeps its best class; boxes are centre/size in input pixels.
func decode(output []float32, l layout, labels []string, frameW, frameH int, confidence float32) []detection.Detection {
	n := l.anchors
	if len(output) < (4+l.classes)*n {
		return nil
	}

	sx := float64(frameW) / float64(l.inputSize)
	sy := float64(frameH) / float64(l.inputSize)

	var dets []detection.Detection
	for i := 0; i < n; i++ {
		classID, score := 0, float32(0)
		for j := 0; j < l.classes; j++ {
			if s := output[(4+j)*n+i]; s > score {
				classID, score = j, s
			}
		}

		if score < confidence {
			continue
		}

		xc, yc := float64(output[i]), float64(output[n+i])
		w, h := float64(output[2*n+i]), float64(output[3*n+i])

		box := detection.Box{
			X1: (xc - w/2) * sx,
			Y1: (yc - h/2) * sy,
			X2: (xc + w/2) * sx,
			Y2: (yc + h/2) * sy,
		}.Clip(frameW, frameH)

		if box.Area() <= 0 {
			continue
		}

		label := ""
		if classID < len(labels) {
			label = labels[classID]
		}

		dets = append(dets, detection.Detection{
			ClassID:    classID,
			Label:      label,
			Confidence: score,
			Box:        box,
		})
	}

	return dets
}

// nms runs per-class non maximum suppression and returns the survivors by
// descending confidence, at most max of them when max > 0.
func nms(dets []detection.Detection, iou float32, max int) []detection.Detection {
	sort.SliceStable(dets, func(i, j int) bool {
		return dets[i].Confidence > dets[j].Confidence
	})

	suppressed := make([]bool, len(dets))
	kept := make([]detection.Detection, 0, len(dets))

	for i := range dets {
		if suppressed[i] {
			continue
		}

		kept = append(kept, dets[i])
		if max > 0 && len(kept) == max {
			break
		}

		for j := i + 1; j < len(dets); j++ {
			if suppressed[j] || dets[j].ClassID != dets[i].ClassID {
				continue
			}

			if dets[i].Box.IoU(dets[j].Box) > float64(iou) {
				suppressed[j] = true
			}
		}
	}

	return kept
}

// anchorCount is the number of predictions a YOLOv8 style head emits for a
// square input, used when the model reports a dynamic dimension.
func anchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		n += (size / stride) * (size / stride)
	}

	return n
}
