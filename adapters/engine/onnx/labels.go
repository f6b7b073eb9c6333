package onnx

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

var cocoLabels = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog",
	"horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella",
	"handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite",
	"baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket", "bottle",
	"wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch", "potted plant",
	"bed", "dining table", "toilet", "tv", "laptop", "mouse", "remote", "keyboard", "cell phone",
	"microwave", "oven", "toaster", "sink", "refrigerator", "book", "clock", "vase", "scissors",
	"teddy bear", "hair drier", "toothbrush",
}

// LoadLabels reads one class name per line. An empty path yields the COCO
// class names.
func LoadLabels(path string) ([]string, error) {
	if path == "" {
		return append([]string(nil), cocoLabels...), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			labels = append(labels, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	return labels, nil
}

// fitLabels makes sure there is one label per model class.
func fitLabels(labels []string, classes int) []string {
	if len(labels) >= classes {
		return labels[:classes]
	}

	for i := len(labels); i < classes; i++ {
		labels = append(labels, fmt.Sprintf("class %d", i))
	}

	return labels
}
