package onnx

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/SeaCloudHub/objdetect/domain/detection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchorCount(t *testing.T) {
	assert.Equal(t, 8400, anchorCount(640))
	assert.Equal(t, 2100, anchorCount(320))
}

func TestPreprocess(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	input := preprocess(img, 16)
	require.Len(t, input, 3*16*16)

	stride := 16 * 16
	for i := 0; i < stride; i++ {
		assert.InDelta(t, 1.0, input[i], 0.01)
		assert.InDelta(t, 0.0, input[stride+i], 0.01)
		assert.InDelta(t, 0.0, input[2*stride+i], 0.01)
	}
}

// tensor builds a [4+classes, anchors] output with one prediction per row.
func tensor(classes int, preds [][]float32) []float32 {
	n := len(preds)
	out := make([]float32, (4+classes)*n)
	for i, p := range preds {
		for j, v := range p {
			out[j*n+i] = v
		}
	}

	return out
}

func TestDecode(t *testing.T) {
	l := layout{classes: 2, anchors: 3, inputSize: 100}
	out := tensor(2, [][]float32{
		{50, 50, 20, 20, 0.9, 0.1},
		{10, 10, 10, 10, 0.2, 0.3},
		{95, 95, 20, 20, 0.1, 0.8},
	})

	dets := decode(out, l, []string{"cat", "dog"}, 200, 100, 0.5)
	require.Len(t, dets, 2)

	assert.Equal(t, "cat", dets[0].Label)
	assert.Equal(t, 0, dets[0].ClassID)
	assert.InDelta(t, 0.9, dets[0].Confidence, 1e-6)
	assert.Equal(t, detection.Box{X1: 80, Y1: 40, X2: 120, Y2: 60}, dets[0].Box)

	assert.Equal(t, "dog", dets[1].Label)
	assert.Equal(t, 200.0, dets[1].Box.X2)
	assert.Equal(t, 100.0, dets[1].Box.Y2)
}

func TestDecodeShortOutput(t *testing.T) {
	l := layout{classes: 2, anchors: 3, inputSize: 100}
	assert.Empty(t, decode(make([]float32, 5), l, nil, 100, 100, 0.1))
}

func TestNMS(t *testing.T) {
	dets := []detection.Detection{
		{ClassID: 0, Confidence: 0.6, Box: detection.Box{X1: 1, Y1: 1, X2: 11, Y2: 11}},
		{ClassID: 0, Confidence: 0.9, Box: detection.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}},
		{ClassID: 1, Confidence: 0.7, Box: detection.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}},
		{ClassID: 0, Confidence: 0.5, Box: detection.Box{X1: 50, Y1: 50, X2: 60, Y2: 60}},
	}

	kept := nms(dets, 0.5, 0)
	require.Len(t, kept, 3)
	assert.InDelta(t, 0.9, kept[0].Confidence, 1e-6)
	assert.InDelta(t, 0.7, kept[1].Confidence, 1e-6)
	assert.InDelta(t, 0.5, kept[2].Confidence, 1e-6)

	assert.Len(t, nms(dets, 0.5, 1), 1)
}

func TestLoadLabels(t *testing.T) {
	labels, err := LoadLabels("")
	require.NoError(t, err)
	assert.Len(t, labels, 80)
	assert.Equal(t, "person", labels[0])

	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("helmet\n\n vest \n"), 0o600))

	labels, err = LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"helmet", "vest"}, labels)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestFitLabels(t *testing.T) {
	assert.Equal(t, []string{"a"}, fitLabels([]string{"a", "b"}, 1))
	assert.Equal(t, []string{"a", "class 1", "class 2"}, fitLabels([]string{"a"}, 3))
}

func TestDefaultPoolSize(t *testing.T) {
	size := DefaultPoolSize()
	assert.GreaterOrEqual(t, size, 1)
	assert.LessOrEqual(t, size, MaxPoolSize)
}
