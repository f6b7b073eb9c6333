package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrUnknownFormat = errors.New("unknown image format")

// Sniff returns the MIME type of data, detected from its content.
func Sniff(data []byte) string {
	return mimetype.Detect(data).String()
}

func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// DecodeConfig reads the format and dimensions of data without decoding the
// pixels.
func DecodeConfig(data []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("%w: %s (%v)", ErrUnknownFormat, Sniff(data), err)
	}

	return cfg, format, nil
}

// Decode decodes data with any of the registered formats.
func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s (%v)", ErrUnknownFormat, Sniff(data), err)
	}

	return img, format, nil
}

// ToRGB returns an opaque copy of img anchored at the origin. Alpha is
// dropped and the straight (non premultiplied) colour kept, the way an
// RGBA to RGB conversion does in PIL.
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

		return dst
	}

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			dst.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}

	return dst
}

// Fit shrinks img to fit inside a size x size square, keeping the aspect
// ratio. Images that already fit are returned as is.
func Fit(img *image.RGBA, size int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() <= size && b.Dy() <= size {
		return img
	}

	fitted := resize.Thumbnail(uint(size), uint(size), img, resize.Lanczos3)
	if rgba, ok := fitted.(*image.RGBA); ok {
		return rgba
	}

	return ToRGB(fitted)
}

func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return buf.Bytes(), nil
}

func Base64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func DataURL(mimeType, b64 string) string {
	return "data:" + mimeType + ";base64," + b64
}
