package imaging

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const lineWidth = 2

// palette is indexed by class id.
var palette = []color.RGBA{
	{0xFF, 0x38, 0x38, 0xFF}, {0xFF, 0x9D, 0x97, 0xFF}, {0xFF, 0x70, 0x1F, 0xFF}, {0xFF, 0xB2, 0x1D, 0xFF},
	{0xCF, 0xD2, 0x31, 0xFF}, {0x48, 0xF9, 0x0A, 0xFF}, {0x92, 0xCC, 0x17, 0xFF}, {0x3D, 0xDB, 0x86, 0xFF},
	{0x1A, 0x93, 0x34, 0xFF}, {0x00, 0xD4, 0xBB, 0xFF}, {0x2C, 0x99, 0xA8, 0xFF}, {0x00, 0xC2, 0xFF, 0xFF},
	{0x34, 0x45, 0x93, 0xFF}, {0x64, 0x73, 0xFF, 0xFF}, {0x00, 0x18, 0xEC, 0xFF}, {0x84, 0x38, 0xFF, 0xFF},
	{0x52, 0x00, 0x85, 0xFF}, {0xCB, 0x38, 0xFF, 0xFF}, {0xFF, 0x95, 0xC8, 0xFF}, {0xFF, 0x37, 0xC7, 0xFF},
}

// Annotation is one box to draw.
type Annotation struct {
	Rect    image.Rectangle
	Caption string
	Class   int
}

func Color(class int) color.RGBA {
	if class < 0 {
		class = -class
	}

	return palette[class%len(palette)]
}

// Annotate draws boxes and captions onto a copy of frame.
func Annotate(frame image.Image, annotations []Annotation) *image.RGBA {
	dst := ToRGB(frame)
	bounds := dst.Bounds()

	for _, a := range annotations {
		r := a.Rect.Intersect(bounds)
		if r.Empty() {
			continue
		}

		c := Color(a.Class)
		drawRect(dst, r, c)

		if a.Caption != "" {
			drawCaption(dst, r, a.Caption, c)
		}
	}

	return dst
}

func drawRect(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	src := image.NewUniform(c)
	w := lineWidth

	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+w),
		image.Rect(r.Min.X, r.Max.Y-w, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+w, r.Max.Y),
		image.Rect(r.Max.X-w, r.Min.Y, r.Max.X, r.Max.Y),
	}

	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}

func drawCaption(dst *image.RGBA, box image.Rectangle, caption string, bg color.RGBA) {
	face := basicfont.Face7x13
	pad := 2
	width := font.MeasureString(face, caption).Ceil() + 2*pad
	height := face.Height + pad

	// The tag sits above the box, or inside it when the box touches the top edge.
	tag := image.Rect(box.Min.X, box.Min.Y-height, box.Min.X+width, box.Min.Y)
	if tag.Min.Y < dst.Bounds().Min.Y {
		tag = tag.Add(image.Pt(0, height))
	}

	tag = tag.Intersect(dst.Bounds())
	if tag.Empty() {
		return
	}

	draw.Draw(dst, tag, image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColor(bg)),
		Face: face,
		Dot:  fixed.P(tag.Min.X+pad, tag.Min.Y+face.Ascent+pad/2),
	}
	d.DrawString(caption)
}

// textColor picks black or white, whichever reads better on bg.
func textColor(bg color.RGBA) color.Color {
	luma := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luma > 150 {
		return color.Black
	}

	return color.White
}
