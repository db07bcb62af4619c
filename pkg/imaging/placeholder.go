package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	placeholderBackground = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	placeholderForeground = color.RGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xff}
)

// Placeholder renders a flat PNG with a border and a centered label. It
// stands in for design frames when the design provider runs in mock mode.
func Placeholder(width, height int, label string) Image {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: placeholderBackground}, image.Point{}, draw.Src)

	for x := 0; x < width; x++ {
		canvas.Set(x, 0, placeholderForeground)
		canvas.Set(x, height-1, placeholderForeground)
	}
	for y := 0; y < height; y++ {
		canvas.Set(0, y, placeholderForeground)
		canvas.Set(width-1, y, placeholderForeground)
	}

	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  &image.Uniform{C: placeholderForeground},
		Face: face,
	}
	textWidth := drawer.MeasureString(label).Ceil()
	drawer.Dot = fixed.P((width-textWidth)/2, height/2+face.Ascent/2)
	drawer.DrawString(label)

	var buf bytes.Buffer
	// Encoding an in-memory RGBA into a buffer cannot fail.
	_ = png.Encode(&buf, canvas)

	return Image{Data: buf.Bytes(), MediaType: "image/png", SourceURL: "placeholder:" + label}
}
