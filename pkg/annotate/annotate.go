// Package annotate draws numbered issue markers onto screenshots.
package annotate

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"thoreinstein.com/designcheck/pkg/compare"
	rigerrors "thoreinstein.com/designcheck/pkg/errors"
	"thoreinstein.com/designcheck/pkg/imaging"
)

// Marker geometry.
const (
	MinMarkerRadius = 12
	MaxMarkerRadius = 40
	// MinOutlinePixels is the box size, in pixels, above which an outline is drawn.
	MinOutlinePixels = 8

	markerDivisor    = 40
	outlineThickness = 3
)

// LegendEntry explains one marker.
type LegendEntry struct {
	Number      int
	Severity    compare.Severity
	Description string
	Location    string
}

// Result is an annotated screenshot. When HasAnnotations is false Image is
// the input, byte for byte.
type Result struct {
	Image          imaging.Image
	Legend         []LegendEntry
	HasAnnotations bool
}

var (
	severityColors = map[compare.Severity]color.RGBA{
		compare.SeverityCritical: {R: 0xdc, G: 0x26, B: 0x26, A: 0xff},
		compare.SeverityMajor:    {R: 0xea, G: 0x58, B: 0x0c, A: 0xff},
		compare.SeverityMinor:    {R: 0xca, G: 0x8a, B: 0x04, A: 0xff},
	}
	labelColor = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Annotate numbers the issues that carry a bounding box, in input order
// starting at 1, and draws a marker for each. Issues without a box are left
// out of the image and the legend.
func Annotate(screenshot imaging.Image, issues []compare.Issue) (Result, error) {
	var marked []compare.Issue
	for _, issue := range issues {
		if issue.BoundingBox != nil {
			marked = append(marked, issue)
		}
	}
	if len(marked) == 0 {
		return Result{Image: screenshot}, nil
	}

	src, err := screenshot.Decode()
	if err != nil {
		return Result{Image: screenshot}, err
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, bounds.Min, draw.Src)

	w, h := bounds.Dx(), bounds.Dy()
	radius := MarkerRadius(w, h)

	legend := make([]LegendEntry, 0, len(marked))
	for i, issue := range marked {
		n := i + 1
		c, ok := severityColors[issue.Severity]
		if !ok {
			c = severityColors[compare.SeverityMinor]
		}

		box := issue.BoundingBox
		x := int(box.X / 100 * float64(w))
		y := int(box.Y / 100 * float64(h))
		bw := int(box.Width / 100 * float64(w))
		bh := int(box.Height / 100 * float64(h))

		if bw > MinOutlinePixels && bh > MinOutlinePixels {
			drawOutline(canvas, image.Rect(x, y, x+bw, y+bh), c)
		}
		drawMarker(canvas, image.Pt(x, y), radius, c, strconv.Itoa(n))

		legend = append(legend, LegendEntry{
			Number:      n,
			Severity:    issue.Severity,
			Description: issue.Description,
			Location:    issue.Location,
		})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return Result{Image: screenshot}, rigerrors.Wrap(err, "failed to encode annotated image")
	}

	return Result{
		Image: imaging.Image{
			Data:      buf.Bytes(),
			MediaType: "image/png",
			SourceURL: screenshot.SourceURL,
		},
		Legend:         legend,
		HasAnnotations: true,
	}, nil
}

// MarkerRadius scales the marker with the shorter image side.
func MarkerRadius(width, height int) int {
	r := min(width, height) / markerDivisor
	return max(MinMarkerRadius, min(MaxMarkerRadius, r))
}

func drawOutline(dst *image.RGBA, r image.Rectangle, c color.RGBA) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	src := &image.Uniform{C: c}
	t := outlineThickness
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), src, image.Point{}, draw.Src)
	}
}

// drawMarker draws a filled disc with a centered label. The center is kept
// inside the image so markers at the edges stay whole when possible.
func drawMarker(dst *image.RGBA, center image.Point, radius int, c color.RGBA, label string) {
	b := dst.Bounds()
	center.X = clampInt(center.X, b.Min.X+radius, b.Max.X-radius-1)
	center.Y = clampInt(center.Y, b.Min.Y+radius, b.Max.Y-radius-1)

	r2 := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy <= r2 {
				p := image.Pt(center.X+dx, center.Y+dy)
				if p.In(b) {
					dst.SetRGBA(p.X, p.Y, c)
				}
			}
		}
	}

	drawLabel(dst, center, radius, label)
}

// drawLabel renders label with the fixed 7x13 face and scales it up to fit
// the marker.
func drawLabel(dst *image.RGBA, center image.Point, radius int, label string) {
	face := basicfont.Face7x13
	textW := font.MeasureString(face, label).Ceil()
	textH := face.Height

	glyphs := image.NewRGBA(image.Rect(0, 0, textW, textH))
	d := &font.Drawer{
		Dst:  glyphs,
		Src:  &image.Uniform{C: labelColor},
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(label)

	// Fit the label inside the disc's inscribed square.
	side := radius * 7 / 5
	scale := max(1, min(side/textW, side/textH))
	w, h := textW*scale, textH*scale
	target := image.Rect(center.X-w/2, center.Y-h/2, center.X-w/2+w, center.Y-h/2+h)

	xdraw.NearestNeighbor.Scale(dst, target, glyphs, glyphs.Bounds(), xdraw.Over, nil)
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return (lo + hi) / 2
	}
	return max(lo, min(hi, v))
}
