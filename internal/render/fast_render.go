package render

import (
	"image"
	"image/color"
	"math"
)

// Blender draws alpha-blended primitives straight into an RGBA image.
// Effects are redrawn every frame, so this skips gg's path machinery.
type Blender struct {
	pix    []byte
	width  int
	height int
	stride int
}

// NewBlender wraps an image's pixel buffer
func NewBlender(img *image.RGBA) *Blender {
	b := img.Bounds()
	return &Blender{
		pix:    img.Pix,
		width:  b.Dx(),
		height: b.Dy(),
		stride: img.Stride,
	}
}

// blend mixes c over the pixel at byte offset idx; the destination stays opaque
func (r *Blender) blend(idx int, c color.RGBA) {
	if c.A == 255 {
		r.pix[idx] = c.R
		r.pix[idx+1] = c.G
		r.pix[idx+2] = c.B
		r.pix[idx+3] = 255
		return
	}
	srcA := float64(c.A) / 255.0
	invA := 1.0 - srcA
	r.pix[idx] = uint8(float64(c.R)*srcA + float64(r.pix[idx])*invA)
	r.pix[idx+1] = uint8(float64(c.G)*srcA + float64(r.pix[idx+1])*invA)
	r.pix[idx+2] = uint8(float64(c.B)*srcA + float64(r.pix[idx+2])*invA)
	r.pix[idx+3] = 255
}

// FillRect blends a filled rectangle, clipped to the image
func (r *Blender) FillRect(x, y, w, h int, c color.RGBA) {
	if c.A == 0 {
		return
	}
	x1, y1 := max(0, x), max(0, y)
	x2, y2 := min(r.width, x+w), min(r.height, y+h)
	for py := y1; py < y2; py++ {
		row := py * r.stride
		for px := x1; px < x2; px++ {
			r.blend(row+px*4, c)
		}
	}
}

// FillCircle blends a filled circle
func (r *Blender) FillCircle(cx, cy int, radius float64, c color.RGBA) {
	r.ring(cx, cy, radius, 0, c)
}

// Ring blends a circle outline of the given width
func (r *Blender) Ring(cx, cy int, radius float64, lineWidth int, c color.RGBA) {
	inner := max(0, radius-float64(lineWidth)/2)
	r.ring(cx, cy, radius+float64(lineWidth)/2, inner, c)
}

// ring fills the annulus inner <= d <= outer, scanline by scanline
func (r *Blender) ring(cx, cy int, outer, inner float64, c color.RGBA) {
	if c.A == 0 || outer <= 0 {
		return
	}
	outerSq, innerSq := outer*outer, inner*inner
	rad := int(outer + 0.5)
	y1 := max(0, cy-rad)
	y2 := min(r.height, cy+rad+1)

	for py := y1; py < y2; py++ {
		dy := float64(py - cy)
		dySq := dy * dy
		if dySq > outerSq {
			continue
		}
		extent := math.Sqrt(outerSq - dySq)
		x1 := max(0, cx-int(extent+0.5))
		x2 := min(r.width, cx+int(extent+0.5)+1)

		row := py * r.stride
		for px := x1; px < x2; px++ {
			dx := float64(px - cx)
			d := dx*dx + dySq
			if d <= outerSq && d >= innerSq {
				r.blend(row+px*4, c)
			}
		}
	}
}

// HLine blends a horizontal run of pixels, endpoints included
func (r *Blender) HLine(x1, x2, y int, c color.RGBA) {
	if y < 0 || y >= r.height {
		return
	}
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	x1, x2 = max(0, x1), min(r.width-1, x2)
	row := y * r.stride
	for x := x1; x <= x2; x++ {
		r.blend(row+x*4, c)
	}
}

// withAlpha scales a color's alpha by a in [0, 1]
func withAlpha(c color.RGBA, a float64) color.RGBA {
	c.A = uint8(math.Max(0, math.Min(1, a)) * float64(c.A))
	return c
}
