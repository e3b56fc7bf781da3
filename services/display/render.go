package display

import (
	"image/color"

	"solarmatrix-go/types"
	"solarmatrix-go/x/mathx"
)

// Canvas is the pixel buffer the renderer paints into. Presenting it is
// somebody else's job.
type Canvas interface {
	Size() (w, h int)
	SetPixel(x, y int, c color.RGBA)
	MeasureText(s string, scale int) int
	DrawText(s string, x, y, scale int, c color.RGBA)
}

// Renderer draws the two-zone layout: a mirrored gradient per side, a
// black divider on the centre column and outlined labels.
type Renderer struct {
	c Canvas
}

func NewRenderer(c Canvas) *Renderer { return &Renderer{c: c} }

// Steps returns q evenly spaced values from start towards end (end itself is
// not reached), each clamped to [0,1].
func Steps(start, end float64, q int) []float64 {
	if q < 1 {
		q = 1
	}
	out := make([]float64, q)
	for i := range out {
		out[i] = mathx.Clamp01(mathx.Lerp(start, end, float64(i)/float64(q)))
	}
	return out
}

// GradientColors returns the q HSV samples of one ramp.
func GradientColors(start, end types.ColorSample, q int) []types.ColorSample {
	hs := Steps(start.H, end.H, q)
	ss := Steps(start.S, end.S, q)
	vs := Steps(start.V, end.V, q)
	out := make([]types.ColorSample, len(hs))
	for i := range out {
		out[i] = types.ColorSample{H: hs[i], S: ss[i], V: vs[i]}
	}
	return out
}

// DrawGradient paints one half of the display. Step i lands on column
// offset+i and on its mirror half+offset-i-1, so each side ramps outwards
// from its edges towards its middle. The centre column is left black.
func (r *Renderer) DrawGradient(start, end types.ColorSample, side types.Side) {
	w, h := r.c.Size()
	half := w / 2
	q := mathx.Max(w/4, 1)
	offset := (half + 1) * int(side)

	for i, cs := range GradientColors(start, end, q) {
		pen := ToRGBA(cs)
		for y := 0; y < h; y++ {
			r.set(offset+i, y, pen)
			r.set(half+offset-i-1, y, pen)
		}
	}

	for y := 0; y < h; y++ {
		r.set(half, y, Black)
	}
}

func (r *Renderer) set(x, y int, c color.RGBA) {
	w, h := r.c.Size()
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	r.c.SetPixel(x, y, c)
}

// DrawZone maps a reading to its colour and paints that side's gradient.
func (r *Renderer) DrawZone(m Mapper, reading types.PowerReading) types.ColorSample {
	c := m.Color(reading)
	start, end := Endpoints(c)
	r.DrawGradient(start, end, reading.Side)
	return c
}
