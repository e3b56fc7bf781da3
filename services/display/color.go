package display

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"solarmatrix-go/types"
	"solarmatrix-go/x/mathx"
)

var (
	Black = color.RGBA{0, 0, 0, 255}
	White = color.RGBA{255, 255, 255, 255}
)

// ToRGBA converts an HSV sample (all channels in [0,1]) to an opaque RGBA pen.
// Hue wraps around the wheel; saturation and value are clamped.
func ToRGBA(c types.ColorSample) color.RGBA {
	h := c.H
	if math.IsNaN(h) || math.IsInf(h, 0) {
		h = 0
	}
	h = math.Mod(h, 1)
	if h < 0 {
		h++
	}
	r, g, b := colorful.Hsv(h*360, mathx.Clamp01(c.S), mathx.Clamp01(c.V)).Clamped().RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}
