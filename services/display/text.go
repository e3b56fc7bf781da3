package display

import (
	"math"
	"strconv"

	"solarmatrix-go/types"
)

// LabelY is the top row of the wattage labels.
const LabelY = 2

var outline = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// DrawOutlinedText draws text in black at the eight surrounding offsets and
// then in white on top, so it stays legible on any background.
func (r *Renderer) DrawOutlinedText(text string, x, y, scale int) {
	for _, d := range outline {
		r.c.DrawText(text, x+d[0], y+d[1], scale, Black)
	}
	r.c.DrawText(text, x, y, scale, White)
}

// MeasureText returns the rendered width of text in pixels.
func (r *Renderer) MeasureText(text string, scale int) int {
	return r.c.MeasureText(text, scale)
}

// LabelX centres a label of width textW within its quarter-of-the-way anchor.
func LabelX(side types.Side, displayW, textW int) int {
	anchor := float64(displayW) / 4
	if side == types.SideSolar {
		anchor *= 3
	}
	return int(anchor - float64(textW)/2 + 1)
}

// FormatWatts renders a reading rounded to whole watts. NaN and infinities render as "--".
func FormatWatts(w float64) string {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return "--"
	}
	return strconv.FormatInt(int64(math.Round(w)), 10)
}

// DrawLabel writes the rounded reading centred over its zone.
func (r *Renderer) DrawLabel(reading types.PowerReading, scale int) string {
	text := FormatWatts(reading.Watts)
	w, _ := r.c.Size()
	x := LabelX(reading.Side, w, r.MeasureText(text, scale))
	r.DrawOutlinedText(text, x, LabelY, scale)
	return text
}
