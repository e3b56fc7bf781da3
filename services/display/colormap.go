package display

import (
	"math"

	"solarmatrix-go/types"
	"solarmatrix-go/x/mathx"
)

// Hue and channel constants for the two zones. Hues are fractions of the colour wheel.
const (
	SolarHue        = 0.18
	SolarSaturation = 1.0
	SolarValue      = 1.0

	PositiveGridHue = 0.05 // importing from the grid
	NegativeGridHue = 0.38 // exporting to the grid
	GridSaturation  = 1.0
	GridValue       = 1.0

	// HueOffset shifts the far end of each gradient.
	HueOffset = -0.1

	DefaultPeakSolar = 3000.0
	DefaultWorstGrid = 1000.0
)

// Scale blends a linear and a square-root response of v against ref:
// 0.5 * (v/ref + sqrt(v/ref)). It is not clamped; callers clamp.
func Scale(v, ref float64) float64 {
	p := v / ref
	return 0.5 * (p + math.Sqrt(p))
}

// Mapper turns power readings into gradient colours.
type Mapper struct {
	PeakSolar float64 // W, reference for solar and for export
	WorstGrid float64 // W, reference for import
}

// NewMapper substitutes defaults for non-positive references.
func NewMapper(peakSolar, worstGrid float64) Mapper {
	if !(peakSolar > 0) {
		peakSolar = DefaultPeakSolar
	}
	if !(worstGrid > 0) {
		worstGrid = DefaultWorstGrid
	}
	return Mapper{PeakSolar: peakSolar, WorstGrid: worstGrid}
}

// GridColor picks the import hue for w >= 0 and the export hue for w < 0.
// The value channel is always clamped to [0,1].
func (m Mapper) GridColor(w float64) types.ColorSample {
	if w < 0 {
		return types.ColorSample{
			H: NegativeGridHue,
			S: GridSaturation,
			V: mathx.Clamp01(GridValue * Scale(-w, m.PeakSolar)),
		}
	}
	return types.ColorSample{
		H: PositiveGridHue,
		S: GridSaturation,
		V: mathx.Clamp01(GridValue * Scale(w, m.WorstGrid)),
	}
}

// SolarColor uses a fixed hue with the value scaled against peak solar.
func (m Mapper) SolarColor(w float64) types.ColorSample {
	return types.ColorSample{
		H: SolarHue,
		S: SolarSaturation,
		V: mathx.Clamp01(SolarValue * Scale(w, m.PeakSolar)),
	}
}

// Color dispatches on the reading's side.
func (m Mapper) Color(r types.PowerReading) types.ColorSample {
	if r.Side == types.SideGrid {
		return m.GridColor(r.Watts)
	}
	return m.SolarColor(r.Watts)
}

// Endpoints returns the start and end colours of a zone gradient.
func Endpoints(c types.ColorSample) (start, end types.ColorSample) {
	return c, c.WithHue(HueOffset)
}
