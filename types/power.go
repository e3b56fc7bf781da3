package types

// ------------------------
// Meter readings
// ------------------------

// Side selects one half of the two-zone display.
type Side int

const (
	SideGrid  Side = 0
	SideSolar Side = 1
)

func (s Side) String() string {
	switch s {
	case SideGrid:
		return "grid"
	case SideSolar:
		return "solar"
	default:
		return "unknown"
	}
}

// PowerReading is one frame-scoped meter value in watts.
// Grid is negative while exporting; solar is non-negative.
type PowerReading struct {
	Side  Side    `json:"side"`
	Watts float64 `json:"watts"`
}

// ColorSample is an HSV triple with every channel in [0,1].
type ColorSample struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// WithHue returns a copy with the hue shifted by d. The result is not wrapped or clamped.
func (c ColorSample) WithHue(d float64) ColorSample {
	c.H += d
	return c
}
