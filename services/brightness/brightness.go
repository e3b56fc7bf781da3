// Package brightness turns raw ambient-light samples into a smoothed panel
// brightness.
package brightness

import (
	"math"

	"solarmatrix-go/types"
	"solarmatrix-go/x/mathx"
)

const (
	DefaultMinSensor     = 50.0
	DefaultMaxSensor     = 400.0
	DefaultMinBrightness = 0.2
	DefaultMaxBrightness = 0.7
	DefaultSmoothing     = 0.1
)

// Params are the sensor window, the output window and the EMA weight.
type Params struct {
	MinSensor, MaxSensor         float64
	MinBrightness, MaxBrightness float64
	Alpha                        float64
}

// ParamsFrom fills unset or invalid fields of cfg with the defaults.
func ParamsFrom(cfg types.BrightnessConfig) Params {
	p := Params{
		MinSensor:     cfg.MinSensor,
		MaxSensor:     cfg.MaxSensor,
		MinBrightness: cfg.MinBrightness,
		MaxBrightness: cfg.MaxBrightness,
		Alpha:         cfg.Smoothing,
	}
	if !(p.MaxSensor > p.MinSensor) {
		p.MinSensor, p.MaxSensor = DefaultMinSensor, DefaultMaxSensor
	}
	if !(p.MaxBrightness > 0) || p.MaxBrightness > 1 || p.MinBrightness < 0 || p.MinBrightness > p.MaxBrightness {
		p.MinBrightness, p.MaxBrightness = DefaultMinBrightness, DefaultMaxBrightness
	}
	if !(p.Alpha > 0) || p.Alpha > 1 {
		p.Alpha = DefaultSmoothing
	}
	return p
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params { return ParamsFrom(types.BrightnessConfig{}) }

// Target maps a raw reading into [MinBrightness, MaxBrightness] without
// smoothing. NaN is treated as the darkest reading.
func (p Params) Target(raw float64) float64 {
	if math.IsNaN(raw) {
		raw = p.MinSensor
	}
	return mathx.MapRange(raw, p.MinSensor, p.MaxSensor, p.MinBrightness, p.MaxBrightness)
}

// Controller holds the smoothed brightness. It starts at 0 and belongs to the
// display loop goroutine.
type Controller struct {
	p   Params
	cur float64
}

func New(p Params) *Controller { return &Controller{p: p} }

// Update folds one raw sample into the running average and returns the new value.
func (c *Controller) Update(raw float64) float64 {
	t := c.p.Target(raw)
	c.cur = c.p.Alpha*t + (1-c.p.Alpha)*c.cur
	return c.cur
}

func (c *Controller) Brightness() float64 { return c.cur }
