// Package app runs the frame and brightness-tick loop that ties acquisition,
// rendering and the panel together.
package app

import (
	"context"
	"errors"
	"time"

	"solarmatrix-go/bus"
	"solarmatrix-go/services/brightness"
	"solarmatrix-go/services/display"
	"solarmatrix-go/types"
	"solarmatrix-go/x/logx"
	"solarmatrix-go/x/timex"
)

const (
	DefaultFrame = 3 * time.Second
	DefaultTick  = 100 * time.Millisecond
)

var TopicFrame = bus.T("telemetry", "frame")

// Acquirer returns one reading per call. *meter.Client satisfies it.
type Acquirer interface {
	Fetch(ctx context.Context, url string) (float64, error)
}

// Panel presents the shared pixel buffer at a global brightness.
type Panel interface {
	SetBrightness(b float64)
	Present() error
}

type LightSensor interface {
	ReadAmbientLight() (float64, error)
}

type Sleeper func(time.Duration)

type Options struct {
	URLSolar  string
	URLGrid   string
	Frame     time.Duration
	Tick      time.Duration
	TextScale int
}

type Deps struct {
	Meter      Acquirer
	Renderer   *display.Renderer
	Mapper     display.Mapper
	Brightness *brightness.Controller
	Sensor     LightSensor
	Panel      Panel
	Sleep      Sleeper         // defaults to time.Sleep
	Conn       *bus.Connection // optional; receives FrameSummary
}

// Loop is driven by a single goroutine.
type Loop struct {
	d     Deps
	opt   Options
	ticks int
	log   *logx.Logger

	lastSensor float64
}

func New(d Deps, opt Options) *Loop {
	if opt.Frame <= 0 {
		opt.Frame = DefaultFrame
	}
	if opt.Tick <= 0 {
		opt.Tick = DefaultTick
	}
	if opt.TextScale < 1 {
		opt.TextScale = 1
	}
	if d.Sleep == nil {
		d.Sleep = time.Sleep
	}
	return &Loop{
		d:     d,
		opt:   opt,
		ticks: timex.TicksPer(opt.Frame, opt.Tick),
		log:   logx.New("app"),
	}
}

// TicksPerFrame is how many brightness ticks run inside one frame.
func (l *Loop) TicksPerFrame() int { return l.ticks }

// Run repeats frames until ctx is cancelled or acquisition gives up.
// Cancellation returns nil.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Infof("running: frame %s, tick %s, %d ticks/frame", l.opt.Frame, l.opt.Tick, l.ticks)
	for ctx.Err() == nil {
		err := l.RunFrame(ctx)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			return err
		}
	}
	return nil
}

// RunFrame fetches both readings, repaints, runs the brightness ticks and
// publishes a summary.
func (l *Loop) RunFrame(ctx context.Context) error {
	solar, err := l.d.Meter.Fetch(ctx, l.opt.URLSolar)
	if err != nil {
		return err
	}
	grid, err := l.d.Meter.Fetch(ctx, l.opt.URLGrid)
	if err != nil {
		return err
	}

	gridR := types.PowerReading{Side: types.SideGrid, Watts: grid}
	solarR := types.PowerReading{Side: types.SideSolar, Watts: solar}
	l.d.Renderer.DrawZone(l.d.Mapper, gridR)
	l.d.Renderer.DrawZone(l.d.Mapper, solarR)
	l.d.Renderer.DrawLabel(gridR, l.opt.TextScale)
	l.d.Renderer.DrawLabel(solarR, l.opt.TextScale)

	for i := 0; i < l.ticks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.tick()
	}

	sum := types.FrameSummary{
		Solar:      solar,
		Grid:       grid,
		Sensor:     l.lastSensor,
		Brightness: l.d.Brightness.Brightness(),
		TS:         timex.NowMs(),
	}
	l.log.Debugf("frame: solar %.0f W, grid %.0f W, sensor %.0f, brightness %.3f",
		sum.Solar, sum.Grid, sum.Sensor, sum.Brightness)
	if l.d.Conn != nil {
		l.d.Conn.Publish(l.d.Conn.NewMessage(TopicFrame, sum, true))
	}

	l.d.Sleep(l.opt.Tick)
	return nil
}

func (l *Loop) tick() {
	if raw, err := l.d.Sensor.ReadAmbientLight(); err != nil {
		l.log.Warnf("light sensor: %v", err)
	} else {
		l.lastSensor = raw
		l.d.Brightness.Update(raw)
	}
	l.d.Panel.SetBrightness(l.d.Brightness.Brightness())
	if err := l.d.Panel.Present(); err != nil {
		l.log.Warnf("present: %v", err)
	}
	l.d.Sleep(l.opt.Tick)
}
