// Package led blinks a status LED after each successful meter read.
package led

import (
	"time"

	"periph.io/x/conn/v3/gpio"

	"solarmatrix-go/x/logx"
)

const DefaultPulse = 200 * time.Millisecond

// Pulser drives one GPIO output high for the pulse width, then low.
type Pulser struct {
	pin   gpio.PinOut
	width time.Duration
	sleep func(time.Duration)
	log   *logx.Logger
}

func New(pin gpio.PinOut, width time.Duration) *Pulser {
	if width <= 0 {
		width = DefaultPulse
	}
	return &Pulser{pin: pin, width: width, sleep: time.Sleep, log: logx.New("led")}
}

// Pulse blocks for the pulse width. GPIO errors are logged, never returned:
// a dead LED must not cost a meter reading.
func (p *Pulser) Pulse() {
	if err := p.pin.Out(gpio.High); err != nil {
		p.log.Debugf("%s: %v", p.pin, err)
		return
	}
	p.sleep(p.width)
	if err := p.pin.Out(gpio.Low); err != nil {
		p.log.Debugf("%s: %v", p.pin, err)
	}
}

// Nop is used when no LED pin is configured.
type Nop struct{}

func (Nop) Pulse() {}
