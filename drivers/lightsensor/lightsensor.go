// Package lightsensor reads ambient light from a BH1750 on an I2C bus.
package lightsensor

import (
	"sync"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/bh1750"

	"solarmatrix-go/errcode"
)

// Sensor returns raw BH1750 counts (about 1.2 counts per lux in high
// resolution mode).
type Sensor struct {
	bus *trackingBus
	dev bh1750.Device
}

// New configures the device at addr; 0 selects the default address 0x23.
// Any periph i2c.Bus satisfies drivers.I2C.
func New(bus drivers.I2C, addr uint16) (*Sensor, error) {
	tb := &trackingBus{bus: bus}
	dev := bh1750.New(tb)
	if addr != 0 {
		dev.Address = addr
	}
	dev.Configure()
	if err := tb.take(); err != nil {
		return nil, errcode.Wrap(errcode.Sensor, "bh1750 configure", err)
	}
	return &Sensor{bus: tb, dev: dev}, nil
}

// ReadAmbientLight returns the raw count. The bh1750 driver swallows bus
// errors, so they are captured underneath it.
func (s *Sensor) ReadAmbientLight() (float64, error) {
	raw := s.dev.RawSensorData()
	if err := s.bus.take(); err != nil {
		return 0, errcode.Wrap(errcode.Sensor, "bh1750 read", err)
	}
	return float64(raw), nil
}

// trackingBus remembers the first error since the last take.
type trackingBus struct {
	bus drivers.I2C

	mu  sync.Mutex
	err error
}

func (t *trackingBus) Tx(addr uint16, w, r []byte) error {
	err := t.bus.Tx(addr, w, r)
	if err != nil {
		t.mu.Lock()
		if t.err == nil {
			t.err = err
		}
		t.mu.Unlock()
	}
	return err
}

func (t *trackingBus) take() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	err := t.err
	t.err = nil
	return err
}

// Fixed reports a constant reading; used when no sensor is fitted.
type Fixed float64

func (f Fixed) ReadAmbientLight() (float64, error) { return float64(f), nil }
