package lightsensor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solarmatrix-go/errcode"
)

type fakeI2C struct {
	addr  uint16
	value [2]byte
	err   error
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.addr = addr
	if f.err != nil {
		return f.err
	}
	copy(r, f.value[:])
	return nil
}

func TestReadAmbientLight(t *testing.T) {
	bus := &fakeI2C{value: [2]byte{0x01, 0x2c}}
	s, err := New(bus, 0x5c)
	require.NoError(t, err)

	v, err := s.ReadAmbientLight()
	require.NoError(t, err)
	assert.Equal(t, 300.0, v)
	assert.Equal(t, uint16(0x5c), bus.addr)
}

func TestReadErrorSurfaces(t *testing.T) {
	bus := &fakeI2C{}
	s, err := New(bus, 0)
	require.NoError(t, err)

	bus.err = errors.New("i2c: nack")
	_, err = s.ReadAmbientLight()
	assert.Equal(t, errcode.Sensor, errcode.Of(err))

	bus.err = nil
	_, err = s.ReadAmbientLight()
	assert.NoError(t, err)
}

func TestConfigureError(t *testing.T) {
	_, err := New(&fakeI2C{err: errors.New("no device")}, 0)
	assert.Equal(t, errcode.Sensor, errcode.Of(err))
}
