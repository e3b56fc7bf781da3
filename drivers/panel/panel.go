// Package panel pushes a frame buffer to an APA102 LED matrix over SPI.
package panel

import (
	"fmt"
	"image"
	"math"
	"sync"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/devices/v3/apa102"

	"solarmatrix-go/errcode"
	"solarmatrix-go/x/mathx"
)

// Strip is the LED chain. *apa102.Dev satisfies it.
type Strip interface {
	Write(rgb []byte) (int, error)
	Halt() error
}

// Source is the image the panel presents. *framebuf.Buffer satisfies it.
type Source interface {
	Image() *image.RGBA
}

type Panel struct {
	src        Source
	strip      Strip
	intensity  func(uint8)
	serpentine bool

	mu         sync.Mutex
	brightness float64
	buf        []byte
}

// New wires a source to a strip. intensity, if non-nil, receives the global
// brightness; otherwise brightness is applied by scaling the RGB values.
func New(src Source, strip Strip, intensity func(uint8), serpentine bool) *Panel {
	r := src.Image().Bounds()
	return &Panel{
		src:        src,
		strip:      strip,
		intensity:  intensity,
		serpentine: serpentine,
		brightness: 1,
		buf:        make([]byte, r.Dx()*r.Dy()*3),
	}
}

// Open creates the APA102 device on port and returns a panel driving it.
func Open(port spi.Port, hz int64, src Source, serpentine bool) (*Panel, error) {
	if hz > 0 {
		if err := port.LimitSpeed(physic.Frequency(hz) * physic.Hertz); err != nil {
			return nil, errcode.Wrap(errcode.Display, "spi", err)
		}
	}
	r := src.Image().Bounds()
	opts := apa102.DefaultOpts
	opts.NumPixels = r.Dx() * r.Dy()
	dev, err := apa102.New(port, &opts)
	if err != nil {
		return nil, errcode.Wrap(errcode.Display, "apa102", err)
	}
	return New(src, dev, func(v uint8) { dev.Intensity = v }, serpentine), nil
}

// SetBrightness takes effect on the next Present.
func (p *Panel) SetBrightness(b float64) {
	p.mu.Lock()
	p.brightness = mathx.Clamp01(b)
	p.mu.Unlock()
}

// Present writes the whole source image to the strip.
func (p *Panel) Present() error {
	p.mu.Lock()
	b := p.brightness
	p.mu.Unlock()

	scale := 1.0
	if p.intensity != nil {
		p.intensity(uint8(math.Round(b * 255)))
	} else {
		scale = b
	}

	img := p.src.Image()
	r := img.Bounds()
	w, h := r.Dx(), r.Dy()
	if len(p.buf) != w*h*3 {
		p.buf = make([]byte, w*h*3)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := img.RGBAAt(r.Min.X+x, r.Min.Y+y)
			i := p.index(x, y, w) * 3
			p.buf[i] = dim(c.R, scale)
			p.buf[i+1] = dim(c.G, scale)
			p.buf[i+2] = dim(c.B, scale)
		}
	}
	if _, err := p.strip.Write(p.buf); err != nil {
		return errcode.Wrap(errcode.Display, "present", err)
	}
	return nil
}

// index maps (x, y) to the position along the chain. Serpentine wiring
// runs odd rows right to left.
func (p *Panel) index(x, y, w int) int {
	if p.serpentine && y%2 == 1 {
		return y*w + (w - 1 - x)
	}
	return y*w + x
}

func dim(v uint8, s float64) uint8 {
	if s >= 1 {
		return v
	}
	return uint8(math.Round(float64(v) * s))
}

func (p *Panel) Close() error {
	if err := p.strip.Halt(); err != nil {
		return fmt.Errorf("panel: %w", err)
	}
	return nil
}

// Discard is a Strip for hosts without a matrix attached.
type Discard struct{}

func (Discard) Write(b []byte) (int, error) { return len(b), nil }
func (Discard) Halt() error                 { return nil }
