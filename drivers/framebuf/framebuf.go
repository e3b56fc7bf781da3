// Package framebuf is an in-memory RGBA pixel buffer with bitmap-font text.
// The renderer paints into it; a panel driver presents it.
package framebuf

import (
	"image"
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
)

// Buffer is owned by one goroutine and has no locking.
type Buffer struct {
	img  *image.RGBA
	font tinyfont.Fonter
}

// New returns a black w×h buffer using the TomThumb 3x5 font.
func New(w, h int) *Buffer {
	b := &Buffer{
		img:  image.NewRGBA(image.Rect(0, 0, w, h)),
		font: &tinyfont.TomThumb,
	}
	b.Clear()
	return b
}

// SetFont replaces the text font.
func (b *Buffer) SetFont(f tinyfont.Fonter) { b.font = f }

func (b *Buffer) Size() (w, h int) {
	r := b.img.Bounds()
	return r.Dx(), r.Dy()
}

// SetPixel ignores coordinates outside the buffer.
func (b *Buffer) SetPixel(x, y int, c color.RGBA) {
	if !(image.Point{x, y}.In(b.img.Rect)) {
		return
	}
	b.img.SetRGBA(x, y, c)
}

func (b *Buffer) At(x, y int) color.RGBA { return b.img.RGBAAt(x, y) }

// Image exposes the backing image; callers must not resize it.
func (b *Buffer) Image() *image.RGBA { return b.img }

func (b *Buffer) Clear() {
	for i := 3; i < len(b.img.Pix); i += 4 {
		b.img.Pix[i-3], b.img.Pix[i-2], b.img.Pix[i-1], b.img.Pix[i] = 0, 0, 0, 0xff
	}
}

// MeasureText returns the advance width of s at the given scale.
func (b *Buffer) MeasureText(s string, scale int) int {
	_, outbox := tinyfont.LineWidth(b.font, s)
	return int(outbox) * normScale(scale)
}

// DrawText draws s with its top-left corner at (x, y).
func (b *Buffer) DrawText(s string, x, y, scale int, c color.RGBA) {
	sc := normScale(scale)
	baseline := int16(b.font.GetYAdvance()) - 1
	tinyfont.WriteLine(&scaled{b: b, ox: x, oy: y, s: sc}, b.font, 0, baseline, s, c)
}

func normScale(s int) int {
	if s < 1 {
		return 1
	}
	return s
}

// scaled adapts the buffer to drivers.Displayer for tinyfont, blowing each
// font pixel up to an s×s block offset by (ox, oy).
type scaled struct {
	b      *Buffer
	ox, oy int
	s      int
}

var _ drivers.Displayer = (*scaled)(nil)

func (d *scaled) Size() (x, y int16) {
	w, h := d.b.Size()
	return int16(w), int16(h)
}

func (d *scaled) SetPixel(x, y int16, c color.RGBA) {
	px, py := d.ox+int(x)*d.s, d.oy+int(y)*d.s
	for dy := 0; dy < d.s; dy++ {
		for dx := 0; dx < d.s; dx++ {
			d.b.SetPixel(px+dx, py+dy, c)
		}
	}
}

func (d *scaled) Display() error { return nil }
