package device

import (
	"image"

	"golang.org/x/image/draw"
)

// EmulatedSize returns the on-screen size of an emulated panel drawn with
// scale screen pixels per device pixel, stretched vertically by its pixel
// aspect.
func (m *Memory) EmulatedSize(scale int) (w, h int) {
	if scale < 1 {
		scale = 1
	}
	w = m.Width() * scale
	h = m.Height() * scale * m.PixelAspect() / 100
	if h < 1 {
		h = 1
	}
	return w, h
}

// Render paints the canvas over the whole of dst with nearest neighbour
// magnification. INVERT swaps colours and a non self-emitting panel with
// its BACKLIGHT off is dimmed.
func (m *Memory) Render(dst *image.RGBA) {
	src := m.Image()
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	invert, _ := m.Option(OptInvert)
	backlight, _ := m.Option(OptBacklight)
	selfEmitting, _ := m.Option(OptSelfEmitting)
	dim := selfEmitting == 0 && backlight == 0
	if invert == 0 && !dim {
		return
	}

	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := dst.Pix[dst.PixOffset(b.Min.X, y):dst.PixOffset(b.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			for c := 0; c < 3; c++ {
				v := row[i+c]
				if invert != 0 {
					v = 0xFF - v
				}
				if dim {
					v = uint8(uint16(v) * 5 / 8)
				}
				row[i+c] = v
			}
		}
	}
}
