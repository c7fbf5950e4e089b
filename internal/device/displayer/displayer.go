// Package displayer adapts any tinygo.org/x/drivers Displayer, such as an
// ST7735 or SSD1306 driven from a microcontroller, to device.Device.
package displayer

import (
	"image/color"

	"tinygo.org/x/drivers"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
	"github.com/bryanchriswhite/TinyScreen/internal/frame"
)

// Config describes the panel behind the Displayer, whose size is taken
// from the driver itself.
type Config struct {
	Colours      int
	Depth        int
	PixelAspect  int
	SelfEmitting bool
}

// Display keeps a canvas and pushes only changed pixels to the driver on
// Update.
type Display struct {
	*device.Memory

	drv  drivers.Displayer
	sent []uint32
}

// New wraps drv.
func New(drv drivers.Displayer, cfg Config) (*Display, error) {
	w, h := drv.Size()
	mem, err := device.NewMemory(device.MemoryConfig{
		Width:        int(w),
		Height:       int(h),
		Colours:      cfg.Colours,
		Depth:        cfg.Depth,
		PixelAspect:  cfg.PixelAspect,
		SelfEmitting: cfg.SelfEmitting,
	})
	if err != nil {
		return nil, err
	}
	return &Display{
		Memory: mem,
		drv:    drv,
		sent:   make([]uint32, int(w)*int(h)),
	}, nil
}

// ClipArea blits a rectangle of a packed buffer.
func (d *Display) ClipArea(sx, sy, w, h, srcX, srcY, srcW, srcH int, format frame.Format, src []byte) error {
	return d.Blit(sx, sy, w, h, srcX, srcY, srcW, srcH, format, src)
}

// Update sends the pixels that changed since the last Update, then asks
// the driver to display.
func (d *Display) Update() error {
	if err := d.Memory.Update(); err != nil {
		return err
	}
	w := d.Width()
	for y := 0; y < d.Height(); y++ {
		for x := 0; x < w; x++ {
			c := d.Colour(x, y)
			if d.sent[y*w+x] == c {
				continue
			}
			d.sent[y*w+x] = c
			d.drv.SetPixel(int16(x), int16(y), color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 0xFF})
		}
	}
	return d.drv.Display()
}
