// Package ssd1306 drives a real SSD1306 monochrome OLED through periph.io,
// attached over I²C or SPI.
package ssd1306

import (
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
	"github.com/bryanchriswhite/TinyScreen/internal/logger"
)

// Panel is the part of the periph.io driver the display uses.
type Panel interface {
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	SetContrast(level byte) error
	Invert(blackTop bool) error
	Halt() error
}

var _ Panel = (*ssd1306.Dev)(nil)

// Display mirrors a monochrome canvas onto an SSD1306.
type Display struct {
	*device.Memory

	panel Panel
	bus   io.Closer
	img   *image1bit.VerticalLSB
}

// New wraps an initialised panel. bus, if not nil, is closed with the
// display.
func New(panel Panel, bus io.Closer, width, height int) (*Display, error) {
	mem, err := device.NewMemory(device.MemoryConfig{
		Width:        width,
		Height:       height,
		Colours:      2,
		Depth:        1,
		PixelAspect:  100,
		SelfEmitting: true,
	})
	if err != nil {
		return nil, err
	}
	return &Display{
		Memory: mem,
		panel:  panel,
		bus:    bus,
		img:    image1bit.NewVerticalLSB(image.Rect(0, 0, width, height)),
	}, nil
}

// SetOption stores the option and applies CONTRAST and INVERT to the
// panel right away.
func (d *Display) SetOption(name string, value int64) {
	d.Memory.SetOption(name, value)

	var err error
	switch strings.ToUpper(name) {
	case device.OptContrast:
		// option range is 0..10 like the other bindings
		level := value * 255 / 10
		err = d.panel.SetContrast(byte(max(0, min(255, level))))
	case device.OptInvert:
		err = d.panel.Invert(value != 0)
	}
	if err != nil {
		logger.WithComponent("device").Warn().Err(err).Str("option", name).Msg("Failed to apply option")
	}
}

// Update converts the canvas to the panel's bit layout and sends it.
func (d *Display) Update() error {
	if err := d.Memory.Update(); err != nil {
		return err
	}
	b := d.img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			d.img.SetBit(x, y, image1bit.Bit(d.Grey(x, y) >= 0x80))
		}
	}
	if err := d.panel.Draw(b, d.img, image.Point{}); err != nil {
		return fmt.Errorf("failed to draw to ssd1306: %w", err)
	}
	return nil
}

// Close switches the panel off and releases the bus.
func (d *Display) Close() error {
	if d.Closed() {
		return nil
	}
	errs := []error{d.panel.Halt()}
	if d.bus != nil {
		errs = append(errs, d.bus.Close())
	}
	errs = append(errs, d.Memory.Close())
	return errors.Join(errs...)
}

// Driver opens an SSD1306. Connections are "i2c:<bus>" or "spi:<port>";
// SPI also needs the data/command pin in the DC option. Options: WIDTH,
// HEIGHT, ROTATE, DC.
var Driver = device.Driver{
	Name:              "ssd1306",
	Description:       "SSD1306 OLED over I2C or SPI (periph.io)",
	DefaultConnection: "i2c:",
	Open: func(conn device.Connection, _ string, opts device.Options) (device.Device, error) {
		width, err := opts.Int("WIDTH", 128)
		if err != nil {
			return nil, err
		}
		height, err := opts.Int("HEIGHT", 64)
		if err != nil {
			return nil, err
		}
		rotated, err := opts.Bool("ROTATE", false)
		if err != nil {
			return nil, err
		}

		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("failed to initialise periph host: %w", err)
		}

		popts := ssd1306.DefaultOpts
		popts.W = width
		popts.H = height
		popts.Rotated = rotated

		switch conn.Proto {
		case "i2c", "":
			bus, err := i2creg.Open(conn.Target)
			if err != nil {
				return nil, fmt.Errorf("failed to open I2C bus %q: %w", conn.Target, err)
			}
			dev, err := ssd1306.NewI2C(bus, &popts)
			if err != nil {
				bus.Close()
				return nil, fmt.Errorf("failed to initialise ssd1306: %w", err)
			}
			return New(dev, bus, width, height)
		case "spi":
			pin := gpioreg.ByName(opts.String("DC", "GPIO25"))
			if pin == nil {
				return nil, fmt.Errorf("unknown DC pin %q", opts.String("DC", "GPIO25"))
			}
			port, err := spireg.Open(conn.Target)
			if err != nil {
				return nil, fmt.Errorf("failed to open SPI port %q: %w", conn.Target, err)
			}
			dev, err := ssd1306.NewSPI(port, pin, &popts)
			if err != nil {
				port.Close()
				return nil, fmt.Errorf("failed to initialise ssd1306: %w", err)
			}
			return New(dev, port, width, height)
		}
		return nil, fmt.Errorf("unsupported connection %q (use i2c:<bus> or spi:<port>)", conn)
	},
}
