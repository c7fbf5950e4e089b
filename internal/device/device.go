// Package device defines the capability set the renderer needs from a
// display and the shared pieces concrete bindings are built from.
package device

import (
	"context"
	"errors"

	"github.com/bryanchriswhite/TinyScreen/internal/frame"
)

// ErrSetup marks failures while opening or initialising a display.
var ErrSetup = errors.New("device setup failed")

// Well-known option names. Bindings may accept more.
const (
	OptBacklight    = "BACKLIGHT"
	OptSelfEmitting = "SELFEMITTING"
	OptContrast     = "CONTRAST"
	OptInvert       = "INVERT"
	OptRotate       = "ROTATE"
)

// ARGB colours used for polarity.
const (
	ColourBlack uint32 = 0xFF000000
	ColourWhite uint32 = 0xFFFFFFFF
)

// Device is a display canvas with per-pixel access.
//
// Pixel writes may be buffered; only Update guarantees they reach the
// hardware. Writes outside the canvas are ignored.
type Device interface {
	Width() int
	Height() int
	// Colours is the number of distinct colours or grey levels.
	Colours() int
	// Depth is the colour depth in bits.
	Depth() int
	// PixelAspect is the device-pixel height:width ratio scaled by 100.
	PixelAspect() int

	IsOption(name string) bool
	Option(name string) (int64, bool)
	SetOption(name string, value int64)

	Clear()
	SetColour(x, y int, c uint32)
	SetGrey(x, y int, g uint8)
	Colour(x, y int) uint32

	Update() error
	Close() error
}

// ClipAreaer is implemented by devices with a rectangle blit. Callers must
// probe for it with a type assertion.
type ClipAreaer interface {
	// ClipArea draws the w x h rectangle at (sx, sy) from a srcW x srcH
	// buffer, starting at (srcX, srcY) inside that buffer.
	ClipArea(sx, sy, w, h, srcX, srcY, srcW, srcH int, format frame.Format, src []byte) error
}

// Profile is the immutable description of an opened device.
type Profile struct {
	Width        int  `json:"width"`
	Height       int  `json:"height"`
	Colours      int  `json:"colours"`
	Depth        int  `json:"depth"`
	PixelAspect  int  `json:"pixel_aspect"`
	SelfEmitting bool `json:"self_emitting"`
	ClipArea     bool `json:"cliparea"`
}

// ProfileOf queries d once.
func ProfileOf(d Device) Profile {
	p := Profile{
		Width:       d.Width(),
		Height:      d.Height(),
		Colours:     d.Colours(),
		Depth:       d.Depth(),
		PixelAspect: d.PixelAspect(),
	}
	if v, ok := d.Option(OptSelfEmitting); ok && v != 0 {
		p.SelfEmitting = true
	}
	_, p.ClipArea = d.(ClipAreaer)
	return p
}

// TrueColour reports whether the device is rendered by direct RGB blit.
func (p Profile) TrueColour() bool {
	return p.Depth >= 8
}

// Polarity returns the foreground and background colours. Self-emitting
// displays draw white on black, everything else black on white.
func (p Profile) Polarity() (fg, bg uint32) {
	if p.SelfEmitting {
		return ColourWhite, ColourBlack
	}
	return ColourBlack, ColourWhite
}

// Looper is implemented by displays whose event loop must run on the main
// goroutine, such as desktop windows. Loop runs work on another goroutine
// and returns when either finishes.
type Looper interface {
	Loop(ctx context.Context, work func(ctx context.Context) error) error
}
