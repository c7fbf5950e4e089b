// Package render turns a scaled intermediate buffer into device pixel
// writes.
package render

import (
	"fmt"
	"image"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
)

// Kind names a drawing algorithm.
type Kind int

const (
	KindDirectGrey Kind = iota
	KindDither
	KindHalftone
	KindTrueColour
)

func (k Kind) String() string {
	switch k {
	case KindDirectGrey:
		return "directgrey"
	case KindDither:
		return "dither"
	case KindHalftone:
		return "halftone"
	case KindTrueColour:
		return "truecolour"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Dither preference values.
const (
	DitherNone     = 0
	DitherFS       = 1
	DitherHalftone = 2
	DitherDefault  = DitherFS
)

// Select picks the algorithm for a device and dither preference. Any
// unknown preference falls back to error diffusion.
func Select(p device.Profile, dither int) Kind {
	if p.TrueColour() {
		return KindTrueColour
	}
	switch dither {
	case DitherNone:
		return KindDirectGrey
	case DitherHalftone:
		return KindHalftone
	}
	return KindDither
}

// Options tune an algorithm instance.
type Options struct {
	// Gamma of 1.0 or less than or equal to 0 disables correction.
	Gamma     float64
	Bandpass  int
	Threshold int
	// Colours is the device colour count.
	Colours int
	// FastBlit enables the rectangle blit in the truecolour path.
	FastBlit bool
	// Width sizes the dither row arena.
	Width int
}

// Source is the intermediate buffer together with where it sits on the
// canvas.
type Source struct {
	Pix    []byte
	Stride int
	Width  int
	Height int
	// Origin is the canvas position of the buffer's first pixel.
	Origin image.Point
}

// Bounds returns the canvas rectangle the buffer covers.
func (s Source) Bounds() image.Rectangle {
	return image.Rectangle{Min: s.Origin, Max: s.Origin.Add(image.Pt(s.Width, s.Height))}
}

// Algorithm draws the canvas rectangle r from src onto dev.
type Algorithm interface {
	Kind() Kind
	Draw(dev device.Device, src Source, r image.Rectangle) error
}

// maxDitherColours keeps the dither threshold factor 512/colours above zero.
const maxDitherColours = 512

// New builds an algorithm of the given kind.
func New(kind Kind, opts Options) (Algorithm, error) {
	lut := NewGammaLUT(opts.Gamma)
	switch kind {
	case KindDirectGrey:
		return &DirectGrey{gamma: lut, threshold: opts.Threshold, colours: opts.Colours}, nil
	case KindDither:
		if opts.Colours < 2 || opts.Colours > maxDitherColours {
			return nil, fmt.Errorf("%w: dither needs 2 to %d colours, got %d", device.ErrSetup, maxDitherColours, opts.Colours)
		}
		return NewDither(opts.Colours, opts.Bandpass, lut, opts.Width), nil
	case KindHalftone:
		return &Halftone{gamma: lut, bandpass: opts.Bandpass}, nil
	case KindTrueColour:
		return &TrueColour{FastBlit: opts.FastBlit}, nil
	}
	return nil, fmt.Errorf("unknown drawing algorithm %d", int(kind))
}

// checkRect makes sure r can be read from src.
func checkRect(src Source, r image.Rectangle, bpp int) error {
	if r.Empty() {
		return nil
	}
	if !r.In(src.Bounds()) {
		return fmt.Errorf("draw rectangle %v outside buffer %v", r, src.Bounds())
	}
	last := (r.Max.Y-1-src.Origin.Y)*src.Stride + (r.Max.X-src.Origin.X)*bpp
	if last > len(src.Pix) {
		return fmt.Errorf("buffer too short for %v: need %d bytes, have %d", r, last, len(src.Pix))
	}
	return nil
}
