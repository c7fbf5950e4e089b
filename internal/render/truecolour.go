package render

import (
	"image"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
	"github.com/bryanchriswhite/TinyScreen/internal/frame"
)

// TrueColour blits RGB24 samples. With FastBlit set and a device that
// offers ClipArea the whole rectangle goes out in one call; otherwise it
// falls back to one SetColour per pixel.
type TrueColour struct {
	FastBlit bool
}

func (a *TrueColour) Kind() Kind { return KindTrueColour }

func (a *TrueColour) Draw(dev device.Device, src Source, r image.Rectangle) error {
	if err := checkRect(src, r, 3); err != nil {
		return err
	}
	diffX := r.Min.X - src.Origin.X
	diffY := r.Min.Y - src.Origin.Y

	if a.FastBlit {
		if clip, ok := dev.(device.ClipAreaer); ok {
			return clip.ClipArea(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), diffX, diffY, src.Width, src.Height, frame.FormatRGB24, src.Pix)
		}
	}

	for y := 0; y < r.Dy(); y++ {
		row := src.Pix[(y+diffY)*src.Stride:]
		for x := 0; x < r.Dx(); x++ {
			off := (x + diffX) * 3
			c := 0xFF000000 | uint32(row[off])<<16 | uint32(row[off+1])<<8 | uint32(row[off+2])
			dev.SetColour(r.Min.X+x, r.Min.Y+y, c)
		}
	}
	return nil
}
