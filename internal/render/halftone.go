package render

import (
	"image"

	"github.com/MaxHalford/halfgone"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
)

// Halftone dithers with exact floating point Floyd-Steinberg weights and
// emits only full-on and full-off pixels.
type Halftone struct {
	gamma    GammaLUT
	bandpass int
	ditherer halfgone.FloydSteinbergDitherer
}

func (a *Halftone) Kind() Kind { return KindHalftone }

func (a *Halftone) Draw(dev device.Device, src Source, r image.Rectangle) error {
	if err := checkRect(src, r, 1); err != nil {
		return err
	}
	if r.Empty() {
		return nil
	}

	gray := image.NewGray(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		row := src.Pix[(r.Min.Y+y-src.Origin.Y)*src.Stride:]
		for x := 0; x < r.Dx(); x++ {
			v := a.gamma.Apply(row[r.Min.X+x-src.Origin.X])
			if a.bandpass > 0 {
				if int(v) >= maxGrey-a.bandpass {
					v = maxGrey
				} else if int(v) <= a.bandpass {
					v = 0
				}
			}
			gray.Pix[y*gray.Stride+x] = v
		}
	}

	out := a.ditherer.Apply(gray)
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			dev.SetGrey(r.Min.X+x, r.Min.Y+y, out.GrayAt(x, y).Y)
		}
	}
	return nil
}
