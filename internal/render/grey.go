package render

import (
	"image"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
)

// DirectGrey maps grey samples straight to the device. On a two-colour
// device samples are binarised, a sample equal to the threshold is off.
type DirectGrey struct {
	gamma     GammaLUT
	threshold int
	colours   int
}

func (a *DirectGrey) Kind() Kind { return KindDirectGrey }

func (a *DirectGrey) Draw(dev device.Device, src Source, r image.Rectangle) error {
	if err := checkRect(src, r, 1); err != nil {
		return err
	}
	mono := a.colours == 2
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := src.Pix[(y-src.Origin.Y)*src.Stride:]
		for x := r.Min.X; x < r.Max.X; x++ {
			v := a.gamma.Apply(row[x-src.Origin.X])
			if mono {
				if int(v) <= a.threshold {
					v = 0
				} else {
					v = 255
				}
			}
			dev.SetGrey(x, y, v)
		}
	}
	return nil
}
