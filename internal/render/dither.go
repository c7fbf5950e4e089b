package render

import (
	"image"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
)

const maxGrey = 255

// Dither is integer Floyd-Steinberg error diffusion onto a device with a
// fixed number of grey levels. The 7/5/3/1 split uses an arithmetic shift
// by four, so residual rounding matches the classic fixed-point kernel
// bit for bit.
type Dither struct {
	gamma    GammaLUT
	bandpass int
	t        int // threshold factor
	q        int // quantisation step

	// rowErr carries error to the next row, one slot per column. It is
	// allocated once and reset at the start of every pass.
	rowErr []int
}

// NewDither creates a ditherer for colours grey levels with a row arena
// of width columns.
func NewDither(colours, bandpass int, gamma GammaLUT, width int) *Dither {
	return &Dither{
		gamma:    gamma,
		bandpass: bandpass,
		t:        ((maxGrey + 1) * 2) / colours,
		q:        maxGrey / (colours - 1),
		rowErr:   make([]int, width),
	}
}

func (a *Dither) Kind() Kind { return KindDither }

func (a *Dither) Draw(dev device.Device, src Source, r image.Rectangle) error {
	if err := checkRect(src, r, 1); err != nil {
		return err
	}
	w := r.Dx()
	if w > len(a.rowErr) {
		a.rowErr = make([]int, w)
	}
	yslop := a.rowErr[:w]
	seed := (9 * maxGrey) / 32
	for x := range yslop {
		yslop[x] = seed
	}

	for y := 0; y < r.Dy(); y++ {
		xslop := (7 * maxGrey) / 32
		dslop := maxGrey / 32
		row := src.Pix[(r.Min.Y+y-src.Origin.Y)*src.Stride:]

		for x := 0; x < w; x++ {
			i := int(a.gamma.Apply(row[r.Min.X+x-src.Origin.X]))

			if a.bandpass > 0 {
				if i >= maxGrey-a.bandpass {
					i = maxGrey
				} else if i <= a.bandpass {
					i = 0
				}
			}

			i += xslop + yslop[x]
			j := (i / a.t) * a.q
			if j > maxGrey {
				j = maxGrey
			} else if j < 0 {
				j = 0
			}

			dev.SetGrey(r.Min.X+x, r.Min.Y+y, uint8(j))

			i -= j
			k := i >> 4
			xslop = 7 * k
			yslop[x] = 5*k + dslop
			if x > 0 {
				yslop[x-1] += 3 * k
			}
			dslop = i - 15*k
		}
	}
	return nil
}
