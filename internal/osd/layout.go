// Package osd draws on-screen display widgets, a progress bar and status
// text, into a band at the bottom of the device canvas.
package osd

import (
	"image"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
)

const (
	// BorderGap is the horizontal inset of the progress bar.
	BorderGap = 10
	// heightDivisor makes the band a tenth of the canvas height.
	heightDivisor = 10
	defaultMargin = 2
	minBarHeight  = 6
)

// Layout is the position of the OSD band.
type Layout struct {
	Width     int
	PosY      int
	Height    int
	Margin    int
	BarHeight int
}

// NewLayout computes the band for a canvas. Small canvases get a bar of
// at least six pixels with a one pixel margin.
func NewLayout(canvasW, canvasH int) Layout {
	l := Layout{
		Width:  canvasW,
		Height: canvasH / heightDivisor,
		Margin: defaultMargin,
	}
	l.BarHeight = l.Height - 2*l.Margin
	if l.BarHeight < minBarHeight {
		l.BarHeight = minBarHeight
		l.Margin = 1
		l.Height = l.BarHeight + 2*l.Margin
	}
	l.PosY = canvasH - l.Height
	return l
}

// Band returns the full-width OSD rectangle.
func (l Layout) Band() image.Rectangle {
	return image.Rect(0, l.PosY, l.Width, l.PosY+l.Height)
}

// Surface is what widgets draw on.
type Surface struct {
	Dev    device.Device
	Layout Layout
	FG, BG uint32
}

// Fill paints r in colour c.
func (s Surface) Fill(r image.Rectangle, c uint32) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			s.Dev.SetColour(x, y, c)
		}
	}
}
