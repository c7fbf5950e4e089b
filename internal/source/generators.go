package source

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/fogleman/gg"

	"github.com/bryanchriswhite/TinyScreen/internal/frame"
)

const (
	defaultGenWidth  = 320
	defaultGenHeight = 240
)

// barColours are the 75% colour bars, left to right.
var barColours = [][3]uint8{
	{191, 191, 191},
	{191, 191, 0},
	{0, 191, 191},
	{0, 191, 0},
	{191, 0, 191},
	{191, 0, 0},
	{0, 0, 191},
}

// Bars generates colour bars over the top three quarters and a white
// marker sweeping across the black bottom quarter.
type Bars struct {
	f     frame.Frame
	split int
	n     int
}

// NewBars creates the generator. It never ends.
func NewBars(opts Options) *Bars {
	w, h := opts.size(defaultGenWidth, defaultGenHeight)
	b := &Bars{f: frame.New(frame.FormatRGB24, w, h), split: h * 3 / 4}
	pix, stride := b.f.Pix(), b.f.Stride()
	for y := 0; y < b.split; y++ {
		for x := 0; x < w; x++ {
			c := barColours[x*len(barColours)/w]
			copy(pix[y*stride+x*3:], c[:])
		}
	}
	return b
}

func (b *Bars) Name() string         { return "bars" }
func (b *Bars) Format() frame.Format { return frame.FormatRGB24 }
func (b *Bars) Size() (int, int)     { return b.f.Width, b.f.Height }

// Next redraws the marker one step further.
func (b *Bars) Next(ctx context.Context) (frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return frame.Frame{}, err
	}
	w := b.f.Width
	mw := max(1, w/16)
	pos := (b.n * max(1, w/64)) % w
	b.n++

	pix, stride := b.f.Pix(), b.f.Stride()
	for y := b.split; y < b.f.Height; y++ {
		row := pix[y*stride : y*stride+w*3]
		for x := 0; x < w; x++ {
			v := uint8(0)
			if x >= pos && x < pos+mw {
				v = 0xFF
			}
			row[x*3], row[x*3+1], row[x*3+2] = v, v, v
		}
	}
	return b.f, nil
}

func (b *Bars) Close() error { return nil }

// TestCard draws a test card with gg: grey steps, a grid, a centre circle
// with a rotating hand, and a frame counter.
type TestCard struct {
	dc *gg.Context
	n  int
}

// NewTestCard creates the generator. It never ends.
func NewTestCard(opts Options) *TestCard {
	w, h := opts.size(defaultGenWidth, defaultGenHeight)
	return &TestCard{dc: gg.NewContext(w, h)}
}

func (t *TestCard) Name() string         { return "testcard" }
func (t *TestCard) Format() frame.Format { return frame.FormatRGBA32 }
func (t *TestCard) Size() (int, int)     { return t.dc.Width(), t.dc.Height() }

// Next draws the following card. The frame shares the drawing surface.
func (t *TestCard) Next(ctx context.Context) (frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return frame.Frame{}, err
	}
	t.draw()
	t.n++

	img := t.dc.Image().(*image.RGBA)
	return frame.Frame{
		Format:  frame.FormatRGBA32,
		Width:   img.Rect.Dx(),
		Height:  img.Rect.Dy(),
		Planes:  [][]byte{img.Pix},
		Strides: []int{img.Stride},
	}, nil
}

func (t *TestCard) draw() {
	dc := t.dc
	w, h := float64(dc.Width()), float64(dc.Height())

	const steps = 8
	for i := 0; i < steps; i++ {
		v := float64(i) / (steps - 1)
		dc.SetRGB(v, v, v)
		dc.DrawRectangle(w*float64(i)/steps, 0, w/steps+1, h)
		dc.Fill()
	}

	dc.SetRGB(0.5, 0.5, 0.5)
	dc.SetLineWidth(1)
	for i := 1; i < 8; i++ {
		x := w * float64(i) / 8
		y := h * float64(i) / 8
		dc.DrawLine(x, 0, x, h)
		dc.DrawLine(0, y, w, y)
	}
	dc.Stroke()

	r := math.Min(w, h) * 0.35
	dc.SetRGB(1, 1, 1)
	dc.DrawCircle(w/2, h/2, r)
	dc.Fill()
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(math.Max(2, r/20))
	dc.DrawCircle(w/2, h/2, r)
	dc.Stroke()

	angle := float64(t.n%60) / 60 * 2 * math.Pi
	dc.DrawLine(w/2, h/2, w/2+r*math.Sin(angle), h/2-r*math.Cos(angle))
	dc.Stroke()

	dc.SetRGB(1, 0, 0)
	dc.SetLineWidth(2)
	dc.DrawRectangle(1, 1, w-2, h-2)
	dc.Stroke()

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(fmt.Sprintf("%05d", t.n), w/2, h/2+r/2, 0.5, 0.5)
}

func (t *TestCard) Close() error { return nil }
