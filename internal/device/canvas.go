package device

import (
	"fmt"
	"image"
	"image/color"

	"github.com/bryanchriswhite/TinyScreen/internal/frame"
)

// Canvas is an in-memory ARGB pixel store that quantises writes to the
// colour count and depth it was created with. Bindings embed it and push
// its content to hardware on Update. It is not safe for concurrent use.
type Canvas struct {
	width      int
	height     int
	colours    int
	depth      int
	background uint32
	pix        []uint32
}

// NewCanvas allocates a cleared canvas. Depths below 8 are grey displays
// with the given number of levels.
func NewCanvas(width, height, colours, depth int) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: canvas size %dx%d", ErrSetup, width, height)
	}
	if colours < 2 {
		return nil, fmt.Errorf("%w: colour count %d", ErrSetup, colours)
	}
	if depth <= 0 {
		return nil, fmt.Errorf("%w: colour depth %d", ErrSetup, depth)
	}
	c := &Canvas{
		width:      width,
		height:     height,
		colours:    colours,
		depth:      depth,
		background: ColourWhite,
		pix:        make([]uint32, width*height),
	}
	c.Clear()
	return c, nil
}

func (c *Canvas) Width() int   { return c.width }
func (c *Canvas) Height() int  { return c.height }
func (c *Canvas) Colours() int { return c.colours }
func (c *Canvas) Depth() int   { return c.depth }

// SetBackground sets the colour Clear fills with.
func (c *Canvas) SetBackground(bg uint32) {
	c.background = c.quantise(bg)
}

// Clear fills the canvas with the background colour.
func (c *Canvas) Clear() {
	for i := range c.pix {
		c.pix[i] = c.background
	}
}

func (c *Canvas) SetColour(x, y int, col uint32) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return
	}
	c.pix[y*c.width+x] = c.quantise(col)
}

func (c *Canvas) SetGrey(x, y int, g uint8) {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return
	}
	if c.depth < 8 {
		g = c.level(g)
	}
	v := uint32(g)
	c.pix[y*c.width+x] = c.quantise(0xFF000000 | v<<16 | v<<8 | v)
}

// Colour returns the stored ARGB value, or 0 outside the canvas.
func (c *Canvas) Colour(x, y int) uint32 {
	if x < 0 || y < 0 || x >= c.width || y >= c.height {
		return 0
	}
	return c.pix[y*c.width+x]
}

// Grey returns the luma of the pixel at (x, y).
func (c *Canvas) Grey(x, y int) uint8 {
	col := c.Colour(x, y)
	return luma(uint8(col>>16), uint8(col>>8), uint8(col))
}

// Blit copies a rectangle out of a packed RGB24 or Gray8 buffer. It is the
// shared implementation behind ClipArea for bindings that offer one.
func (c *Canvas) Blit(sx, sy, w, h, srcX, srcY, srcW, srcH int, format frame.Format, src []byte) error {
	var bpp int
	switch format {
	case frame.FormatRGB24:
		bpp = 3
	case frame.FormatGray8:
		bpp = 1
	default:
		return fmt.Errorf("%w: cliparea source %s", frame.ErrUnsupportedFormat, format)
	}

	for y := 0; y < h; y++ {
		ry := srcY + y
		if ry < 0 || ry >= srcH {
			continue
		}
		for x := 0; x < w; x++ {
			rx := srcX + x
			if rx < 0 || rx >= srcW {
				continue
			}
			off := (ry*srcW + rx) * bpp
			if off+bpp > len(src) {
				return fmt.Errorf("cliparea source too short: need %d bytes, have %d", off+bpp, len(src))
			}
			if bpp == 1 {
				c.SetGrey(sx+x, sy+y, src[off])
				continue
			}
			c.SetColour(sx+x, sy+y, 0xFF000000|uint32(src[off])<<16|uint32(src[off+1])<<8|uint32(src[off+2]))
		}
	}
	return nil
}

// Image returns a copy of the canvas.
func (c *Canvas) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	c.CopyTo(img)
	return img
}

// CopyTo writes the canvas into dst, which must be at least canvas-sized.
func (c *Canvas) CopyTo(dst *image.RGBA) {
	for y := 0; y < c.height; y++ {
		row := dst.Pix[y*dst.Stride:]
		for x := 0; x < c.width; x++ {
			col := c.pix[y*c.width+x]
			row[x*4] = uint8(col >> 16)
			row[x*4+1] = uint8(col >> 8)
			row[x*4+2] = uint8(col)
			row[x*4+3] = 0xFF
		}
	}
}

// quantise reduces col to what the canvas can store.
func (c *Canvas) quantise(col uint32) uint32 {
	r, g, b := uint8(col>>16), uint8(col>>8), uint8(col)
	switch {
	case c.depth >= 24:
	case c.depth >= 16:
		r, g, b = r&0xF8|r>>5, g&0xFC|g>>6, b&0xF8|b>>5
	case c.depth >= 8:
		r, g, b = expandBits(r, 3), expandBits(g, 3), expandBits(b, 2)
	default:
		v := c.level(luma(r, g, b))
		r, g, b = v, v, v
	}
	return 0xFF000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// level snaps g to the nearest of the canvas grey levels.
func (c *Canvas) level(g uint8) uint8 {
	n := c.colours - 1
	l := (int(g)*n + 127) / 255
	return uint8(l * 255 / n)
}

func expandBits(v uint8, bits uint) uint8 {
	top := v >> (8 - bits)
	return uint8(uint(top) * 255 / (1<<bits - 1))
}

func luma(r, g, b uint8) uint8 {
	y := color.GrayModel.Convert(color.RGBA{R: r, G: g, B: b, A: 0xFF}).(color.Gray)
	return y.Y
}
