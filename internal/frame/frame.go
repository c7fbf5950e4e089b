package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"
)

// ErrUnsupportedFormat is returned for pixel formats outside the RGB family.
var ErrUnsupportedFormat = errors.New("unsupported pixel format")

// Format identifies the memory layout of a frame's pixels.
type Format uint32

const (
	FormatUnknown Format = iota
	FormatRGB24
	FormatBGR24
	FormatRGBA32
	FormatBGRA32
	FormatRGB565
	FormatBGR565
	FormatRGB555
	FormatBGR555
	// FormatGray8 is only produced by the scaler, never accepted as input.
	FormatGray8
	// FormatI420 is recognised so callers get a clear rejection.
	FormatI420
)

var formatNames = map[Format]string{
	FormatRGB24:  "rgb24",
	FormatBGR24:  "bgr24",
	FormatRGBA32: "rgba",
	FormatBGRA32: "bgra",
	FormatRGB565: "rgb565",
	FormatBGR565: "bgr565",
	FormatRGB555: "rgb555",
	FormatBGR555: "bgr555",
	FormatGray8:  "gray8",
	FormatI420:   "i420",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("format(%d)", uint32(f))
}

// ParseFormat resolves a format name such as "rgb24" or "bgra".
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for f, name := range formatNames {
		if name == s {
			return f, nil
		}
	}
	return FormatUnknown, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// BytesPerPixel returns the packed pixel size, or 0 for planar formats.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGB24, FormatBGR24:
		return 3
	case FormatRGBA32, FormatBGRA32:
		return 4
	case FormatRGB565, FormatBGR565, FormatRGB555, FormatBGR555:
		return 2
	case FormatGray8:
		return 1
	}
	return 0
}

// IsRGBFamily reports whether f can be fed to the pipeline.
func (f Format) IsRGBFamily() bool {
	switch f {
	case FormatRGB24, FormatBGR24, FormatRGBA32, FormatBGRA32,
		FormatRGB565, FormatBGR565, FormatRGB555, FormatBGR555:
		return true
	}
	return false
}

// Validate rejects anything the drawing path cannot consume.
func Validate(f Format) error {
	if !f.IsRGBFamily() {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	return nil
}

// Frame is a decoded picture handed over by a source.
//
// Only the first plane is used; every accepted format is packed. When
// Strides is empty the stride defaults to Width*BytesPerPixel. A frame
// may hold only a band of rows of a larger picture, see Rows.
type Frame struct {
	Format  Format
	Width   int
	Height  int
	Planes  [][]byte
	Strides []int
}

// New allocates a zeroed frame of the given format.
func New(format Format, width, height int) Frame {
	stride := width * format.BytesPerPixel()
	return Frame{
		Format:  format,
		Width:   width,
		Height:  height,
		Planes:  [][]byte{make([]byte, stride*height)},
		Strides: []int{stride},
	}
}

// Stride returns the row stride of the first plane.
func (f Frame) Stride() int {
	if len(f.Strides) > 0 && f.Strides[0] > 0 {
		return f.Strides[0]
	}
	return f.Width * f.Format.BytesPerPixel()
}

// Pix returns the first plane.
func (f Frame) Pix() []byte {
	if len(f.Planes) == 0 {
		return nil
	}
	return f.Planes[0]
}

// Rows returns the band [y, y+h) of f sharing its memory.
func (f Frame) Rows(y, h int) (Frame, error) {
	if y < 0 || h <= 0 || y+h > f.Height {
		return Frame{}, fmt.Errorf("row range %d+%d outside frame height %d", y, h, f.Height)
	}
	stride := f.Stride()
	pix := f.Pix()
	end := (y+h-1)*stride + f.Width*f.Format.BytesPerPixel()
	if end > len(pix) {
		return Frame{}, fmt.Errorf("frame buffer too short: need %d bytes, have %d", end, len(pix))
	}
	return Frame{
		Format:  f.Format,
		Width:   f.Width,
		Height:  h,
		Planes:  [][]byte{pix[y*stride:]},
		Strides: []int{stride},
	}, nil
}

// FromImage copies img into an RGBA32 frame.
func FromImage(img image.Image) Frame {
	b := img.Bounds()
	f := New(FormatRGBA32, b.Dx(), b.Dy())
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < f.Height; y++ {
			src := rgba.Pix[(y+b.Min.Y-rgba.Rect.Min.Y)*rgba.Stride+(b.Min.X-rgba.Rect.Min.X)*4:]
			copy(f.Planes[0][y*f.Strides[0]:(y+1)*f.Strides[0]], src[:f.Width*4])
		}
		return f
	}
	pix := f.Planes[0]
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			i := y*f.Strides[0] + x*4
			pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, 0xFF
		}
	}
	return f
}
