package frame

import (
	"image"
	"image/color"
)

// Image exposes f as an image.Image whose rows start at originY, so a band
// returned by Rows keeps its position inside the full picture.
func (f Frame) Image(originY int) (image.Image, error) {
	if err := Validate(f.Format); err != nil {
		return nil, err
	}
	rect := image.Rect(0, originY, f.Width, originY+f.Height)
	if f.Format == FormatRGBA32 {
		return &image.RGBA{Pix: f.Pix(), Stride: f.Stride(), Rect: rect}, nil
	}
	return &packedImage{f: f, rect: rect}, nil
}

type packedImage struct {
	f    Frame
	rect image.Rectangle
}

func (p *packedImage) ColorModel() color.Model { return color.RGBAModel }

func (p *packedImage) Bounds() image.Rectangle { return p.rect }

func (p *packedImage) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.rect) {
		return color.RGBA{}
	}
	r, g, b := p.RGBAt(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}

// RGBAt decodes one pixel.
func (p *packedImage) RGBAt(x, y int) (r, g, b uint8) {
	f := p.f
	i := (y-p.rect.Min.Y)*f.Stride() + x*f.Format.BytesPerPixel()
	pix := f.Pix()
	switch f.Format {
	case FormatRGB24:
		return pix[i], pix[i+1], pix[i+2]
	case FormatBGR24, FormatBGRA32:
		return pix[i+2], pix[i+1], pix[i]
	case FormatRGB565:
		return expand565(uint16(pix[i]) | uint16(pix[i+1])<<8)
	case FormatBGR565:
		b, g, r := expand565(uint16(pix[i]) | uint16(pix[i+1])<<8)
		return r, g, b
	case FormatRGB555:
		return expand555(uint16(pix[i]) | uint16(pix[i+1])<<8)
	case FormatBGR555:
		b, g, r := expand555(uint16(pix[i]) | uint16(pix[i+1])<<8)
		return r, g, b
	}
	return 0, 0, 0
}

// 16-bit formats are little-endian, red in the high bits.
func expand565(p uint16) (r, g, b uint8) {
	rr := (p >> 11) & 0x1F
	gg := (p >> 5) & 0x3F
	bb := p & 0x1F
	return uint8((rr * 255) / 31), uint8((gg * 255) / 63), uint8((bb * 255) / 31)
}

func expand555(p uint16) (r, g, b uint8) {
	rr := (p >> 10) & 0x1F
	gg := (p >> 5) & 0x1F
	bb := p & 0x1F
	return uint8((rr * 255) / 31), uint8((gg * 255) / 31), uint8((bb * 255) / 31)
}
