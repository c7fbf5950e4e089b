package osd

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
)

// SmallCanvasHeight is the canvas height below which the pixel font is used.
const SmallCanvasHeight = 128

// TextWidget displays a line of status text
type TextWidget struct {
	*BaseWidget
	text    string
	x       int
	y       int // top edge; negative means inside the OSD band
	padding int
	inverse bool
	box     bool
}

// NewTextWidget creates a new text widget
func NewTextWidget(id string, config map[string]interface{}) (*TextWidget, error) {
	w := &TextWidget{
		BaseWidget: NewBaseWidget(id, 1),
		x:          BorderGap,
		y:          -1,
		padding:    1,
		box:        true,
	}

	if err := w.UpdateConfig(config); err != nil {
		return nil, err
	}

	return w, nil
}

// Type returns the widget type
func (w *TextWidget) Type() string {
	return "text"
}

// SetText updates the text content
func (w *TextWidget) SetText(text string) {
	w.text = text
}

// GetText returns the current text
func (w *TextWidget) GetText() string {
	return w.text
}

// Render draws the text with the pixel font on small canvases and the
// 7x13 bitmap font elsewhere.
func (w *TextWidget) Render(s Surface) (image.Rectangle, error) {
	if w.text == "" {
		return image.Rectangle{}, nil
	}
	ink, paper := s.FG, s.BG
	if w.inverse {
		ink, paper = paper, ink
	}

	var r image.Rectangle
	if s.Dev.Height() < SmallCanvasHeight {
		r = w.renderSmall(s, ink, paper)
	} else {
		r = w.renderLarge(s, ink, paper)
	}
	return r.Intersect(image.Rect(0, 0, s.Dev.Width(), s.Dev.Height())), nil
}

// top returns the top edge of a box of height h.
func (w *TextWidget) top(l Layout, h int) int {
	if w.y >= 0 {
		return w.y
	}
	return l.PosY + (l.Height-h)/2
}

func (w *TextWidget) renderSmall(s Surface, ink, paper uint32) image.Rectangle {
	f := &proggy.TinySZ8pt7b
	lineH := int(f.GetYAdvance())
	_, width := tinyfont.LineWidth(f, w.text)

	box := image.Rect(0, 0, int(width)+2*w.padding, lineH+2*w.padding)
	box = box.Add(image.Pt(w.x, w.top(s.Layout, box.Dy())))
	if w.box {
		s.Fill(box, paper)
	}

	ascent := lineH * 3 / 4
	d := &displayer{dev: s.Dev}
	tinyfont.WriteLine(d, f, int16(box.Min.X+w.padding), int16(box.Min.Y+w.padding+ascent), w.text, argbToRGBA(ink))
	return box
}

func (w *TextWidget) renderLarge(s Surface, ink, paper uint32) image.Rectangle {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	lineH := metrics.Height.Ceil()

	measure := &font.Drawer{Face: face}
	width := measure.MeasureString(w.text).Ceil()

	box := image.Rect(0, 0, width+2*w.padding, lineH+2*w.padding)
	box = box.Add(image.Pt(w.x, w.top(s.Layout, box.Dy())))
	if w.box {
		s.Fill(box, paper)
	}

	mask := image.NewAlpha(image.Rect(0, 0, width, lineH))
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.Point26_6{X: 0, Y: metrics.Ascent},
	}
	d.DrawString(w.text)

	origin := box.Min.Add(image.Pt(w.padding, w.padding))
	for y := 0; y < lineH; y++ {
		for x := 0; x < width; x++ {
			if mask.AlphaAt(x, y).A >= 0x80 {
				s.Dev.SetColour(origin.X+x, origin.Y+y, ink)
			}
		}
	}
	return box
}

// GetConfig returns the widget configuration
func (w *TextWidget) GetConfig() map[string]interface{} {
	config := w.baseConfig(w.Type())
	config["text"] = w.text
	config["x"] = w.x
	config["y"] = w.y
	config["padding"] = w.padding
	config["inverse"] = w.inverse
	config["box"] = w.box
	return config
}

// UpdateConfig updates the widget configuration
func (w *TextWidget) UpdateConfig(config map[string]interface{}) error {
	w.updateBase(config)

	if text, ok := config["text"].(string); ok {
		w.text = text
	}
	if _, ok := config["x"]; ok {
		w.x = getInt(config["x"])
	}
	if _, ok := config["y"]; ok {
		w.y = getInt(config["y"])
	}
	if _, ok := config["padding"]; ok {
		p := getInt(config["padding"])
		if p < 0 {
			return fmt.Errorf("text padding %d must not be negative", p)
		}
		w.padding = p
	}
	if inverse, ok := config["inverse"].(bool); ok {
		w.inverse = inverse
	}
	if box, ok := config["box"].(bool); ok {
		w.box = box
	}
	return nil
}

// displayer lets tinyfont draw straight onto a device.
type displayer struct {
	dev device.Device
}

var _ drivers.Displayer = (*displayer)(nil)

func (d *displayer) Size() (x, y int16) {
	return int16(d.dev.Width()), int16(d.dev.Height())
}

func (d *displayer) SetPixel(x, y int16, c color.RGBA) {
	d.dev.SetColour(int(x), int(y), 0xFF000000|uint32(c.R)<<16|uint32(c.G)<<8|uint32(c.B))
}

func (d *displayer) Display() error {
	return nil
}

func argbToRGBA(c uint32) color.RGBA {
	return color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 0xFF}
}
