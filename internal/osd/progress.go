package osd

import (
	"fmt"
	"image"
)

// tickCount is the number of scale markers on the bar.
const tickCount = 5

// ProgressBar is a horizontal bar spanning the OSD band. Value runs from 0
// to 255.
type ProgressBar struct {
	*BaseWidget
	value   int
	visible bool
}

// NewProgressBar creates a hidden progress bar.
func NewProgressBar(id string, config map[string]interface{}) (*ProgressBar, error) {
	w := &ProgressBar{BaseWidget: NewBaseWidget(id, 0)}
	if err := w.UpdateConfig(config); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *ProgressBar) Type() string { return "progress" }

// SetValue shows the bar at v.
func (w *ProgressBar) SetValue(v int) {
	w.value = clamp(v, 0, 255)
	w.visible = true
}

// Hide stops drawing the bar.
func (w *ProgressBar) Hide() { w.visible = false }

// Value returns the current value and whether the bar is shown.
func (w *ProgressBar) Value() (int, bool) { return w.value, w.visible }

// Render fills the band with the foreground colour, draws the bar in the
// background colour and inverts the tick markers. Even ticks are solid,
// odd ticks dotted on odd rows.
func (w *ProgressBar) Render(s Surface) (image.Rectangle, error) {
	if !w.visible {
		return image.Rectangle{}, nil
	}
	l := s.Layout
	band := l.Band()
	s.Fill(band, s.FG)

	span := l.Width - 2*BorderGap
	barWidth := span * w.value / 255
	step := span / 4

	for y := l.PosY + l.Margin; y < l.PosY+l.Margin+l.BarHeight; y++ {
		for i := 0; i < barWidth; i++ {
			s.Dev.SetColour(BorderGap+i, y, s.BG)
		}
		for t := 0; t < tickCount; t++ {
			if t%2 == 0 || y%2 == 1 {
				x := BorderGap + step*t
				s.Dev.SetColour(x, y, s.Dev.Colour(x, y)^0xFFFFFF)
			}
		}
	}
	return band, nil
}

func (w *ProgressBar) GetConfig() map[string]interface{} {
	config := w.baseConfig(w.Type())
	config["value"] = w.value
	config["visible"] = w.visible
	return config
}

func (w *ProgressBar) UpdateConfig(config map[string]interface{}) error {
	w.updateBase(config)
	if v, ok := config["value"]; ok {
		n := getInt(v)
		if n < 0 || n > 255 {
			return fmt.Errorf("progress value %d out of range [0,255]", n)
		}
		w.SetValue(n)
	}
	if visible, ok := config["visible"].(bool); ok {
		w.visible = visible
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
