// Package devicetest provides helpers for testing code that drives a
// device.Device.
package devicetest

import (
	"image"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
	"github.com/bryanchriswhite/TinyScreen/internal/frame"
)

// Write is one recorded pixel write.
type Write struct {
	X, Y   int
	Colour uint32
	Grey   uint8
	IsGrey bool
}

// Recorder wraps a device and records every call that changes it.
type Recorder struct {
	device.Device

	Writes    []Write
	Clears    int
	Updates   int
	ClipAreas []image.Rectangle
	Options   map[string]int64
}

// NewRecorder wraps d.
func NewRecorder(d device.Device) *Recorder {
	return &Recorder{Device: d, Options: map[string]int64{}}
}

func (r *Recorder) Clear() {
	r.Clears++
	r.Device.Clear()
}

func (r *Recorder) SetColour(x, y int, c uint32) {
	r.Writes = append(r.Writes, Write{X: x, Y: y, Colour: c})
	r.Device.SetColour(x, y, c)
}

func (r *Recorder) SetGrey(x, y int, g uint8) {
	r.Writes = append(r.Writes, Write{X: x, Y: y, Grey: g, IsGrey: true})
	r.Device.SetGrey(x, y, g)
}

func (r *Recorder) SetOption(name string, v int64) {
	r.Options[name] = v
	r.Device.SetOption(name, v)
}

func (r *Recorder) Update() error {
	r.Updates++
	return r.Device.Update()
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.Writes = nil
	r.Clears = 0
	r.Updates = 0
	r.ClipAreas = nil
}

// Greys returns the recorded grey writes keyed by position. Later writes
// to the same pixel win.
func (r *Recorder) Greys() map[image.Point]uint8 {
	m := make(map[image.Point]uint8)
	for _, w := range r.Writes {
		if w.IsGrey {
			m[image.Pt(w.X, w.Y)] = w.Grey
		}
	}
	return m
}

// ClipRecorder is a Recorder whose wrapped device offers a rectangle blit.
type ClipRecorder struct {
	*Recorder
	clip device.ClipAreaer
}

// NewClipRecorder wraps a device that implements device.ClipAreaer.
func NewClipRecorder(d device.Device) *ClipRecorder {
	clip, _ := d.(device.ClipAreaer)
	return &ClipRecorder{Recorder: NewRecorder(d), clip: clip}
}

func (r *ClipRecorder) ClipArea(sx, sy, w, h, srcX, srcY, srcW, srcH int, format frame.Format, src []byte) error {
	r.ClipAreas = append(r.ClipAreas, image.Rect(sx, sy, sx+w, sy+h))
	return r.clip.ClipArea(sx, sy, w, h, srcX, srcY, srcW, srcH, format, src)
}
