package device

import (
	"errors"

	"github.com/bryanchriswhite/TinyScreen/internal/frame"
)

// MemoryConfig describes an in-process display.
type MemoryConfig struct {
	Width        int
	Height       int
	Colours      int
	Depth        int
	PixelAspect  int
	SelfEmitting bool
	// ClipArea exposes the rectangle blit.
	ClipArea bool
}

// Memory is a display that lives entirely in memory. It backs tests and
// dry runs.
type Memory struct {
	*Canvas
	*OptionSet

	aspect  int
	updates int
	closed  bool
}

type clippingMemory struct {
	*Memory
}

func (m clippingMemory) ClipArea(sx, sy, w, h, srcX, srcY, srcW, srcH int, format frame.Format, src []byte) error {
	return m.Blit(sx, sy, w, h, srcX, srcY, srcW, srcH, format, src)
}

// NewMemory creates an in-memory display.
func NewMemory(cfg MemoryConfig) (*Memory, error) {
	if cfg.PixelAspect == 0 {
		cfg.PixelAspect = 100
	}
	canvas, err := NewCanvas(cfg.Width, cfg.Height, cfg.Colours, cfg.Depth)
	if err != nil {
		return nil, err
	}
	selfEmitting := int64(0)
	if cfg.SelfEmitting {
		selfEmitting = 1
		canvas.SetBackground(ColourBlack)
		canvas.Clear()
	}
	return &Memory{
		Canvas: canvas,
		OptionSet: NewOptionSet(map[string]int64{
			OptBacklight:    0,
			OptSelfEmitting: selfEmitting,
			OptContrast:     5,
			OptInvert:       0,
		}),
		aspect: cfg.PixelAspect,
	}, nil
}

// Device returns m as a Device, with or without the rectangle blit.
func (m *Memory) Device(clipArea bool) Device {
	if clipArea {
		return clippingMemory{m}
	}
	return m
}

func (m *Memory) PixelAspect() int { return m.aspect }

// Updates returns how many times Update was called.
func (m *Memory) Updates() int { return m.updates }

// Closed reports whether Close was called.
func (m *Memory) Closed() bool { return m.closed }

func (m *Memory) Update() error {
	if m.closed {
		return errors.New("memory display closed")
	}
	m.updates++
	return nil
}

func (m *Memory) Close() error {
	m.closed = true
	return nil
}

// ParseMemoryConfig reads WIDTH, HEIGHT, COLOURS, DEPTH, ASPECT,
// SELFEMITTING and CLIPAREA from opts, falling back to def.
func ParseMemoryConfig(opts Options, def MemoryConfig) (MemoryConfig, error) {
	cfg := def
	var err error
	if cfg.Width, err = opts.Int("WIDTH", def.Width); err != nil {
		return cfg, err
	}
	if cfg.Height, err = opts.Int("HEIGHT", def.Height); err != nil {
		return cfg, err
	}
	if cfg.Colours, err = opts.Int("COLOURS", def.Colours); err != nil {
		return cfg, err
	}
	if cfg.Depth, err = opts.Int("DEPTH", def.Depth); err != nil {
		return cfg, err
	}
	if cfg.PixelAspect, err = opts.Int("ASPECT", def.PixelAspect); err != nil {
		return cfg, err
	}
	if cfg.SelfEmitting, err = opts.Bool("SELFEMITTING", def.SelfEmitting); err != nil {
		return cfg, err
	}
	if cfg.ClipArea, err = opts.Bool("CLIPAREA", def.ClipArea); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// DefaultMemoryConfig is a 128x64 monochrome panel.
var DefaultMemoryConfig = MemoryConfig{
	Width:       128,
	Height:      64,
	Colours:     2,
	Depth:       1,
	PixelAspect: 100,
	ClipArea:    true,
}

// MemoryDriver registers the in-memory display. Options are those of
// ParseMemoryConfig.
var MemoryDriver = Driver{
	Name:              "memory",
	Description:       "in-process canvas, nothing is shown",
	DefaultConnection: "mem:",
	Open: func(_ Connection, _ string, opts Options) (Device, error) {
		cfg, err := ParseMemoryConfig(opts, DefaultMemoryConfig)
		if err != nil {
			return nil, err
		}
		m, err := NewMemory(cfg)
		if err != nil {
			return nil, err
		}
		return m.Device(cfg.ClipArea), nil
	},
}
