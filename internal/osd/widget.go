package osd

import (
	"image"
)

// Widget is one OSD element.
type Widget interface {
	// ID returns the unique identifier for this widget instance
	ID() string

	// Type returns the widget type name
	Type() string

	// Render draws the widget and returns the canvas area it touched,
	// or an empty rectangle when nothing was drawn
	Render(s Surface) (image.Rectangle, error)

	// GetConfig returns the widget's configuration as a map
	GetConfig() map[string]interface{}

	// UpdateConfig updates the widget's configuration
	UpdateConfig(config map[string]interface{}) error

	IsEnabled() bool
	SetEnabled(enabled bool)

	// Z orders rendering, lower first
	Z() int
}

// BaseWidget provides common functionality for all widgets
type BaseWidget struct {
	id      string
	enabled bool
	z       int
}

// NewBaseWidget creates a new base widget
func NewBaseWidget(id string, z int) *BaseWidget {
	return &BaseWidget{
		id:      id,
		enabled: true,
		z:       z,
	}
}

func (w *BaseWidget) ID() string { return w.id }

func (w *BaseWidget) IsEnabled() bool { return w.enabled }

func (w *BaseWidget) SetEnabled(enabled bool) { w.enabled = enabled }

func (w *BaseWidget) Z() int { return w.z }

// updateBase applies the keys every widget understands.
func (w *BaseWidget) updateBase(config map[string]interface{}) {
	if enabled, ok := config["enabled"].(bool); ok {
		w.enabled = enabled
	}
	if _, ok := config["z"]; ok {
		w.z = getInt(config["z"])
	}
}

func (w *BaseWidget) baseConfig(typ string) map[string]interface{} {
	return map[string]interface{}{
		"id":      w.id,
		"type":    typ,
		"enabled": w.enabled,
		"z":       w.z,
	}
}

// getInt extracts an integer value from an interface{} that might be int or float64
func getInt(v interface{}) int {
	switch val := v.(type) {
	case int:
		return val
	case float64:
		return int(val)
	case int64:
		return int(val)
	default:
		return 0
	}
}
