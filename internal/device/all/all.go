// Package all registers every display driver.
package all

import (
	"github.com/bryanchriswhite/TinyScreen/internal/device"
	"github.com/bryanchriswhite/TinyScreen/internal/device/mjpeg"
	"github.com/bryanchriswhite/TinyScreen/internal/device/ssd1306"
	"github.com/bryanchriswhite/TinyScreen/internal/device/term"
	"github.com/bryanchriswhite/TinyScreen/internal/device/window"
	"github.com/bryanchriswhite/TinyScreen/internal/device/x11"
)

// Registry returns a registry with all built-in drivers.
func Registry() *device.Registry {
	r := device.NewRegistry()
	r.Register(device.MemoryDriver)
	r.Register(x11.Driver)
	r.Register(mjpeg.Driver)
	r.Register(ssd1306.Driver)
	r.Register(window.Driver)
	r.Register(term.Driver)
	return r
}
