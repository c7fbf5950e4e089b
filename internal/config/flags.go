package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrInvalidFlag is returned for out-of-range rendering flags.
var ErrInvalidFlag = errors.New("invalid flag")

// Flags selects the display and tunes rendering. They are fixed once a
// session is opened.
type Flags struct {
	// Name is the display driver name.
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	// Device is the connection string, empty for the driver default.
	Device string `json:"device" yaml:"device" mapstructure:"device"`
	// Options is the free-form "key=value;key=value" driver option string.
	Options string `json:"options" yaml:"options" mapstructure:"options"`

	Backlight bool `json:"backlight" yaml:"backlight" mapstructure:"backlight"`
	// ViewMode is 0 fit both, 1 fit width, 2 fit height.
	ViewMode int `json:"viewmode" yaml:"viewmode" mapstructure:"viewmode"`
	// Dither is 0 threshold, 1 Floyd-Steinberg, 2 halftone.
	Dither    int     `json:"dither" yaml:"dither" mapstructure:"dither"`
	Threshold int     `json:"threshold" yaml:"threshold" mapstructure:"threshold"`
	Bandpass  int     `json:"bandpass" yaml:"bandpass" mapstructure:"bandpass"`
	Gamma     float64 `json:"gamma" yaml:"gamma" mapstructure:"gamma"`
	Debug     bool    `json:"debug" yaml:"debug" mapstructure:"debug"`

	// Scaler and Interp pick the scaling backend and its filter.
	Scaler string `json:"scaler" yaml:"scaler" mapstructure:"scaler"`
	Interp string `json:"interp" yaml:"interp" mapstructure:"interp"`
}

// DefaultFlags returns the built-in rendering defaults.
func DefaultFlags() Flags {
	return Flags{
		Backlight: true,
		ViewMode:  0,
		Dither:    1,
		Threshold: 127,
		Bandpass:  0,
		Gamma:     1.0,
		Scaler:    "xdraw",
	}
}

// UnmarshalYAML starts from DefaultFlags so a file only needs to name
// what it changes.
func (f *Flags) UnmarshalYAML(value *yaml.Node) error {
	type plain Flags
	p := plain(DefaultFlags())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*f = Flags(p)
	return nil
}

// GammaEnabled reports whether gamma correction applies.
func (f Flags) GammaEnabled() bool {
	return f.Gamma != 1.0
}

// Validate checks ranges. It does not require a display name, the caller
// decides when one is needed.
func (f Flags) Validate() error {
	if f.ViewMode < 0 || f.ViewMode > 2 {
		return fmt.Errorf("%w: viewmode %d (use 0, 1 or 2)", ErrInvalidFlag, f.ViewMode)
	}
	if f.Dither < 0 || f.Dither > 2 {
		return fmt.Errorf("%w: dither %d (use 0, 1 or 2)", ErrInvalidFlag, f.Dither)
	}
	if f.Threshold < 0 || f.Threshold > 255 {
		return fmt.Errorf("%w: threshold %d outside [0,255]", ErrInvalidFlag, f.Threshold)
	}
	if f.Bandpass < 0 || f.Bandpass > 255 {
		return fmt.Errorf("%w: bandpass %d outside [0,255]", ErrInvalidFlag, f.Bandpass)
	}
	if f.Gamma <= 0 {
		return fmt.Errorf("%w: gamma %g must be positive", ErrInvalidFlag, f.Gamma)
	}
	return nil
}
