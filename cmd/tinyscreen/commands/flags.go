package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bryanchriswhite/TinyScreen/internal/config"
)

// errHelpShown ends a command after the sub-option help was printed.
var errHelpShown = errors.New("help shown")

// addRenderFlags registers the rendering flags shared by play and
// geometry.
func addRenderFlags(fs *pflag.FlagSet) {
	d := config.DefaultFlags()
	fs.String("vo", "", "sub-option string, e.g. name=ssd1306:device=i2c?1:viewmode=1 ('--vo help' lists keys)")
	fs.String("profile", "", "config profile to start from (default is the active profile)")
	fs.String("name", "", "display driver name (see 'tinyscreen devices')")
	fs.String("device", "", "display connection, e.g. i2c:1 or http::8090")
	fs.String("options", "", "display options, key=value;key=value")
	fs.Bool("backlight", d.Backlight, "switch the backlight on")
	fs.Int("viewmode", d.ViewMode, "0 fit both, 1 fit width, 2 fit height")
	fs.Int("dither", d.Dither, "0 threshold, 1 Floyd-Steinberg, 2 halftone")
	fs.Int("threshold", d.Threshold, "threshold for dither=0, 0-255")
	fs.Int("bandpass", d.Bandpass, "contrast band-pass, 0-255")
	fs.Float64("gamma", d.Gamma, "gamma correction")
	fs.Bool("debug", d.Debug, "log the geometry and rendering decisions")
	fs.String("scaler", d.Scaler, "scaling backend (xdraw or resize)")
	fs.String("interp", d.Interp, "scaler interpolation, backend specific")
}

// resolveFlags builds the rendering flags: the profile, then --vo, then
// the individual flags the user set.
func resolveFlags(fs *pflag.FlagSet, mgr *config.Manager) (config.Flags, error) {
	flags := mgr.ActiveFlags()
	if id, _ := fs.GetString("profile"); id != "" {
		found := false
		for _, p := range mgr.ListProfiles() {
			if p.ID == id {
				flags, found = p.Flags, true
				break
			}
		}
		if !found {
			return flags, fmt.Errorf("profile not found: %s", id)
		}
	}

	if vo, _ := fs.GetString("vo"); vo != "" {
		help, err := config.ParseSubOptions(vo, &flags)
		if err != nil {
			return flags, err
		}
		if help {
			fmt.Print(config.HelpText)
			return flags, errHelpShown
		}
	}

	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "name":
			flags.Name = f.Value.String()
		case "device":
			flags.Device = f.Value.String()
		case "options":
			flags.Options = f.Value.String()
		case "backlight":
			flags.Backlight, err = fs.GetBool(f.Name)
		case "viewmode":
			flags.ViewMode, err = fs.GetInt(f.Name)
		case "dither":
			flags.Dither, err = fs.GetInt(f.Name)
		case "threshold":
			flags.Threshold, err = fs.GetInt(f.Name)
		case "bandpass":
			flags.Bandpass, err = fs.GetInt(f.Name)
		case "gamma":
			flags.Gamma, err = fs.GetFloat64(f.Name)
		case "debug":
			flags.Debug, err = fs.GetBool(f.Name)
		case "scaler":
			flags.Scaler = f.Value.String()
		case "interp":
			flags.Interp = f.Value.String()
		}
	})
	if err != nil {
		return flags, err
	}
	return flags, flags.Validate()
}
