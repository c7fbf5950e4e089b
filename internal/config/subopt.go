package config

import (
	"fmt"
	"strconv"
	"strings"
)

// HelpText documents the sub-option string accepted by ParseSubOptions.
const HelpText = `
--vo sub-options:
Example: tinyscreen play --vo name=ssd1306:device=i2c?1:viewmode=1:options=contrast=200 movie.mp4

Options:
    name (required)
      display driver name (see 'tinyscreen devices')
    device (optional, the driver's default connection is used if omitted)
      connection string (e.g.: 'spi?SPI0.0')
      NOTE: every ':' must be written as '?' because ':' separates sub-options
    options (optional)
      driver option string (e.g.: 'contrast=30;rotate=1')
    backlight (default: 1)
      0: switch backlight off
      1: switch backlight on
    viewmode (default: 0)
      0 : fit video into the screen
      1 : fit only the width (height might be clipped)
      2 : fit only the height (width might be clipped)
    debug (default: 0)
      0: no debug information
      1: log geometry and flags at configure time

  Options only applicable to monochrome or greyscale displays:
    dither (default: 1)
      0 : threshold
      1 : floyd steinberg
      2 : halftone (exact floyd steinberg, two levels)
    threshold (only valid for monochrome displays, default: 127)
      threshold value for threshold dithering, some value out of [0, 255]
    bandpass (default: 0)
      bandpass value for floyd steinberg dithering, some value out of [0, 255]
    gamma (default: 1.0)
      gamma correction
`

// ParseSubOptions applies a colon separated sub-option string such as
// "name=ssd1306:device=i2c?1:nobacklight:dither=0" to f. Boolean options
// accept "key", "nokey" and "key=0|1". It reports whether help was asked
// for. Question marks in device and options become colons.
func ParseSubOptions(s string, f *Flags) (help bool, err error) {
	for _, tok := range strings.Split(s, ":") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		key, value, hasValue := strings.Cut(tok, "=")
		key = strings.ToLower(key)

		switch key {
		case "name":
			f.Name, err = stringValue(key, value, hasValue)
		case "device":
			f.Device, err = stringValue(key, value, hasValue)
			f.Device = strings.ReplaceAll(f.Device, "?", ":")
		case "options":
			f.Options, err = stringValue(key, value, hasValue)
			f.Options = strings.ReplaceAll(f.Options, "?", ":")
		case "scaler":
			f.Scaler, err = stringValue(key, value, hasValue)
		case "interp":
			f.Interp, err = stringValue(key, value, hasValue)
		case "viewmode":
			f.ViewMode, err = intValue(key, value, hasValue)
		case "dither":
			f.Dither, err = intValue(key, value, hasValue)
		case "threshold":
			f.Threshold, err = intValue(key, value, hasValue)
		case "bandpass":
			f.Bandpass, err = intValue(key, value, hasValue)
		case "gamma":
			if !hasValue {
				return false, fmt.Errorf("%w: gamma needs a value", ErrInvalidFlag)
			}
			if f.Gamma, err = strconv.ParseFloat(value, 64); err != nil {
				err = fmt.Errorf("%w: gamma %q is not a number", ErrInvalidFlag, value)
			}
		default:
			var b bool
			name := key
			b, err = boolValue(key, value, hasValue)
			if strings.HasPrefix(key, "no") && !hasValue {
				name = strings.TrimPrefix(key, "no")
				b = false
			}
			switch name {
			case "backlight":
				f.Backlight = b
			case "debug":
				f.Debug = b
			case "help":
				help = b
			default:
				return help, fmt.Errorf("%w: unknown sub-option %q", ErrInvalidFlag, key)
			}
		}
		if err != nil {
			return help, err
		}
	}
	return help, nil
}

func stringValue(key, value string, hasValue bool) (string, error) {
	if !hasValue {
		return "", fmt.Errorf("%w: %s needs a value", ErrInvalidFlag, key)
	}
	return value, nil
}

func intValue(key, value string, hasValue bool) (int, error) {
	if !hasValue {
		return 0, fmt.Errorf("%w: %s needs a value", ErrInvalidFlag, key)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", ErrInvalidFlag, key, value)
	}
	return n, nil
}

func boolValue(key, value string, hasValue bool) (bool, error) {
	if !hasValue {
		return true, nil
	}
	switch value {
	case "1", "yes", "true":
		return true, nil
	case "0", "no", "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: %s %q is not a boolean", ErrInvalidFlag, key, value)
}
