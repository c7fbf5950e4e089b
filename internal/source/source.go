// Package source produces frames for the pipeline from files, devices and
// generators.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bryanchriswhite/TinyScreen/internal/frame"
)

// ErrUnknownSource is returned by Open for an unrecognised kind.
var ErrUnknownSource = errors.New("unknown source")

// Source yields frames of a fixed size and format. Next returns io.EOF
// once the input is exhausted.
type Source interface {
	Name() string
	Format() frame.Format
	Size() (width, height int)
	Next(ctx context.Context) (frame.Frame, error)
	Close() error
}

// Options tunes how a source is opened. Zero values mean "source
// default".
type Options struct {
	// Width and Height request an output size. Generators use it as their
	// canvas, ffmpeg scales to it and x11grab grabs that region.
	Width  int
	Height int
	// Loop restarts finite inputs at the end instead of returning io.EOF.
	Loop bool
}

func (o Options) size(defW, defH int) (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = defW
	}
	if h <= 0 {
		h = defH
	}
	return w, h
}

// Kinds lists the accepted source kinds with a short description.
var Kinds = map[string]string{
	"ffmpeg":   "any file or device ffmpeg can decode, e.g. ffmpeg:clip.mp4",
	"image":    "image files (png, jpeg, gif, webp, bmp), e.g. image:photos/*.png",
	"bars":     "generated colour bars with a moving marker",
	"testcard": "generated test card with a frame counter",
	"x11grab":  "X11 screen capture, e.g. x11grab: or x11grab::1",
}

// Open creates the source described by spec, which is "kind:argument".
// A source string without a known kind prefix is treated as an ffmpeg input.
func Open(ctx context.Context, spec string, opts Options) (Source, error) {
	kind, arg, found := strings.Cut(spec, ":")
	if !found {
		kind, arg = spec, ""
	}
	switch strings.ToLower(kind) {
	case "ffmpeg":
		return NewFFmpeg(ctx, arg, opts)
	case "image":
		return NewImages(arg, opts)
	case "bars":
		return NewBars(opts), nil
	case "testcard":
		return NewTestCard(opts), nil
	case "x11grab":
		return NewX11Grab(arg, opts)
	}
	if spec == "" {
		return nil, fmt.Errorf("%w: empty source", ErrUnknownSource)
	}
	return NewFFmpeg(ctx, spec, opts)
}
