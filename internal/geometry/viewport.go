// Package geometry computes where a video frame lands on a device canvas.
package geometry

import (
	"errors"
	"fmt"
	"image"
)

// ErrInvalidGeometry is returned for impossible inputs.
var ErrInvalidGeometry = errors.New("invalid geometry")

// FitMode selects which dimension governs the scale factor.
type FitMode int

const (
	// FitBoth keeps the whole frame visible.
	FitBoth FitMode = iota
	// FitWidth fills the canvas width; the height may be clipped.
	FitWidth
	// FitHeight fills the canvas height; the width may be clipped.
	FitHeight
)

func (m FitMode) String() string {
	switch m {
	case FitBoth:
		return "fit-both"
	case FitWidth:
		return "fit-width"
	case FitHeight:
		return "fit-height"
	}
	return fmt.Sprintf("fitmode(%d)", int(m))
}

// referenceWidth is the width of the normalised aspect rectangle.
const referenceWidth = 100

// Input describes one configuration event.
type Input struct {
	SrcW, SrcH   int // decoded frame size
	DispW, DispH int // requested presentation size
	CanvasW      int
	CanvasH      int
	// PixelAspect is device-pixel height:width scaled by 100.
	PixelAspect int
	Mode        FitMode
}

// Viewport is the destination rectangle inside the canvas.
type Viewport struct {
	X, Y, W, H int
	// Factor is the governing scale factor, kept for diagnostics.
	Factor float64
	// FastBlit is set by the caller once device capabilities are known.
	FastBlit bool
}

// Rect returns the viewport as an image.Rectangle in canvas coordinates.
func (v Viewport) Rect() image.Rectangle {
	return image.Rect(v.X, v.Y, v.X+v.W, v.Y+v.H)
}

// Compute derives the viewport for in.
func Compute(in Input) (Viewport, error) {
	if in.SrcW <= 0 || in.SrcH <= 0 || in.DispW <= 0 || in.DispH <= 0 {
		return Viewport{}, fmt.Errorf("%w: source %dx%d, display %dx%d", ErrInvalidGeometry, in.SrcW, in.SrcH, in.DispW, in.DispH)
	}
	if in.CanvasW <= 0 || in.CanvasH <= 0 {
		return Viewport{}, fmt.Errorf("%w: canvas %dx%d", ErrInvalidGeometry, in.CanvasW, in.CanvasH)
	}

	aspectW := referenceWidth
	aspectH := in.PixelAspect * in.CanvasH / in.CanvasW
	if aspectH <= 0 {
		return Viewport{}, fmt.Errorf("%w: pixel aspect %d on %dx%d canvas", ErrInvalidGeometry, in.PixelAspect, in.CanvasW, in.CanvasH)
	}

	factW := float64(in.DispW) / float64(aspectW)
	factH := float64(in.DispH) / float64(aspectH)

	var fact float64
	switch in.Mode {
	case FitBoth:
		fact = factW
		if factH > factW {
			fact = factH
		}
	case FitWidth:
		fact = factW
	case FitHeight:
		fact = factH
	default:
		return Viewport{}, fmt.Errorf("%w: unknown fit mode %d", ErrInvalidGeometry, int(in.Mode))
	}

	w := int((float64(in.DispW) / fact) * (float64(in.CanvasW) / float64(aspectW)))
	h := int((float64(in.DispH) / fact) * (float64(in.CanvasH) / float64(aspectH)))

	if in.Mode == FitBoth {
		// absorb rounding overshoot
		if w > in.CanvasW {
			w = in.CanvasW
		}
		if h > in.CanvasH {
			h = in.CanvasH
		}
	}
	if w <= 0 || h <= 0 {
		return Viewport{}, fmt.Errorf("%w: viewport collapsed to %dx%d", ErrInvalidGeometry, w, h)
	}

	return Viewport{
		X:      (in.CanvasW - w) >> 1,
		Y:      (in.CanvasH - h) >> 1,
		W:      w,
		H:      h,
		Factor: fact,
	}, nil
}

// FastBlitUsable reports whether the clipped-rectangle blit may replace
// per-pixel emission. It needs a truecolour device, a viewport spanning the
// full canvas width and the primitive itself.
func FastBlitUsable(trueColour bool, vp Viewport, canvasW int, hasClipArea bool) bool {
	return hasClipArea && trueColour && vp.W == canvasW
}

// SliceRect maps the source rectangle (x, y, w, h) of a srcW x srcH frame
// onto the viewport by linear proportion.
func SliceRect(vp Viewport, srcW, srcH, x, y, w, h int) image.Rectangle {
	dx1 := vp.X + x*vp.W/srcW
	dy1 := vp.Y + y*vp.H/srcH
	dx2 := vp.X + (x+w)*vp.W/srcW
	dy2 := vp.Y + (y+h)*vp.H/srcH
	return image.Rect(dx1, dy1, dx2, dy2)
}
