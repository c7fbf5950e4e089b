// Package scaler converts and resizes source frames into the packed RGB24
// or Gray8 buffer the renderer reads.
package scaler

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"

	"github.com/bryanchriswhite/TinyScreen/internal/frame"
	"github.com/bryanchriswhite/TinyScreen/internal/logger"
)

// ErrClosed is returned by Scale after Close.
var ErrClosed = errors.New("scaler closed")

// Spec fixes the source and destination geometry of a scaler.
type Spec struct {
	SrcW, SrcH int
	SrcFormat  frame.Format
	DstW, DstH int
	DstFormat  frame.Format
	// Interp names the interpolation, backend specific. Empty picks the
	// backend default.
	Interp string
}

// Scaler writes scaled rows into a caller-owned buffer.
type Scaler interface {
	// Scale converts source rows [y, y+h). src is either the whole frame
	// or a band of exactly h rows. Destination rows are chosen by linear
	// proportion, so consecutive bands tile the output.
	Scale(src frame.Frame, y, h int, dst []byte, dstStride int) error
	Close() error
}

// Backend builds scalers of one kind.
type Backend struct {
	Name    string
	Interps []string
	Default string
	build   func(spec Spec) (rowScaler, error)
}

var backends = map[string]Backend{}

func register(b Backend) {
	backends[b.Name] = b
}

// Backends lists the available backend names.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a backend by name.
func Lookup(name string) (Backend, bool) {
	b, ok := backends[strings.ToLower(name)]
	return b, ok
}

// DefaultBackend is used when no backend is named.
const DefaultBackend = "xdraw"

// New creates a scaler. An empty backend selects DefaultBackend.
func New(backend string, spec Spec) (Scaler, error) {
	if backend == "" {
		backend = DefaultBackend
	}
	b, ok := Lookup(backend)
	if !ok {
		return nil, fmt.Errorf("unknown scaler backend %q (available: %s)", backend, strings.Join(Backends(), ", "))
	}
	if err := frame.Validate(spec.SrcFormat); err != nil {
		return nil, err
	}
	if spec.DstFormat != frame.FormatRGB24 && spec.DstFormat != frame.FormatGray8 {
		return nil, fmt.Errorf("%w: scaler output %s", frame.ErrUnsupportedFormat, spec.DstFormat)
	}
	if spec.SrcW <= 0 || spec.SrcH <= 0 || spec.DstW <= 0 || spec.DstH <= 0 {
		return nil, fmt.Errorf("invalid scaler geometry %dx%d -> %dx%d", spec.SrcW, spec.SrcH, spec.DstW, spec.DstH)
	}
	if spec.Interp == "" {
		spec.Interp = b.Default
	}
	rs, err := b.build(spec)
	if err != nil {
		return nil, err
	}

	logger.WithComponent("scaler").Debug().
		Str("backend", b.Name).
		Str("interp", spec.Interp).
		Str("src", fmt.Sprintf("%dx%d %s", spec.SrcW, spec.SrcH, spec.SrcFormat)).
		Str("dst", fmt.Sprintf("%dx%d %s", spec.DstW, spec.DstH, spec.DstFormat)).
		Msg("Created scaler")

	return &scaler{
		spec:    spec,
		rows:    rs,
		scratch: image.NewRGBA(image.Rect(0, 0, spec.DstW, spec.DstH)),
	}, nil
}

// rowScaler resizes src into the rectangle dr of dst.
type rowScaler interface {
	scale(dst *image.RGBA, dr image.Rectangle, src image.Image) error
}

type scaler struct {
	spec    Spec
	rows    rowScaler
	scratch *image.RGBA
}

func (s *scaler) Scale(src frame.Frame, y, h int, dst []byte, dstStride int) error {
	if s.scratch == nil {
		return ErrClosed
	}
	if src.Format != s.spec.SrcFormat {
		return fmt.Errorf("%w: scaler set up for %s, got %s", frame.ErrUnsupportedFormat, s.spec.SrcFormat, src.Format)
	}
	if src.Width != s.spec.SrcW {
		return fmt.Errorf("source width %d, scaler set up for %d", src.Width, s.spec.SrcW)
	}
	if y < 0 || h <= 0 || y+h > s.spec.SrcH {
		return fmt.Errorf("row range %d+%d outside source height %d", y, h, s.spec.SrcH)
	}

	band := src
	switch src.Height {
	case s.spec.SrcH:
		var err error
		if band, err = src.Rows(y, h); err != nil {
			return err
		}
	case h:
	default:
		return fmt.Errorf("source has %d rows, want %d or %d", src.Height, s.spec.SrcH, h)
	}

	dy0 := y * s.spec.DstH / s.spec.SrcH
	dy1 := (y + h) * s.spec.DstH / s.spec.SrcH
	if dy1 == dy0 {
		return nil
	}

	bpp := s.spec.DstFormat.BytesPerPixel()
	if need := (dy1-1)*dstStride + s.spec.DstW*bpp; need > len(dst) {
		return fmt.Errorf("destination too short: need %d bytes, have %d", need, len(dst))
	}

	img, err := band.Image(y)
	if err != nil {
		return err
	}
	dr := image.Rect(0, dy0, s.spec.DstW, dy1)
	if err := s.rows.scale(s.scratch, dr, img); err != nil {
		return fmt.Errorf("failed to scale rows %d+%d: %w", y, h, err)
	}
	pack(s.scratch, dr, s.spec.DstFormat, dst, dstStride)
	return nil
}

func (s *scaler) Close() error {
	s.scratch = nil
	return nil
}

// pack copies rows of img into dst as RGB24 or Gray8.
func pack(img *image.RGBA, r image.Rectangle, format frame.Format, dst []byte, stride int) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		in := img.Pix[y*img.Stride:]
		out := dst[y*stride:]
		for x := r.Min.X; x < r.Max.X; x++ {
			p := in[x*4 : x*4+3]
			if format == frame.FormatGray8 {
				out[x] = Luma(p[0], p[1], p[2])
				continue
			}
			copy(out[x*3:x*3+3], p)
		}
	}
}

// Luma is the ITU-R 601 weighting used by color.GrayModel.
func Luma(r, g, b uint8) uint8 {
	r16, g16, b16 := uint32(r)*0x101, uint32(g)*0x101, uint32(b)*0x101
	return uint8((19595*r16 + 38470*g16 + 7471*b16 + 1<<15) >> 24)
}
