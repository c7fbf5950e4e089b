// Package pipeline drives frames from a source through the scaler and a
// drawing algorithm onto a display device.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/TinyScreen/internal/config"
	"github.com/bryanchriswhite/TinyScreen/internal/device"
	"github.com/bryanchriswhite/TinyScreen/internal/frame"
	"github.com/bryanchriswhite/TinyScreen/internal/geometry"
	"github.com/bryanchriswhite/TinyScreen/internal/logger"
	"github.com/bryanchriswhite/TinyScreen/internal/osd"
	"github.com/bryanchriswhite/TinyScreen/internal/render"
	"github.com/bryanchriswhite/TinyScreen/internal/scaler"
)

var (
	// ErrNotConfigured is returned when drawing before Configure.
	ErrNotConfigured = errors.New("session not configured")
	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("session closed")
)

// State is the lifecycle position of a session.
type State int

const (
	StateUninitialized State = iota
	StateConfigured
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ScalerFactory builds a scaler for a backend name.
type ScalerFactory func(backend string, spec scaler.Spec) (scaler.Scaler, error)

// Option customises a session at Open.
type Option func(*Session)

// WithScaler picks the scaling backend and interpolation.
func WithScaler(backend, interp string) Option {
	return func(s *Session) {
		s.backend = backend
		s.interp = interp
	}
}

// WithScalerFactory replaces scaler.New.
func WithScalerFactory(f ScalerFactory) Option {
	return func(s *Session) {
		s.newScaler = f
	}
}

// WithOSD attaches the widgets drawn by DrawOSD.
func WithOSD(m *osd.Manager) Option {
	return func(s *Session) {
		s.osd = m
	}
}

// Buffer is the intermediate frame buffer the scaler writes into.
type Buffer struct {
	Pix           []byte
	Stride        int
	BytesPerPixel int
}

// ConfigureRequest describes the incoming stream.
type ConfigureRequest struct {
	// SrcW and SrcH are the decoded frame size.
	SrcW, SrcH int
	// DispW and DispH are the intended display size, carrying the
	// stream's aspect ratio.
	DispW, DispH int
	Format       frame.Format
}

// Stats is a snapshot of session progress.
type Stats struct {
	State     string            `json:"state"`
	Profile   device.Profile    `json:"profile"`
	Algorithm string            `json:"algorithm"`
	Source    string            `json:"source,omitempty"`
	Viewport  geometry.Viewport `json:"viewport"`
	Frames    int64             `json:"frames"`
	Slices    int64             `json:"slices"`
	Flushes   int64             `json:"flushes"`
}

// geometryInfo is what Configure publishes for Stats.
type geometryInfo struct {
	state  State
	source string
	vp     geometry.Viewport
}

// Session renders one stream onto one device. Its methods must be called
// from a single goroutine; only Stats may be called concurrently.
type Session struct {
	dev     device.Device
	flags   config.Flags
	profile device.Profile
	fg, bg  uint32
	layout  osd.Layout
	kind    render.Kind
	log     *zerolog.Logger

	backend   string
	interp    string
	newScaler ScalerFactory
	osd       *osd.Manager

	state  State
	req    ConfigureRequest
	vp     geometry.Viewport
	buf    Buffer
	sc     scaler.Scaler
	alg    render.Algorithm
	canvas image.Rectangle

	osdDirty bool
	osdRects []image.Rectangle

	frames  atomic.Int64
	slices  atomic.Int64
	flushes atomic.Int64
	info    atomic.Pointer[geometryInfo]
}

// Open prepares dev for rendering. The device is cleared and its
// backlight set from flags. On error the device is left open.
func Open(dev device.Device, flags config.Flags, opts ...Option) (*Session, error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: no device", device.ErrSetup)
	}
	if err := flags.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		dev:       dev,
		flags:     flags,
		backend:   flags.Scaler,
		interp:    flags.Interp,
		newScaler: scaler.New,
		log:       logger.WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.profile = device.ProfileOf(dev)
	if s.profile.Width <= 0 || s.profile.Height <= 0 || s.profile.Colours < 2 {
		return nil, fmt.Errorf("%w: device reports %dx%d with %d colours", device.ErrSetup, s.profile.Width, s.profile.Height, s.profile.Colours)
	}
	s.canvas = image.Rect(0, 0, s.profile.Width, s.profile.Height)

	if flags.Debug {
		logger.SetDebug()
	}

	dev.Clear()
	backlight := int64(0)
	if flags.Backlight {
		backlight = 1
	}
	dev.SetOption(device.OptBacklight, backlight)

	s.fg, s.bg = s.profile.Polarity()
	s.layout = osd.NewLayout(s.profile.Width, s.profile.Height)
	s.kind = render.Select(s.profile, flags.Dither)
	s.publish()

	s.log.Info().
		Int("width", s.profile.Width).
		Int("height", s.profile.Height).
		Int("colours", s.profile.Colours).
		Int("depth", s.profile.Depth).
		Bool("self_emitting", s.profile.SelfEmitting).
		Bool("cliparea", s.profile.ClipArea).
		Str("algorithm", s.kind.String()).
		Msg("Display opened")

	return s, nil
}

// Profile returns the device profile read at Open.
func (s *Session) Profile() device.Profile {
	return s.profile
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Viewport returns the current viewport, zero before Configure.
func (s *Session) Viewport() geometry.Viewport {
	return s.vp
}

// Buffer returns the intermediate frame buffer.
func (s *Session) Buffer() Buffer {
	return s.buf
}

// Configure sets up scaling for a stream. It may be called again to switch
// streams; the previous scaler and buffer are dropped.
func (s *Session) Configure(ctx context.Context, req ConfigureRequest) error {
	if s.state == StateClosed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := frame.Validate(req.Format); err != nil {
		return err
	}

	if s.sc != nil {
		if err := s.sc.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to close previous scaler")
		}
		s.sc = nil
	}
	s.alg = nil
	s.state = StateUninitialized

	vp, err := geometry.Compute(geometry.Input{
		SrcW:        req.SrcW,
		SrcH:        req.SrcH,
		DispW:       req.DispW,
		DispH:       req.DispH,
		CanvasW:     s.profile.Width,
		CanvasH:     s.profile.Height,
		PixelAspect: s.profile.PixelAspect,
		Mode:        geometry.FitMode(s.flags.ViewMode),
	})
	if err != nil {
		return err
	}
	vp.FastBlit = geometry.FastBlitUsable(s.profile.TrueColour(), vp, s.profile.Width, s.profile.ClipArea)
	if !vp.FastBlit && s.profile.TrueColour() {
		s.log.Debug().Bool("cliparea", s.profile.ClipArea).Msg("Fast blit unavailable, using per-pixel output")
	}

	bpp := 1
	dstFormat := frame.FormatGray8
	if s.profile.TrueColour() {
		bpp = 3
		dstFormat = frame.FormatRGB24
	}
	size := max(s.profile.Width*s.profile.Height*3, vp.W*vp.H*bpp)
	buf := Buffer{
		Pix:           make([]byte, size),
		Stride:        vp.W * bpp,
		BytesPerPixel: bpp,
	}

	sc, err := s.newScaler(s.backend, scaler.Spec{
		SrcW:      req.SrcW,
		SrcH:      req.SrcH,
		SrcFormat: req.Format,
		DstW:      vp.W,
		DstH:      vp.H,
		DstFormat: dstFormat,
		Interp:    s.interp,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create scaler: %w", device.ErrSetup, err)
	}

	alg, err := render.New(s.kind, render.Options{
		Gamma:     s.flags.Gamma,
		Bandpass:  s.flags.Bandpass,
		Threshold: s.flags.Threshold,
		Colours:   s.profile.Colours,
		FastBlit:  vp.FastBlit,
		Width:     max(s.profile.Width, vp.W),
	})
	if err != nil {
		sc.Close()
		return fmt.Errorf("%w: %w", device.ErrSetup, err)
	}

	s.req = req
	s.vp = vp
	s.buf = buf
	s.sc = sc
	s.alg = alg
	s.state = StateConfigured
	s.publish()

	ev := s.log.Debug()
	if s.flags.Debug {
		ev = s.log.Info()
	}
	ev.Str("source", fmt.Sprintf("%dx%d %s", req.SrcW, req.SrcH, req.Format)).
		Str("display", fmt.Sprintf("%dx%d", req.DispW, req.DispH)).
		Str("canvas", fmt.Sprintf("%dx%d", s.profile.Width, s.profile.Height)).
		Int("pixel_aspect", s.profile.PixelAspect).
		Str("viewmode", geometry.FitMode(s.flags.ViewMode).String()).
		Float64("factor", vp.Factor).
		Str("viewport", fmt.Sprintf("%dx%d+%d+%d", vp.W, vp.H, vp.X, vp.Y)).
		Bool("fast_blit", vp.FastBlit).
		Str("algorithm", s.kind.String()).
		Int("threshold", s.flags.Threshold).
		Int("bandpass", s.flags.Bandpass).
		Float64("gamma", s.flags.Gamma).
		Bool("gamma_enabled", s.flags.GammaEnabled()).
		Msg("Configured")

	return nil
}

func (s *Session) ready() error {
	switch s.state {
	case StateClosed:
		return ErrClosed
	case StateUninitialized:
		return ErrNotConfigured
	}
	return nil
}

func (s *Session) checkFrame(f frame.Frame) error {
	if f.Format != s.req.Format {
		return fmt.Errorf("%w: configured for %s, got %s", frame.ErrUnsupportedFormat, s.req.Format, f.Format)
	}
	if f.Width != s.req.SrcW {
		return fmt.Errorf("frame width %d does not match configured %d", f.Width, s.req.SrcW)
	}
	return nil
}

func (s *Session) source() render.Source {
	return render.Source{
		Pix:    s.buf.Pix,
		Stride: s.buf.Stride,
		Width:  s.vp.W,
		Height: s.vp.H,
		Origin: image.Pt(s.vp.X, s.vp.Y),
	}
}

// DrawFrame scales a whole frame and draws the viewport. Areas left by a
// previous OSD draw are cleared first.
func (s *Session) DrawFrame(ctx context.Context, f frame.Frame) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkFrame(f); err != nil {
		return err
	}
	if f.Height != s.req.SrcH {
		return fmt.Errorf("frame height %d does not match configured %d", f.Height, s.req.SrcH)
	}

	if err := s.sc.Scale(f, 0, f.Height, s.buf.Pix, s.buf.Stride); err != nil {
		return fmt.Errorf("failed to scale frame: %w", err)
	}

	s.cleanOSD()

	if err := s.alg.Draw(s.dev, s.source(), s.vp.Rect().Intersect(s.canvas)); err != nil {
		return fmt.Errorf("failed to draw frame: %w", err)
	}
	s.state = StateStreaming
	s.frames.Add(1)
	return nil
}

// DrawSlice scales source rows [y, y+h) and draws the matching part of the
// viewport. f holds either the whole frame or exactly those h rows.
func (s *Session) DrawSlice(ctx context.Context, f frame.Frame, x, y, w, h int) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.checkFrame(f); err != nil {
		return err
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > s.req.SrcW || y+h > s.req.SrcH {
		return fmt.Errorf("slice %dx%d+%d+%d outside source %dx%d", w, h, x, y, s.req.SrcW, s.req.SrcH)
	}

	if err := s.sc.Scale(f, y, h, s.buf.Pix, s.buf.Stride); err != nil {
		return fmt.Errorf("failed to scale slice: %w", err)
	}

	r := geometry.SliceRect(s.vp, s.req.SrcW, s.req.SrcH, x, y, w, h).Intersect(s.canvas)
	if err := s.alg.Draw(s.dev, s.source(), r); err != nil {
		return fmt.Errorf("failed to draw slice: %w", err)
	}
	s.state = StateStreaming
	s.slices.Add(1)
	return nil
}

// DrawOSD renders the attached widgets over the current canvas. The band
// and every touched area are cleared with the next frame.
func (s *Session) DrawOSD() error {
	if s.state == StateClosed {
		return ErrClosed
	}
	if s.osd == nil {
		return nil
	}
	rects, err := s.osd.Render(osd.Surface{Dev: s.dev, Layout: s.layout, FG: s.fg, BG: s.bg})
	if err != nil {
		return fmt.Errorf("failed to render osd: %w", err)
	}
	if len(rects) > 0 {
		s.osdDirty = true
		s.addOSDRects(rects)
	}
	return nil
}

// maxOSDRects bounds the areas kept for cleanup while frames arrive as
// slices, which never clean.
const maxOSDRects = 8

// addOSDRects records rects for cleanup, skipping any already covered.
// Past maxOSDRects the set collapses to its bounding box.
func (s *Session) addOSDRects(rects []image.Rectangle) {
	for _, r := range rects {
		if r.Empty() {
			continue
		}
		covered := false
		for _, have := range s.osdRects {
			if r.In(have) {
				covered = true
				break
			}
		}
		if !covered {
			s.osdRects = append(s.osdRects, r)
		}
	}
	if len(s.osdRects) > maxOSDRects {
		union := image.Rectangle{}
		for _, r := range s.osdRects {
			union = union.Union(r)
		}
		s.osdRects = append(s.osdRects[:0], union)
	}
}

// cleanOSD fills what the last OSD draw touched with the background.
func (s *Session) cleanOSD() {
	if !s.osdDirty {
		return
	}
	surface := osd.Surface{Dev: s.dev, Layout: s.layout, FG: s.fg, BG: s.bg}
	surface.Fill(s.layout.Band(), s.bg)
	for _, r := range s.osdRects {
		surface.Fill(r.Intersect(s.canvas), s.bg)
	}
	s.osdRects = s.osdRects[:0]
	s.osdDirty = false
}

// OSDDirty reports whether an OSD draw is waiting to be cleaned up.
func (s *Session) OSDDirty() bool {
	return s.osdDirty
}

// Flush pushes pending pixel writes to the hardware.
func (s *Session) Flush() error {
	if s.state == StateClosed {
		return ErrClosed
	}
	if err := s.dev.Update(); err != nil {
		return fmt.Errorf("failed to update display: %w", err)
	}
	s.flushes.Add(1)
	return nil
}

// Close releases the scaler and buffer and closes the device. Later calls
// return nil.
func (s *Session) Close() error {
	if s.state == StateClosed {
		return nil
	}
	var errs []error
	if s.sc != nil {
		if err := s.sc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close scaler: %w", err))
		}
		s.sc = nil
	}
	s.alg = nil
	s.buf = Buffer{}
	if err := s.dev.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close device: %w", err))
	}
	s.state = StateClosed
	s.publish()

	s.log.Info().
		Int64("frames", s.frames.Load()).
		Int64("slices", s.slices.Load()).
		Msg("Display closed")
	return errors.Join(errs...)
}

// publish makes the configure-time state visible to Stats.
func (s *Session) publish() {
	info := &geometryInfo{state: s.state, vp: s.vp}
	if s.req.SrcW > 0 {
		info.source = fmt.Sprintf("%dx%d %s", s.req.SrcW, s.req.SrcH, s.req.Format)
	}
	s.info.Store(info)
}

// Stats returns a snapshot of the session. Safe for concurrent use.
func (s *Session) Stats() Stats {
	st := Stats{
		Profile:   s.profile,
		Algorithm: s.kind.String(),
		Frames:    s.frames.Load(),
		Slices:    s.slices.Load(),
		Flushes:   s.flushes.Load(),
	}
	if info := s.info.Load(); info != nil {
		st.State = info.state.String()
		st.Source = info.source
		st.Viewport = info.vp
		if info.state == StateConfigured && st.Frames+st.Slices > 0 {
			st.State = StateStreaming.String()
		}
	}
	return st
}
