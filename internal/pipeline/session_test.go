package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/TinyScreen/internal/config"
	"github.com/bryanchriswhite/TinyScreen/internal/device"
	"github.com/bryanchriswhite/TinyScreen/internal/device/devicetest"
	"github.com/bryanchriswhite/TinyScreen/internal/frame"
	"github.com/bryanchriswhite/TinyScreen/internal/geometry"
	"github.com/bryanchriswhite/TinyScreen/internal/osd"
	"github.com/bryanchriswhite/TinyScreen/internal/scaler"
)

func mono(t *testing.T, w, h int) *device.Memory {
	t.Helper()
	m, err := device.NewMemory(device.MemoryConfig{Width: w, Height: h, Colours: 2, Depth: 1})
	require.NoError(t, err)
	return m
}

func filled(w, h int, v byte) frame.Frame {
	f := frame.New(frame.FormatRGB24, w, h)
	for i := range f.Planes[0] {
		f.Planes[0][i] = v
	}
	return f
}

func flags(dither int) config.Flags {
	f := config.DefaultFlags()
	f.Dither = dither
	return f
}

func nearest() Option {
	return WithScaler("xdraw", "nearest")
}

func rgb24(w, h int) ConfigureRequest {
	return ConfigureRequest{SrcW: w, SrcH: h, DispW: w, DispH: h, Format: frame.FormatRGB24}
}

func TestOpenPreparesDevice(t *testing.T) {
	m := mono(t, 100, 50)
	rec := devicetest.NewRecorder(m)

	s, err := Open(rec, flags(1))
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Clears)
	assert.Equal(t, int64(1), rec.Options[device.OptBacklight])
	assert.Equal(t, StateUninitialized, s.State())

	f := config.DefaultFlags()
	f.Backlight = false
	_, err = Open(rec, f)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.Options[device.OptBacklight])

	_, err = Open(nil, f)
	assert.ErrorIs(t, err, device.ErrSetup)

	f.Dither = 5
	_, err = Open(rec, f)
	assert.ErrorIs(t, err, config.ErrInvalidFlag)
}

func TestDrawBeforeConfigure(t *testing.T) {
	s, err := Open(mono(t, 100, 50), flags(1))
	require.NoError(t, err)

	err = s.DrawFrame(context.Background(), filled(100, 50, 0))
	assert.ErrorIs(t, err, ErrNotConfigured)
	err = s.DrawSlice(context.Background(), filled(100, 50, 0), 0, 0, 100, 10)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestConfigureRejectsFormat(t *testing.T) {
	s, err := Open(mono(t, 100, 50), flags(1))
	require.NoError(t, err)

	req := rgb24(100, 50)
	req.Format = frame.FormatI420
	assert.ErrorIs(t, s.Configure(context.Background(), req), frame.ErrUnsupportedFormat)
	assert.Equal(t, StateUninitialized, s.State())

	req = rgb24(0, 50)
	assert.ErrorIs(t, s.Configure(context.Background(), req), geometry.ErrInvalidGeometry)
}

func TestDrawFrameLetterboxed(t *testing.T) {
	m := mono(t, 128, 64)
	s, err := Open(m, flags(1), nearest())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Configure(ctx, ConfigureRequest{SrcW: 720, SrcH: 480, DispW: 320, DispH: 240, Format: frame.FormatRGB24}))
	vp := s.Viewport()
	assert.Equal(t, image.Rect(21, 0, 106, 64), vp.Rect())
	assert.Equal(t, StateConfigured, s.State())

	require.NoError(t, s.DrawFrame(ctx, filled(720, 480, 0)))
	assert.Equal(t, StateStreaming, s.State())

	assert.Equal(t, device.ColourBlack, m.Colour(21, 0))
	assert.Equal(t, device.ColourBlack, m.Colour(105, 63))
	assert.Equal(t, device.ColourWhite, m.Colour(20, 0))
	assert.Equal(t, device.ColourWhite, m.Colour(106, 63))

	assert.Error(t, s.DrawFrame(ctx, filled(640, 480, 0)))
	assert.Equal(t, int64(1), s.Stats().Frames)
}

func TestDrawFrameFitWidthClipsToCanvas(t *testing.T) {
	m := mono(t, 100, 50)
	f := flags(0)
	f.ViewMode = 1
	s, err := Open(m, f, nearest())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Configure(ctx, rgb24(100, 100)))
	vp := s.Viewport()
	assert.Equal(t, image.Rect(0, -25, 100, 75), vp.Rect())
	assert.GreaterOrEqual(t, len(s.Buffer().Pix), vp.W*vp.H)

	require.NoError(t, s.DrawFrame(ctx, filled(100, 100, 0)))
	assert.Equal(t, device.ColourBlack, m.Colour(0, 0))
	assert.Equal(t, device.ColourBlack, m.Colour(99, 49))
}

func TestTrueColourFastAndSlowPathsAgree(t *testing.T) {
	red := frame.New(frame.FormatRGB24, 100, 50)
	for i := 0; i < len(red.Planes[0]); i += 3 {
		red.Planes[0][i] = 0xFF
	}

	run := func(clip bool) (*device.Memory, *devicetest.Recorder) {
		m, err := device.NewMemory(device.MemoryConfig{Width: 100, Height: 50, Colours: 1 << 24, Depth: 24})
		require.NoError(t, err)

		var dev device.Device
		var rec *devicetest.Recorder
		if clip {
			cr := devicetest.NewClipRecorder(m.Device(true))
			dev, rec = cr, cr.Recorder
		} else {
			rec = devicetest.NewRecorder(m)
			dev = rec
		}

		s, err := Open(dev, config.DefaultFlags(), nearest())
		require.NoError(t, err)
		require.NoError(t, s.Configure(context.Background(), rgb24(100, 50)))
		assert.Equal(t, clip, s.Viewport().FastBlit)
		require.NoError(t, s.DrawFrame(context.Background(), red))
		return m, rec
	}

	fast, fastRec := run(true)
	slow, slowRec := run(false)

	assert.Equal(t, []image.Rectangle{image.Rect(0, 0, 100, 50)}, fastRec.ClipAreas)
	assert.Empty(t, fastRec.Writes)
	assert.Len(t, slowRec.Writes, 100*50)
	assert.Equal(t, uint32(0xFFFF0000), fast.Colour(10, 10))
	assert.Equal(t, fast.Image().Pix, slow.Image().Pix)
}

func TestDrawSliceTouchesOnlyItsRows(t *testing.T) {
	m := mono(t, 100, 50)
	rec := devicetest.NewRecorder(m)
	s, err := Open(rec, flags(0), nearest())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Configure(ctx, rgb24(100, 50)))
	rec.Reset()

	whole := filled(100, 50, 0)
	band, err := whole.Rows(25, 25)
	require.NoError(t, err)
	require.NoError(t, s.DrawSlice(ctx, band, 0, 25, 100, 25))

	require.Len(t, rec.Writes, 100*25)
	for _, w := range rec.Writes {
		require.GreaterOrEqual(t, w.Y, 25)
	}
	assert.Equal(t, device.ColourBlack, m.Colour(50, 30))
	assert.Equal(t, device.ColourWhite, m.Colour(50, 10))

	assert.Error(t, s.DrawSlice(ctx, whole, 0, 40, 100, 20))
	assert.Equal(t, int64(1), s.Stats().Slices)
}

func TestOSDCleanedOnNextFrame(t *testing.T) {
	m := mono(t, 100, 50)
	mgr := osd.NewDefaultManager()
	s, err := Open(m, flags(1), nearest(), WithOSD(mgr))
	require.NoError(t, err)

	ctx := context.Background()
	// 100x25 letterboxes to rows 12..36, clear of the band at 42
	require.NoError(t, s.Configure(ctx, rgb24(100, 25)))
	assert.Equal(t, image.Rect(0, 12, 100, 37), s.Viewport().Rect())

	require.NoError(t, s.DrawOSD())
	assert.False(t, s.OSDDirty(), "nothing visible to draw")

	require.NoError(t, mgr.SetProgress(255))
	require.NoError(t, s.DrawOSD())
	assert.True(t, s.OSDDirty())
	assert.Equal(t, device.ColourBlack, m.Colour(50, 42))

	require.NoError(t, s.DrawFrame(ctx, filled(100, 25, 0xFF)))
	assert.False(t, s.OSDDirty())
	for x := 0; x < 100; x++ {
		require.Equal(t, device.ColourWhite, m.Colour(x, 42), "x=%d", x)
		require.Equal(t, device.ColourWhite, m.Colour(x, 49), "x=%d", x)
	}
}

func TestOSDAreasStayBoundedWithSlices(t *testing.T) {
	m := mono(t, 100, 50)
	mgr := osd.NewDefaultManager()
	s, err := Open(m, flags(1), nearest(), WithOSD(mgr))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Configure(ctx, rgb24(100, 25)))
	require.NoError(t, mgr.SetProgress(128))

	f := filled(100, 25, 0xFF)
	for i := 0; i < 1000; i++ {
		for y := 0; y < 25; y += 5 {
			require.NoError(t, s.DrawSlice(ctx, f, 0, y, 100, 5))
		}
		require.NoError(t, mgr.SetStatus(fmt.Sprintf("%d", i)))
		require.NoError(t, s.DrawOSD())
		require.LessOrEqual(t, len(s.osdRects), maxOSDRects, "frame %d", i)
	}
	assert.True(t, s.OSDDirty())

	require.NoError(t, mgr.HideProgress())
	require.NoError(t, mgr.SetStatus(""))
	require.NoError(t, s.DrawFrame(ctx, f))
	assert.False(t, s.OSDDirty())
	assert.Empty(t, s.osdRects)
	for x := 0; x < 100; x++ {
		require.Equal(t, device.ColourWhite, m.Colour(x, 45), "x=%d", x)
	}
}

func TestReconfigureAllocatesFreshBuffer(t *testing.T) {
	s, err := Open(mono(t, 100, 50), flags(1), nearest())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Configure(ctx, rgb24(100, 25)))
	first := s.Buffer()
	assert.Equal(t, 100, first.Stride)
	assert.Len(t, first.Pix, 100*50*3)

	require.NoError(t, s.Configure(ctx, rgb24(50, 50)))
	second := s.Buffer()
	assert.Equal(t, s.Viewport().W, second.Stride)
	assert.NotSame(t, &first.Pix[0], &second.Pix[0])
	require.NoError(t, s.DrawFrame(ctx, filled(50, 50, 0)))
}

type failingScaler struct{ closed bool }

func (f *failingScaler) Scale(frame.Frame, int, int, []byte, int) error {
	return errors.New("boom")
}

func (f *failingScaler) Close() error {
	f.closed = true
	return nil
}

func TestScalerFactory(t *testing.T) {
	ctx := context.Background()

	s, err := Open(mono(t, 100, 50), flags(1), WithScalerFactory(func(string, scaler.Spec) (scaler.Scaler, error) {
		return nil, errors.New("no backend")
	}))
	require.NoError(t, err)
	assert.ErrorIs(t, s.Configure(ctx, rgb24(100, 50)), device.ErrSetup)

	fs := &failingScaler{}
	s, err = Open(mono(t, 100, 50), flags(1), WithScalerFactory(func(string, scaler.Spec) (scaler.Scaler, error) {
		return fs, nil
	}))
	require.NoError(t, err)
	require.NoError(t, s.Configure(ctx, rgb24(100, 50)))
	assert.Error(t, s.DrawFrame(ctx, filled(100, 50, 0)))

	require.NoError(t, s.Configure(ctx, rgb24(100, 25)))
	assert.True(t, fs.closed, "reconfigure closes the old scaler")
}

func TestCloseIsTerminal(t *testing.T) {
	m := mono(t, 100, 50)
	s, err := Open(m, flags(1), nearest())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Configure(ctx, rgb24(100, 50)))
	require.NoError(t, s.DrawFrame(ctx, filled(100, 50, 0)))
	require.NoError(t, s.Flush())
	assert.Equal(t, 1, m.Updates())

	require.NoError(t, s.Close())
	assert.True(t, m.Closed())
	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, "closed", s.Stats().State)

	assert.ErrorIs(t, s.DrawFrame(ctx, filled(100, 50, 0)), ErrClosed)
	assert.ErrorIs(t, s.Configure(ctx, rgb24(100, 50)), ErrClosed)
	assert.ErrorIs(t, s.Flush(), ErrClosed)
	assert.ErrorIs(t, s.DrawOSD(), ErrClosed)
	assert.NoError(t, s.Close())
}

func TestDrawFrameHonoursContext(t *testing.T) {
	s, err := Open(mono(t, 100, 50), flags(1), nearest())
	require.NoError(t, err)
	require.NoError(t, s.Configure(context.Background(), rgb24(100, 50)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.DrawFrame(ctx, filled(100, 50, 0)), context.Canceled)
}
