// Package x11 emulates a small display in an X11 window.
package x11

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
	"github.com/bryanchriswhite/TinyScreen/internal/frame"
	"github.com/bryanchriswhite/TinyScreen/internal/logger"
)

// Display is an emulated panel drawn into its own X11 window.
type Display struct {
	*device.Memory

	conn   *xgb.Conn
	screen *xproto.ScreenInfo
	window xproto.Window
	gc     xproto.Gcontext
	format pixmapFormat

	mu     sync.Mutex
	out    *image.RGBA
	data   []byte
	closed bool
}

type pixmapFormat struct {
	depth         byte
	bytesPerPixel int
	scanlinePad   int
}

// New connects to displayName (empty for $DISPLAY) and maps a window
// scale times the panel size.
func New(displayName string, panel device.MemoryConfig, scale int) (*Display, error) {
	mem, err := device.NewMemory(panel)
	if err != nil {
		return nil, err
	}

	conn, err := xgb.NewConnDisplay(displayName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to X server: %w", device.ErrSetup, err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	format, err := findFormat(setup, screen.RootDepth)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", device.ErrSetup, err)
	}

	w, h := mem.EmulatedSize(scale)
	d := &Display{
		Memory: mem,
		conn:   conn,
		screen: screen,
		format: format,
		out:    image.NewRGBA(image.Rect(0, 0, w, h)),
	}
	if err := d.createWindow(w, h); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", device.ErrSetup, err)
	}

	go d.eventLoop()

	logger.WithComponent("device").Info().
		Int("width", w).
		Int("height", h).
		Uint32("window_id", uint32(d.window)).
		Msg("X11 display window created")
	return d, nil
}

func findFormat(setup *xproto.SetupInfo, depth byte) (pixmapFormat, error) {
	for _, f := range setup.PixmapFormats {
		if f.Depth == depth {
			return pixmapFormat{
				depth:         depth,
				bytesPerPixel: int(f.BitsPerPixel) / 8,
				scanlinePad:   int(f.ScanlinePad) / 8,
			}, nil
		}
	}
	return pixmapFormat{}, fmt.Errorf("no pixmap format for depth %d", depth)
}

func (d *Display) createWindow(w, h int) error {
	windowID, err := xproto.NewWindowId(d.conn)
	if err != nil {
		return fmt.Errorf("failed to create window ID: %w", err)
	}
	d.window = windowID

	mask := uint32(xproto.CwBackPixel | xproto.CwEventMask)
	values := []uint32{
		0x000000,
		xproto.EventMaskExposure | xproto.EventMaskStructureNotify,
	}
	err = xproto.CreateWindowChecked(
		d.conn,
		d.screen.RootDepth,
		d.window,
		d.screen.Root,
		0, 0,
		uint16(w), uint16(h),
		0,
		xproto.WindowClassInputOutput,
		d.screen.RootVisual,
		mask,
		values,
	).Check()
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	title := fmt.Sprintf("TinyScreen %dx%d", d.Width(), d.Height())
	if err := d.setProperty("_NET_WM_NAME", "UTF8_STRING", []byte(title)); err != nil {
		logger.WithComponent("device").Warn().Err(err).Msg("Failed to set window title")
	}
	if err := d.setProperty("WM_CLASS", "STRING", []byte("tinyscreen\x00TinyScreen\x00")); err != nil {
		logger.WithComponent("device").Warn().Err(err).Msg("Failed to set window class")
	}

	if err := xproto.MapWindowChecked(d.conn, d.window).Check(); err != nil {
		return fmt.Errorf("failed to map window: %w", err)
	}

	gc, err := xproto.NewGcontextId(d.conn)
	if err != nil {
		return fmt.Errorf("failed to create graphics context ID: %w", err)
	}
	if err := xproto.CreateGCChecked(d.conn, gc, xproto.Drawable(d.window), 0, nil).Check(); err != nil {
		return fmt.Errorf("failed to create GC: %w", err)
	}
	d.gc = gc
	d.conn.Sync()
	return nil
}

func (d *Display) setProperty(name, typeName string, value []byte) error {
	prop, err := d.atom(name)
	if err != nil {
		return err
	}
	typ, err := d.atom(typeName)
	if err != nil {
		return err
	}
	return xproto.ChangePropertyChecked(
		d.conn,
		xproto.PropModeReplace,
		d.window,
		prop,
		typ,
		8,
		uint32(len(value)),
		value,
	).Check()
}

func (d *Display) atom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(d.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}

// eventLoop repaints the last frame when the window is exposed.
func (d *Display) eventLoop() {
	for {
		ev, err := d.conn.WaitForEvent()
		if ev == nil && err == nil {
			return
		}
		if err != nil {
			logger.WithComponent("device").Debug().Err(err).Msg("X11 event error")
			continue
		}
		if e, ok := ev.(xproto.ExposeEvent); ok && e.Count == 0 {
			d.mu.Lock()
			if !d.closed && d.data != nil {
				if err := d.put(); err != nil {
					logger.WithComponent("device").Warn().Err(err).Msg("Failed to repaint window")
				}
			}
			d.mu.Unlock()
		}
	}
}

// ClipArea blits a rectangle of a packed buffer.
func (d *Display) ClipArea(sx, sy, w, h, srcX, srcY, srcW, srcH int, format frame.Format, src []byte) error {
	return d.Blit(sx, sy, w, h, srcX, srcY, srcW, srcH, format, src)
}

// Update repaints the window from the canvas.
func (d *Display) Update() error {
	if err := d.Memory.Update(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.Render(d.out)
	data, err := packZPixmap(d.out, d.format)
	if err != nil {
		return err
	}
	d.data = data
	return d.put()
}

// put sends d.data to the window (caller must hold mu).
func (d *Display) put() error {
	b := d.out.Bounds()
	err := xproto.PutImageChecked(
		d.conn,
		xproto.ImageFormatZPixmap,
		xproto.Drawable(d.window),
		d.gc,
		uint16(b.Dx()), uint16(b.Dy()),
		0, 0,
		0,
		d.format.depth,
		d.data,
	).Check()
	if err != nil {
		return fmt.Errorf("failed to put image: %w", err)
	}
	d.conn.Sync()
	return nil
}

// packZPixmap converts img to the server's ZPixmap layout, padding every
// scanline.
func packZPixmap(img *image.RGBA, f pixmapFormat) ([]byte, error) {
	if f.bytesPerPixel != 3 && f.bytesPerPixel != 4 {
		return nil, fmt.Errorf("unsupported bytes per pixel: %d", f.bytesPerPixel)
	}
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	unpadded := width * f.bytesPerPixel
	pad := f.scanlinePad
	if pad < 1 {
		pad = 1
	}
	stride := (unpadded + pad - 1) / pad * pad

	data := make([]byte, stride*height)
	for y := 0; y < height; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := data[y*stride:]
		for x := 0; x < width; x++ {
			s := src[x*4:]
			o := x * f.bytesPerPixel
			dst[o] = s[2]
			dst[o+1] = s[1]
			dst[o+2] = s[0]
			if f.bytesPerPixel == 4 && f.depth == 32 {
				dst[o+3] = s[3]
			}
		}
	}
	return data, nil
}

// Close destroys the window and drops the connection.
func (d *Display) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	if d.gc != 0 {
		xproto.FreeGC(d.conn, d.gc)
	}
	if d.window != 0 {
		xproto.DestroyWindow(d.conn, d.window)
		d.conn.Sync()
	}
	d.conn.Close()

	logger.WithComponent("device").Info().Msg("X11 display window closed")
	return d.Memory.Close()
}

// Driver opens the X11 display. The connection target is the X display
// name, e.g. "x11::0"; empty uses $DISPLAY. Options are the panel options
// of device.ParseMemoryConfig plus SCALE.
var Driver = device.Driver{
	Name:              "x11",
	Description:       "emulated panel in an X11 window",
	DefaultConnection: "x11:",
	Open: func(conn device.Connection, _ string, opts device.Options) (device.Device, error) {
		panel, err := device.ParseMemoryConfig(opts, device.DefaultMemoryConfig)
		if err != nil {
			return nil, err
		}
		scale, err := opts.Int("SCALE", 4)
		if err != nil {
			return nil, err
		}
		return New(conn.Target, panel, scale)
	},
}
