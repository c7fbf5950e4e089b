// Package window emulates a small display in a desktop window (ebiten).
package window

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
	"github.com/bryanchriswhite/TinyScreen/internal/frame"
	"github.com/bryanchriswhite/TinyScreen/internal/logger"
)

// Display keeps the latest flushed frame for the window to draw.
type Display struct {
	*device.Memory

	scale int

	mu    sync.Mutex
	front *image.RGBA
	dirty bool
	done  bool
}

var _ device.Looper = (*Display)(nil)

// New creates the display. Nothing is shown until Loop runs.
func New(panel device.MemoryConfig, scale int) (*Display, error) {
	mem, err := device.NewMemory(panel)
	if err != nil {
		return nil, err
	}
	if scale < 1 {
		scale = 4
	}
	w, h := mem.EmulatedSize(scale)
	return &Display{
		Memory: mem,
		scale:  scale,
		front:  image.NewRGBA(image.Rect(0, 0, w, h)),
	}, nil
}

// ClipArea blits a rectangle of a packed buffer.
func (d *Display) ClipArea(sx, sy, w, h, srcX, srcY, srcW, srcH int, format frame.Format, src []byte) error {
	return d.Blit(sx, sy, w, h, srcX, srcY, srcW, srcH, format, src)
}

// Update hands the canvas to the window.
func (d *Display) Update() error {
	if err := d.Memory.Update(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done {
		return errors.New("window closed")
	}
	d.Render(d.front)
	d.dirty = true
	return nil
}

// Close ends Loop.
func (d *Display) Close() error {
	d.mu.Lock()
	d.done = true
	d.mu.Unlock()
	return d.Memory.Close()
}

// Loop runs the window on the calling goroutine, which must be the main
// one, and work on another. It returns when work returns or the window is
// closed; closing the window cancels work's context.
func (d *Display) Loop(ctx context.Context, work func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workErr := make(chan error, 1)
	go func() {
		err := work(ctx)
		d.mu.Lock()
		d.done = true
		d.mu.Unlock()
		workErr <- err
	}()

	w, h := d.front.Bounds().Dx(), d.front.Bounds().Dy()
	ebiten.SetWindowTitle(fmt.Sprintf("TinyScreen %dx%d", d.Width(), d.Height()))
	ebiten.SetWindowSize(w, h)
	ebiten.SetTPS(60)

	g := &game{d: d, img: ebiten.NewImage(w, h)}
	runErr := ebiten.RunGame(g)
	if errors.Is(runErr, ebiten.Termination) {
		runErr = nil
	}
	cancel()

	err := <-workErr
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	logger.WithComponent("device").Info().Msg("Window closed")
	return errors.Join(runErr, err)
}

type game struct {
	d   *Display
	img *ebiten.Image
}

func (g *game) Update() error {
	g.d.mu.Lock()
	defer g.d.mu.Unlock()
	if g.d.done {
		return ebiten.Termination
	}
	if g.d.dirty {
		g.img.WritePixels(g.d.front.Pix)
		g.d.dirty = false
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.DrawImage(g.img, nil)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.img.Bounds().Dx(), g.img.Bounds().Dy()
}

// Driver opens the window display. Options are the panel options of
// device.ParseMemoryConfig plus SCALE.
var Driver = device.Driver{
	Name:              "window",
	Description:       "emulated panel in a desktop window (ebiten)",
	DefaultConnection: "window:",
	Open: func(_ device.Connection, _ string, opts device.Options) (device.Device, error) {
		panel, err := device.ParseMemoryConfig(opts, device.DefaultMemoryConfig)
		if err != nil {
			return nil, err
		}
		scale, err := opts.Int("SCALE", 4)
		if err != nil {
			return nil, err
		}
		return New(panel, scale)
	},
}
