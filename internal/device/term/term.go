// Package term emulates a small display in a terminal, two device rows per
// text row using the upper half block.
package term

import (
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
	"github.com/bryanchriswhite/TinyScreen/internal/frame"
	"github.com/bryanchriswhite/TinyScreen/internal/logger"
)

const (
	upperHalf   = "▀"
	cursorHome  = "\x1b[H"
	clearScreen = "\x1b[2J"
	hideCursor  = "\x1b[?25l"
	showCursor  = "\x1b[?25h"
)

type cellColours struct {
	top, bottom uint32
}

// Display draws the canvas to a writer on every Update.
type Display struct {
	*device.Memory

	out      io.Writer
	tty      bool
	renderer *lipgloss.Renderer
	styles   map[cellColours]lipgloss.Style
	img      *image.RGBA
	sb       strings.Builder
}

// New creates a display writing to out. Cursor control sequences are only
// written when out is a terminal.
func New(panel device.MemoryConfig, out io.Writer) (*Display, error) {
	mem, err := device.NewMemory(panel)
	if err != nil {
		return nil, err
	}
	w, h := mem.EmulatedSize(1)
	d := &Display{
		Memory:   mem,
		out:      out,
		renderer: lipgloss.NewRenderer(out),
		styles:   make(map[cellColours]lipgloss.Style),
		img:      image.NewRGBA(image.Rect(0, 0, w, h)),
	}

	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		d.tty = true
		cols, rows, err := term.GetSize(int(f.Fd()))
		if err == nil && (cols < w || rows < (h+1)/2) {
			logger.WithComponent("device").Warn().
				Int("cols", cols).
				Int("rows", rows).
				Int("need_cols", w).
				Int("need_rows", (h+1)/2).
				Msg("Terminal is smaller than the emulated panel")
		}
		if _, err := io.WriteString(out, clearScreen+hideCursor); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// ClipArea blits a rectangle of a packed buffer.
func (d *Display) ClipArea(sx, sy, w, h, srcX, srcY, srcW, srcH int, format frame.Format, src []byte) error {
	return d.Blit(sx, sy, w, h, srcX, srcY, srcW, srcH, format, src)
}

// Update writes the whole canvas.
func (d *Display) Update() error {
	if err := d.Memory.Update(); err != nil {
		return err
	}
	d.Render(d.img)

	d.sb.Reset()
	if d.tty {
		d.sb.WriteString(cursorHome)
	}
	b := d.img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		d.writeRow(y)
		d.sb.WriteByte('\n')
	}
	_, err := io.WriteString(d.out, d.sb.String())
	return err
}

// writeRow emits text row y/2, grouping runs of equal cells into one
// styled span.
func (d *Display) writeRow(y int) {
	b := d.img.Bounds()
	run := 0
	var cur cellColours
	for x := b.Min.X; x < b.Max.X; x++ {
		c := cellColours{top: d.rgb(x, y), bottom: d.rgb(x, y+1)}
		if run > 0 && c != cur {
			d.sb.WriteString(d.style(cur).Render(strings.Repeat(upperHalf, run)))
			run = 0
		}
		cur = c
		run++
	}
	if run > 0 {
		d.sb.WriteString(d.style(cur).Render(strings.Repeat(upperHalf, run)))
	}
}

// rgb returns the pixel at (x, y) as 0xRRGGBB; rows past the bottom are
// black.
func (d *Display) rgb(x, y int) uint32 {
	if y >= d.img.Bounds().Max.Y {
		return 0
	}
	c := d.img.RGBAAt(x, y)
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

func (d *Display) style(c cellColours) lipgloss.Style {
	s, ok := d.styles[c]
	if !ok {
		s = d.renderer.NewStyle().
			Foreground(lipgloss.Color(fmt.Sprintf("#%06x", c.top))).
			Background(lipgloss.Color(fmt.Sprintf("#%06x", c.bottom)))
		d.styles[c] = s
	}
	return s
}

// Close restores the cursor.
func (d *Display) Close() error {
	if d.Closed() {
		return nil
	}
	if d.tty {
		io.WriteString(d.out, showCursor)
	}
	return d.Memory.Close()
}

// Driver opens the terminal display on stdout. Options are the panel
// options of device.ParseMemoryConfig.
var Driver = device.Driver{
	Name:              "term",
	Description:       "emulated panel drawn with half blocks on the terminal",
	DefaultConnection: "stdout",
	Open: func(conn device.Connection, _ string, opts device.Options) (device.Device, error) {
		panel, err := device.ParseMemoryConfig(opts, device.DefaultMemoryConfig)
		if err != nil {
			return nil, err
		}
		switch conn.String() {
		case "", "stdout", "-":
			return New(panel, os.Stdout)
		case "stderr":
			return New(panel, os.Stderr)
		}
		return nil, fmt.Errorf("unsupported connection %q (use stdout or stderr)", conn)
	},
}
