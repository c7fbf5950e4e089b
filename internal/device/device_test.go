package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/TinyScreen/internal/frame"
)

func TestParseConnection(t *testing.T) {
	assert.Equal(t, Connection{Proto: "i2c", Target: "1"}, ParseConnection("I2C:1"))
	assert.Equal(t, Connection{Proto: "http", Target: ":8090"}, ParseConnection("http::8090"))
	assert.Equal(t, Connection{Target: "/dev/parport0"}, ParseConnection("/dev/parport0"))
	assert.Equal(t, "spi:SPI0.0", ParseConnection("spi:SPI0.0").String())
}

func TestParseOptions(t *testing.T) {
	opts, err := ParseOptions("width=96; Height=32;invert")
	require.NoError(t, err)

	w, err := opts.Int("WIDTH", 0)
	require.NoError(t, err)
	assert.Equal(t, 96, w)

	h, err := opts.Int("height", 0)
	require.NoError(t, err)
	assert.Equal(t, 32, h)

	inv, err := opts.Bool("invert", false)
	require.NoError(t, err)
	assert.True(t, inv)

	d, err := opts.Int("depth", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, d)

	assert.Equal(t, "HEIGHT=32;INVERT=1;WIDTH=96", opts.Encode())

	_, err = ParseOptions("=3")
	assert.Error(t, err)

	opts, err = ParseOptions("width=wide")
	require.NoError(t, err)
	_, err = opts.Int("width", 0)
	assert.Error(t, err)
}

func TestCanvasQuantisesToColourCount(t *testing.T) {
	mono, err := NewCanvas(4, 1, 2, 1)
	require.NoError(t, err)

	mono.SetGrey(0, 0, 127)
	mono.SetGrey(1, 0, 128)
	mono.SetColour(2, 0, 0xFFFF0000)
	assert.Equal(t, ColourBlack, mono.Colour(0, 0))
	assert.Equal(t, ColourWhite, mono.Colour(1, 0))
	// pure red has luma 76
	assert.Equal(t, ColourBlack, mono.Colour(2, 0))

	grey, err := NewCanvas(1, 1, 4, 2)
	require.NoError(t, err)
	grey.SetGrey(0, 0, 100)
	assert.Equal(t, uint8(85), grey.Grey(0, 0))
}

func TestCanvasIgnoresOutOfBounds(t *testing.T) {
	c, err := NewCanvas(2, 2, 256, 24)
	require.NoError(t, err)

	c.SetColour(-1, 0, ColourBlack)
	c.SetColour(2, 1, ColourBlack)
	c.SetGrey(0, 5, 0)
	assert.Equal(t, uint32(0), c.Colour(-1, 0))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			assert.Equal(t, ColourWhite, c.Colour(x, y))
		}
	}
}

func TestCanvasBlit(t *testing.T) {
	c, err := NewCanvas(3, 2, 1<<24, 24)
	require.NoError(t, err)

	// 2x2 RGB source, draw its right column at (0, 0)
	src := []byte{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	}
	require.NoError(t, c.Blit(0, 0, 1, 2, 1, 0, 2, 2, frame.FormatRGB24, src))
	assert.Equal(t, uint32(0xFF040506), c.Colour(0, 0))
	assert.Equal(t, uint32(0xFF0A0B0C), c.Colour(0, 1))
	assert.Equal(t, ColourWhite, c.Colour(1, 0))

	err = c.Blit(0, 0, 1, 1, 0, 0, 1, 1, frame.FormatBGR24, src)
	assert.True(t, errors.Is(err, frame.ErrUnsupportedFormat))
}

func TestProfileOf(t *testing.T) {
	m, err := NewMemory(MemoryConfig{Width: 128, Height: 64, Colours: 2, Depth: 1, SelfEmitting: true})
	require.NoError(t, err)

	p := ProfileOf(m.Device(false))
	assert.Equal(t, Profile{Width: 128, Height: 64, Colours: 2, Depth: 1, PixelAspect: 100, SelfEmitting: true}, p)
	assert.False(t, p.TrueColour())

	fg, bg := p.Polarity()
	assert.Equal(t, ColourWhite, fg)
	assert.Equal(t, ColourBlack, bg)
	assert.Equal(t, ColourBlack, m.Colour(0, 0))

	p = ProfileOf(m.Device(true))
	assert.True(t, p.ClipArea)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(MemoryDriver)

	d, err := r.Get("MEMORY")
	require.NoError(t, err)
	assert.Equal(t, "memory", d.Name)
	assert.Equal(t, []string{"memory"}, r.Names())

	dev, err := r.Open("memory", "", "width=96;height=48;depth=24;colours=16777216;cliparea=no")
	require.NoError(t, err)
	assert.Equal(t, 96, dev.Width())
	assert.Equal(t, 48, dev.Height())
	_, clip := dev.(ClipAreaer)
	assert.False(t, clip)

	_, err = r.Open("nosuch", "", "")
	assert.ErrorIs(t, err, ErrSetup)

	_, err = r.Open("memory", "", "width=0")
	assert.ErrorIs(t, err, ErrSetup)
}

func TestMemoryUpdateAfterClose(t *testing.T) {
	m, err := NewMemory(MemoryConfig{Width: 8, Height: 8, Colours: 2, Depth: 1})
	require.NoError(t, err)

	require.NoError(t, m.Update())
	assert.Equal(t, 1, m.Updates())
	require.NoError(t, m.Close())
	assert.True(t, m.Closed())
	assert.Error(t, m.Update())
}
