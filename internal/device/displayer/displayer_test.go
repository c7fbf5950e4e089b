package displayer

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
)

type fakeDriver struct {
	w, h     int16
	pixels   map[[2]int16]color.RGBA
	sets     int
	displays int
}

func (f *fakeDriver) Size() (x, y int16) { return f.w, f.h }

func (f *fakeDriver) SetPixel(x, y int16, c color.RGBA) {
	f.pixels[[2]int16{x, y}] = c
	f.sets++
}

func (f *fakeDriver) Display() error {
	f.displays++
	return nil
}

func TestUpdateSendsChangedPixels(t *testing.T) {
	drv := &fakeDriver{w: 16, h: 8, pixels: map[[2]int16]color.RGBA{}}
	d, err := New(drv, Config{Colours: 1 << 16, Depth: 16, PixelAspect: 100})
	require.NoError(t, err)
	assert.Equal(t, 16, d.Width())

	require.NoError(t, d.Update())
	assert.Equal(t, 16*8, drv.sets, "first update sends the white background")
	assert.Equal(t, 1, drv.displays)

	drv.sets = 0
	d.SetColour(2, 3, 0xFFFF0000)
	require.NoError(t, d.Update())
	assert.Equal(t, 1, drv.sets)
	assert.Equal(t, color.RGBA{R: 0xFF, A: 0xFF}, drv.pixels[[2]int16{2, 3}])

	p := device.ProfileOf(d)
	assert.True(t, p.TrueColour())
	assert.True(t, p.ClipArea)
}
