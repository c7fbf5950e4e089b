package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
)

func TestUpdateRendersFrontBuffer(t *testing.T) {
	d, err := New(device.MemoryConfig{Width: 16, Height: 8, Colours: 2, Depth: 1, PixelAspect: 200}, 2)
	require.NoError(t, err)
	assert.Equal(t, 32, d.front.Bounds().Dx())
	assert.Equal(t, 32, d.front.Bounds().Dy())

	d.SetOption(device.OptBacklight, 1)
	d.SetColour(0, 0, device.ColourBlack)
	require.NoError(t, d.Update())
	assert.True(t, d.dirty)

	assert.Equal(t, uint8(0), d.front.RGBAAt(1, 3).R)
	assert.Equal(t, uint8(0xFF), d.front.RGBAAt(2, 0).R)
}

func TestUpdateAfterClose(t *testing.T) {
	d, err := New(device.DefaultMemoryConfig, 0)
	require.NoError(t, err)
	require.NoError(t, d.Close())
	assert.Error(t, d.Update())
	assert.True(t, d.done)
}
