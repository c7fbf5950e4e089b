package x11

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackZPixmap(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xFF})
	img.Set(2, 1, color.RGBA{R: 0xAA, G: 0xBB, B: 0xCC, A: 0xFF})

	data, err := packZPixmap(img, pixmapFormat{depth: 24, bytesPerPixel: 4, scanlinePad: 4})
	require.NoError(t, err)
	require.Len(t, data, 3*4*2)
	assert.Equal(t, []byte{0x33, 0x22, 0x11, 0x00}, data[0:4])
	assert.Equal(t, []byte{0xCC, 0xBB, 0xAA, 0x00}, data[12+8:12+12])

	// 3 bytes per pixel pads each 9 byte row to 12
	data, err = packZPixmap(img, pixmapFormat{depth: 24, bytesPerPixel: 3, scanlinePad: 4})
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, []byte{0xCC, 0xBB, 0xAA}, data[12+6:12+9])

	_, err = packZPixmap(img, pixmapFormat{depth: 16, bytesPerPixel: 2, scanlinePad: 4})
	assert.Error(t, err)
}
