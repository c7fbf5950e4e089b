package frame

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsNonRGB(t *testing.T) {
	assert.NoError(t, Validate(FormatBGR24))
	assert.NoError(t, Validate(FormatRGB565))

	for _, f := range []Format{FormatUnknown, FormatI420, FormatGray8} {
		err := Validate(f)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupportedFormat), "format %s", f)
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("BGRA")
	require.NoError(t, err)
	assert.Equal(t, FormatBGRA32, f)

	_, err = ParseFormat("nv12")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestRowsSharesMemory(t *testing.T) {
	f := New(FormatRGB24, 4, 6)
	band, err := f.Rows(2, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, band.Height)

	band.Pix()[0] = 0xAB
	assert.Equal(t, byte(0xAB), f.Pix()[2*f.Stride()])

	_, err = f.Rows(5, 2)
	assert.Error(t, err)
}

func TestImageDecodesPackedFormats(t *testing.T) {
	f := New(FormatBGR24, 2, 1)
	copy(f.Pix(), []byte{10, 20, 30, 40, 50, 60})
	img, err := f.Image(0)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 30, G: 20, B: 10, A: 0xFF}, img.At(0, 0))

	f = New(FormatRGB565, 1, 1)
	f.Pix()[0], f.Pix()[1] = 0x00, 0xF8 // pure red
	img, err = f.Image(0)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 0xFF}, img.At(0, 0))
}

func TestImageHonoursOrigin(t *testing.T) {
	f := New(FormatRGB24, 2, 4)
	f.Pix()[2*f.Stride()] = 99
	band, err := f.Rows(2, 2)
	require.NoError(t, err)

	img, err := band.Image(2)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 2, 2, 4), img.Bounds())
	r, _, _, _ := img.At(0, 2).RGBA()
	assert.Equal(t, uint32(99*0x101), r)
}

func TestFromImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 3, 2))
	src.Set(1, 1, color.NRGBA{R: 1, G: 2, B: 3, A: 0xFF})
	f := FromImage(src)
	assert.Equal(t, FormatRGBA32, f.Format)
	i := 1*f.Stride() + 1*4
	assert.Equal(t, []byte{1, 2, 3, 0xFF}, f.Pix()[i:i+4])
}
