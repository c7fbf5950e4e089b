package ssd1306

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
)

type fakePanel struct {
	drawn    *image1bit.VerticalLSB
	contrast byte
	inverted bool
	halted   bool
}

func (p *fakePanel) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	img := image1bit.NewVerticalLSB(r)
	copy(img.Pix, src.(*image1bit.VerticalLSB).Pix)
	p.drawn = img
	return nil
}

func (p *fakePanel) SetContrast(level byte) error {
	p.contrast = level
	return nil
}

func (p *fakePanel) Invert(blackTop bool) error {
	p.inverted = blackTop
	return nil
}

func (p *fakePanel) Halt() error {
	p.halted = true
	return nil
}

func TestUpdateSendsBits(t *testing.T) {
	p := &fakePanel{}
	d, err := New(p, nil, 128, 64)
	require.NoError(t, err)

	fg, bg := device.ProfileOf(d).Polarity()
	assert.Equal(t, device.ColourWhite, fg)
	assert.Equal(t, device.ColourBlack, bg)

	d.SetColour(3, 9, device.ColourWhite)
	d.SetGrey(127, 63, 200)
	require.NoError(t, d.Update())

	require.NotNil(t, p.drawn)
	assert.Equal(t, image1bit.On, p.drawn.BitAt(3, 9))
	assert.Equal(t, image1bit.On, p.drawn.BitAt(127, 63))
	assert.Equal(t, image1bit.Off, p.drawn.BitAt(4, 9))
}

func TestOptionsReachPanel(t *testing.T) {
	p := &fakePanel{}
	d, err := New(p, nil, 128, 32)
	require.NoError(t, err)

	d.SetOption("contrast", 10)
	assert.Equal(t, byte(255), p.contrast)
	d.SetOption(device.OptInvert, 1)
	assert.True(t, p.inverted)

	v, ok := d.Option(device.OptInvert)
	assert.True(t, ok)
	assert.Equal(t, int64(1), v)

	require.NoError(t, d.Close())
	assert.True(t, p.halted)
	assert.NoError(t, d.Close())
}
