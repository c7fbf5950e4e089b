package term

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
)

func TestUpdateWritesHalfBlockRows(t *testing.T) {
	var buf bytes.Buffer
	d, err := New(device.MemoryConfig{Width: 16, Height: 8, Colours: 2, Depth: 1}, &buf)
	require.NoError(t, err)
	assert.Zero(t, buf.Len(), "nothing is written to a non-terminal before Update")
	d.SetOption(device.OptBacklight, 1)

	d.SetColour(3, 0, device.ColourBlack)
	require.NoError(t, d.Update())

	out := buf.String()
	assert.NotContains(t, out, cursorHome)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)
	for _, l := range lines {
		assert.Equal(t, 16, utf8.RuneCountInString(l))
		assert.Equal(t, strings.Repeat(upperHalf, 16), l)
	}

	// white/white everywhere except one black-over-white cell
	assert.Len(t, d.styles, 2)
	assert.Equal(t, uint32(0), d.rgb(3, 0))
	assert.Equal(t, uint32(0xFFFFFF), d.rgb(3, 1))
}

func TestBacklightOffDims(t *testing.T) {
	var buf bytes.Buffer
	d, err := New(device.MemoryConfig{Width: 4, Height: 2, Colours: 2, Depth: 1}, &buf)
	require.NoError(t, err)
	require.NoError(t, d.Update())
	assert.Equal(t, uint32(0x9F9F9F), d.rgb(0, 0), "white at 5/8 without backlight")

	d.SetOption(device.OptBacklight, 1)
	require.NoError(t, d.Update())
	assert.Equal(t, uint32(0xFFFFFF), d.rgb(0, 0))
}

func TestOddHeightPadsWithBlack(t *testing.T) {
	var buf bytes.Buffer
	d, err := New(device.MemoryConfig{Width: 4, Height: 3, Colours: 2, Depth: 1}, &buf)
	require.NoError(t, err)
	require.NoError(t, d.Update())

	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
	assert.Equal(t, uint32(0), d.rgb(0, 3))
	require.NoError(t, d.Close())
	assert.NoError(t, d.Close())
}

func TestDriverRejectsUnknownConnection(t *testing.T) {
	_, err := Driver.Open(device.ParseConnection("/dev/tty9"), "term", device.Options{})
	assert.Error(t, err)
}
