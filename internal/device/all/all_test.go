package all

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
)

func TestRegistryNames(t *testing.T) {
	r := Registry()
	assert.Equal(t, []string{"memory", "mjpeg", "ssd1306", "term", "window", "x11"}, r.Names())

	d, err := r.Get("MJPEG")
	require.NoError(t, err)
	assert.Equal(t, "http::8090", d.DefaultConnection)
}

func TestOpenMemory(t *testing.T) {
	dev, err := Registry().Open("memory", "", "width=96;height=48")
	require.NoError(t, err)
	defer dev.Close()
	assert.Equal(t, 96, dev.Width())
	assert.Equal(t, 48, dev.Height())

	_, err = Registry().Open("nope", "", "")
	assert.ErrorIs(t, err, device.ErrSetup)
}
