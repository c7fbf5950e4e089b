package osd

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
)

func surface(t *testing.T, w, h int, selfEmitting bool) (Surface, *device.Memory) {
	t.Helper()
	m, err := device.NewMemory(device.MemoryConfig{Width: w, Height: h, Colours: 2, Depth: 1, SelfEmitting: selfEmitting})
	require.NoError(t, err)
	fg, bg := device.ProfileOf(m).Polarity()
	return Surface{Dev: m, Layout: NewLayout(w, h), FG: fg, BG: bg}, m
}

func TestNewLayout(t *testing.T) {
	assert.Equal(t, Layout{Width: 320, PosY: 216, Height: 24, Margin: 2, BarHeight: 20}, NewLayout(320, 240))
	// a 64 pixel canvas would get a 2 pixel bar, so the minimum kicks in
	assert.Equal(t, Layout{Width: 128, PosY: 56, Height: 8, Margin: 1, BarHeight: 6}, NewLayout(128, 64))
	assert.Equal(t, image.Rect(0, 56, 128, 64), NewLayout(128, 64).Band())
}

func TestProgressBarFull(t *testing.T) {
	s, m := surface(t, 128, 64, false)
	bar, err := NewProgressBar("p", nil)
	require.NoError(t, err)

	r, err := bar.Render(s)
	require.NoError(t, err)
	assert.True(t, r.Empty(), "hidden bar draws nothing")

	bar.SetValue(255)
	r, err = bar.Render(s)
	require.NoError(t, err)
	assert.Equal(t, s.Layout.Band(), r)

	// margin rows and the left gap keep the foreground
	assert.Equal(t, device.ColourBlack, m.Colour(50, 56))
	assert.Equal(t, device.ColourBlack, m.Colour(50, 63))
	assert.Equal(t, device.ColourBlack, m.Colour(5, 60))
	// the bar itself is background
	assert.Equal(t, device.ColourWhite, m.Colour(50, 60))

	// even ticks at 10 and 64 are inverted on every bar row
	for y := 57; y < 63; y++ {
		assert.Equal(t, device.ColourBlack, m.Colour(10, y), "row %d", y)
		assert.Equal(t, device.ColourBlack, m.Colour(64, y), "row %d", y)
		// tick at 118 lies past the bar, on foreground
		assert.Equal(t, device.ColourWhite, m.Colour(118, y), "row %d", y)
	}
	// odd tick at 37 only on odd rows
	assert.Equal(t, device.ColourBlack, m.Colour(37, 57))
	assert.Equal(t, device.ColourWhite, m.Colour(37, 58))
}

func TestProgressBarHalfSelfEmitting(t *testing.T) {
	s, m := surface(t, 128, 64, true)
	bar, err := NewProgressBar("p", map[string]interface{}{"value": 128.0})
	require.NoError(t, err)

	_, err = bar.Render(s)
	require.NoError(t, err)

	// 108 * 128 / 255 = 54 pixels of bar
	assert.Equal(t, device.ColourBlack, m.Colour(10+53, 60))
	assert.Equal(t, device.ColourWhite, m.Colour(10+54+1, 60))
	assert.Equal(t, device.ColourWhite, m.Colour(0, 56))

	_, err = NewProgressBar("q", map[string]interface{}{"value": 300})
	assert.Error(t, err)
}

func TestTextWidgetDrawsInk(t *testing.T) {
	for _, h := range []int{64, 160} {
		s, m := surface(t, 160, h, false)
		text, err := NewTextWidget("t", map[string]interface{}{"text": "Hi"})
		require.NoError(t, err)

		r, err := text.Render(s)
		require.NoError(t, err)
		require.False(t, r.Empty())
		assert.True(t, r.In(image.Rect(0, 0, 160, h)))

		ink := 0
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				if m.Colour(x, y) == device.ColourBlack {
					ink++
				}
			}
		}
		assert.Greater(t, ink, 0, "canvas height %d", h)
	}
}

func TestManagerRender(t *testing.T) {
	s, _ := surface(t, 128, 64, false)
	mgr := NewDefaultManager()

	dirty, err := mgr.Render(s)
	require.NoError(t, err)
	assert.Empty(t, dirty)

	require.NoError(t, mgr.SetProgress(100))
	dirty, err = mgr.Render(s)
	require.NoError(t, err)
	assert.Equal(t, []image.Rectangle{s.Layout.Band()}, dirty)

	require.NoError(t, mgr.SetStatus("0:42"))
	dirty, err = mgr.Render(s)
	require.NoError(t, err)
	assert.Len(t, dirty, 2)

	require.NoError(t, mgr.HideProgress())
	require.NoError(t, mgr.SetStatus(""))
	dirty, err = mgr.Render(s)
	require.NoError(t, err)
	assert.Empty(t, dirty)

	mgr.SetEnabled(false)
	require.NoError(t, mgr.SetProgress(1))
	dirty, err = mgr.Render(s)
	require.NoError(t, err)
	assert.Empty(t, dirty)
}

func TestManagerWidgets(t *testing.T) {
	mgr := NewManager()
	w, err := mgr.CreateWidget("text", "clock", map[string]interface{}{"text": "12:00", "z": 5.0})
	require.NoError(t, err)
	require.NoError(t, mgr.AddWidget(w))
	assert.Error(t, mgr.AddWidget(w))

	_, err = mgr.CreateWidget("github-actions", "x", nil)
	assert.Error(t, err)

	require.NoError(t, mgr.LoadFromConfig([]map[string]interface{}{
		{"type": "progress", "id": "bar", "value": 10.0},
		{"type": "text", "id": "clock", "text": "12:01"},
		{"id": "no-type"},
	}))

	all := mgr.GetAllWidgets()
	require.Len(t, all, 2)
	assert.Equal(t, "bar", all[0].ID())
	assert.Equal(t, "clock", all[1].ID())

	exported := mgr.ExportConfig()
	assert.Equal(t, "12:01", exported[1]["text"])
	assert.Equal(t, 10, exported[0]["value"])

	require.NoError(t, mgr.RemoveWidget("bar"))
	assert.Error(t, mgr.RemoveWidget("bar"))
	mgr.Clear()
	assert.Empty(t, mgr.GetAllWidgets())
}
