package mjpeg

import (
	"encoding/json"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
)

func newDisplay(t *testing.T) (*Display, *httptest.Server) {
	t.Helper()
	d, err := New(Config{Panel: device.MemoryConfig{Width: 32, Height: 16, Colours: 2, Depth: 1}, Scale: 2})
	require.NoError(t, err)

	r := mux.NewRouter()
	d.Routes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		d.Close()
		srv.Close()
	})
	return d, srv
}

func TestSnapshotAndStats(t *testing.T) {
	d, srv := newDisplay(t)

	resp, err := http.Get(srv.URL + "/snapshot.jpg")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	d.SetColour(0, 0, device.ColourBlack)
	require.NoError(t, d.Update())

	resp, err = http.Get(srv.URL + "/snapshot.jpg")
	require.NoError(t, err)
	img, err := jpeg.Decode(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())

	resp, err = http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	var st Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	resp.Body.Close()
	assert.Equal(t, uint64(1), st.Frames)
	assert.Equal(t, 32, st.Width)
}

func TestStreamSendsCurrentFrame(t *testing.T) {
	d, srv := newDisplay(t)
	require.NoError(t, d.Update())

	resp, err := http.Get(srv.URL + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	mr := multipart.NewReader(resp.Body, "frame")
	part, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", part.Header.Get("Content-Type"))
	_, err = jpeg.Decode(part)
	require.NoError(t, err)
}

func TestDriverListens(t *testing.T) {
	dev, err := Driver.Open(device.ParseConnection("http:127.0.0.1:0"), "mjpeg", device.Options{"WIDTH": "16", "HEIGHT": "8"})
	require.NoError(t, err)
	d := dev.(*Display)
	assert.NotEmpty(t, d.Addr())
	assert.Equal(t, 16, d.Width())

	_, ok := dev.(device.ClipAreaer)
	assert.True(t, ok)

	require.NoError(t, d.Update())
	resp, err := http.Get("http://" + d.Addr() + "/stats")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, dev.Close())
	require.NoError(t, dev.Close())
	assert.Error(t, dev.Update())
}
