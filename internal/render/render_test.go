package render

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanchriswhite/TinyScreen/internal/device"
	"github.com/bryanchriswhite/TinyScreen/internal/device/devicetest"
)

func newMemory(t *testing.T, w, h, colours, depth int) *device.Memory {
	t.Helper()
	m, err := device.NewMemory(device.MemoryConfig{Width: w, Height: h, Colours: colours, Depth: depth})
	require.NoError(t, err)
	return m
}

func greySource(w, h int, origin image.Point, fill func(x, y int) uint8) Source {
	pix := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pix[y*w+x] = fill(x, y)
		}
	}
	return Source{Pix: pix, Stride: w, Width: w, Height: h, Origin: origin}
}

func emitted(rec *devicetest.Recorder) []uint8 {
	out := make([]uint8, 0, len(rec.Writes))
	for _, w := range rec.Writes {
		out = append(out, w.Grey)
	}
	return out
}

func TestSelect(t *testing.T) {
	mono := device.Profile{Colours: 2, Depth: 1}
	grey := device.Profile{Colours: 16, Depth: 4}
	colour := device.Profile{Colours: 65536, Depth: 16}

	assert.Equal(t, KindDirectGrey, Select(mono, 0))
	assert.Equal(t, KindDither, Select(mono, 1))
	assert.Equal(t, KindHalftone, Select(grey, 2))
	assert.Equal(t, KindDither, Select(grey, 9))
	assert.Equal(t, KindTrueColour, Select(colour, 0))
	assert.Equal(t, KindTrueColour, Select(colour, 1))
}

func TestGammaIdentityAtOne(t *testing.T) {
	assert.Nil(t, NewGammaLUT(1.0))
	var lut GammaLUT
	for v := 0; v < 256; v++ {
		assert.Equal(t, uint8(v), lut.Apply(uint8(v)))
		assert.Equal(t, uint8(v), Gamma(uint8(v), 1.0))
	}

	lut = NewGammaLUT(2.2)
	require.Len(t, lut, 256)
	assert.Equal(t, uint8(0), lut.Apply(0))
	assert.Equal(t, uint8(136), lut.Apply(64))
	assert.Equal(t, uint8(255), lut.Apply(255))
}

func TestDirectGreyBinarisesAtThreshold(t *testing.T) {
	rec := devicetest.NewRecorder(newMemory(t, 256, 1, 2, 1))
	src := greySource(256, 1, image.Point{}, func(x, _ int) uint8 { return uint8(x) })

	algo, err := New(KindDirectGrey, Options{Gamma: 1.0, Threshold: 127, Colours: 2})
	require.NoError(t, err)
	require.NoError(t, algo.Draw(rec, src, src.Bounds()))

	require.Len(t, rec.Writes, 256)
	for _, w := range rec.Writes {
		if w.X <= 127 {
			assert.Equal(t, uint8(0), w.Grey, "sample %d", w.X)
		} else {
			assert.Equal(t, uint8(255), w.Grey, "sample %d", w.X)
		}
	}
}

func TestDirectGreyPassesThroughOnGreyscale(t *testing.T) {
	rec := devicetest.NewRecorder(newMemory(t, 4, 1, 16, 4))
	src := greySource(4, 1, image.Point{}, func(x, _ int) uint8 { return uint8(x * 60) })

	algo, err := New(KindDirectGrey, Options{Gamma: 1.0, Threshold: 127, Colours: 16})
	require.NoError(t, err)
	require.NoError(t, algo.Draw(rec, src, src.Bounds()))
	assert.Equal(t, []uint8{0, 60, 120, 180}, emitted(rec))
}

func TestDirectGreyReadsRelativeToOrigin(t *testing.T) {
	m := newMemory(t, 10, 6, 2, 1)
	rec := devicetest.NewRecorder(m)
	src := greySource(4, 2, image.Pt(3, 2), func(x, y int) uint8 {
		if x == 1 && y == 1 {
			return 0
		}
		return 255
	})

	algo, err := New(KindDirectGrey, Options{Threshold: 127, Colours: 2})
	require.NoError(t, err)
	require.NoError(t, algo.Draw(rec, src, src.Bounds()))

	assert.Equal(t, device.ColourBlack, m.Colour(4, 3))
	assert.Equal(t, device.ColourWhite, m.Colour(3, 2))

	err = algo.Draw(rec, src, image.Rect(0, 0, 4, 2))
	assert.Error(t, err)
}

var ditherInput = []uint8{
	0, 40, 80, 120, 160, 200, 240, 255,
	10, 60, 110, 130, 170, 210, 230, 250,
	128, 128, 128, 128, 128, 128, 128, 128,
}

func TestDitherMatchesFixedPointKernel(t *testing.T) {
	cases := []struct {
		name     string
		colours  int
		bandpass int
		want     []uint8
	}{
		{
			name:    "mono",
			colours: 2,
			want: []uint8{
				0, 0, 0, 255, 0, 255, 255, 255,
				0, 0, 255, 0, 255, 255, 255, 255,
				255, 0, 255, 0, 255, 0, 0, 255,
			},
		},
		{
			name:    "four levels",
			colours: 4,
			want: []uint8{
				0, 85, 85, 85, 170, 170, 170, 255,
				0, 85, 85, 170, 170, 170, 255, 170,
				85, 85, 85, 170, 85, 170, 170, 85,
			},
		},
		{
			name:     "mono with bandpass",
			colours:  2,
			bandpass: 30,
			want: []uint8{
				0, 0, 0, 255, 0, 255, 255, 255,
				0, 0, 255, 0, 255, 255, 255, 255,
				255, 0, 255, 0, 255, 0, 255, 0,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := devicetest.NewRecorder(newMemory(t, 8, 3, tc.colours, 2))
			src := greySource(8, 3, image.Point{}, func(x, y int) uint8 { return ditherInput[y*8+x] })

			algo, err := New(KindDither, Options{Gamma: 1.0, Bandpass: tc.bandpass, Colours: tc.colours, Width: 8})
			require.NoError(t, err)
			require.NoError(t, algo.Draw(rec, src, src.Bounds()))
			assert.Equal(t, tc.want, emitted(rec))
		})
	}
}

func TestDitherUniformGreyConverges(t *testing.T) {
	const w, h = 64, 64
	for _, level := range []uint8{32, 64, 100, 127, 128, 200} {
		rec := devicetest.NewRecorder(newMemory(t, w, h, 2, 1))
		src := greySource(w, h, image.Point{}, func(int, int) uint8 { return level })

		algo, err := New(KindDither, Options{Gamma: 1.0, Colours: 2, Width: w})
		require.NoError(t, err)
		require.NoError(t, algo.Draw(rec, src, src.Bounds()))

		on := 0
		for _, g := range emitted(rec) {
			require.True(t, g == 0 || g == 255)
			if g == 255 {
				on++
			}
		}
		fraction := float64(on) / float64(w*h)
		assert.InDelta(t, float64(level)/255, fraction, 1.0/255*3, "level %d", level)
	}
}

func TestDitherResetsBetweenPasses(t *testing.T) {
	src := greySource(8, 3, image.Point{}, func(x, y int) uint8 { return ditherInput[y*8+x] })
	algo, err := New(KindDither, Options{Colours: 2, Width: 8})
	require.NoError(t, err)

	first := devicetest.NewRecorder(newMemory(t, 8, 3, 2, 1))
	require.NoError(t, algo.Draw(first, src, src.Bounds()))
	second := devicetest.NewRecorder(newMemory(t, 8, 3, 2, 1))
	require.NoError(t, algo.Draw(second, src, src.Bounds()))

	assert.Equal(t, emitted(first), emitted(second))
}

func TestHalftoneEmitsBinary(t *testing.T) {
	rec := devicetest.NewRecorder(newMemory(t, 16, 16, 4, 2))
	src := greySource(16, 16, image.Point{}, func(x, y int) uint8 { return uint8(x * 16) })

	algo, err := New(KindHalftone, Options{Gamma: 1.0, Colours: 4})
	require.NoError(t, err)
	require.NoError(t, algo.Draw(rec, src, src.Bounds()))

	require.Len(t, rec.Writes, 256)
	for _, g := range emitted(rec) {
		assert.True(t, g == 0 || g == 255)
	}
	// the darkest column stays off
	for _, w := range rec.Writes {
		if w.X == 0 {
			assert.Equal(t, uint8(0), w.Grey)
		}
	}
}

func TestTrueColourFastPathMatchesFallback(t *testing.T) {
	const w, h = 12, 8
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = byte(i * 7)
	}
	src := Source{Pix: pix, Stride: w * 3, Width: w, Height: h, Origin: image.Pt(0, 2)}

	for _, r := range []image.Rectangle{src.Bounds(), image.Rect(0, 4, w, 7)} {
		fastDev := newMemory(t, w, 12, 1<<24, 24)
		fast := devicetest.NewClipRecorder(fastDev.Device(true))
		slowDev := newMemory(t, w, 12, 1<<24, 24)
		slow := devicetest.NewRecorder(slowDev.Device(false))

		require.NoError(t, (&TrueColour{FastBlit: true}).Draw(fast, src, r))
		require.NoError(t, (&TrueColour{FastBlit: false}).Draw(slow, src, r))

		assert.Len(t, fast.ClipAreas, 1)
		assert.Empty(t, fast.Writes)
		assert.Len(t, slow.Writes, r.Dx()*r.Dy())
		assert.Equal(t, slowDev.Image(), fastDev.Image())
	}
}

func TestTrueColourWithoutClipAreaFallsBack(t *testing.T) {
	m := newMemory(t, 2, 1, 1<<24, 24)
	rec := devicetest.NewRecorder(m)
	src := Source{Pix: []byte{1, 2, 3, 4, 5, 6}, Stride: 6, Width: 2, Height: 1}

	require.NoError(t, (&TrueColour{FastBlit: true}).Draw(rec, src, src.Bounds()))
	require.Len(t, rec.Writes, 2)
	assert.Equal(t, uint32(0xFF010203), rec.Writes[0].Colour)
	assert.Equal(t, uint32(0xFF040506), m.Colour(1, 0))
}

func TestDitherRejectsUnusableColourCounts(t *testing.T) {
	for _, colours := range []int{1, 513, 1024} {
		_, err := New(KindDither, Options{Gamma: 1, Colours: colours, Width: 8})
		assert.ErrorIs(t, err, device.ErrSetup, "colours=%d", colours)
	}
	_, err := New(KindDither, Options{Gamma: 1, Colours: 512, Width: 8})
	assert.NoError(t, err)
}
