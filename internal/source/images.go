package source

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/bryanchriswhite/TinyScreen/internal/frame"
	"github.com/bryanchriswhite/TinyScreen/internal/logger"
)

// Images shows still pictures one per frame. All pictures are fitted to
// the size of the first one, or to the requested size.
type Images struct {
	pattern string
	frames  []frame.Frame
	pos     int
	loop    bool
}

// NewImages decodes every file matching pattern.
func NewImages(pattern string, opts Options) (*Images, error) {
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images match %q", pattern)
	}
	sort.Strings(paths)

	s := &Images{pattern: pattern, loop: opts.Loop}
	var w, h int
	for _, p := range paths {
		img, err := decodeFile(p)
		if err != nil {
			return nil, err
		}
		if w == 0 {
			w, h = opts.size(img.Bounds().Dx(), img.Bounds().Dy())
		}
		s.frames = append(s.frames, frame.FromImage(fit(img, w, h)))
	}

	logger.WithComponent("source").Info().
		Str("pattern", pattern).
		Int("images", len(s.frames)).
		Int("width", w).
		Int("height", h).
		Msg("Images loaded")
	return s, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// fit scales img to w x h unless it already has that size.
func fit(img image.Image, w, h int) image.Image {
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func (s *Images) Name() string         { return "image:" + s.pattern }
func (s *Images) Format() frame.Format { return frame.FormatRGBA32 }

// Len is the number of pictures.
func (s *Images) Len() int { return len(s.frames) }

func (s *Images) Size() (int, int) {
	return s.frames[0].Width, s.frames[0].Height
}

// Next returns the following picture.
func (s *Images) Next(ctx context.Context) (frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return frame.Frame{}, err
	}
	if s.pos == len(s.frames) {
		if !s.loop {
			return frame.Frame{}, io.EOF
		}
		s.pos = 0
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *Images) Close() error {
	s.frames = nil
	return nil
}
