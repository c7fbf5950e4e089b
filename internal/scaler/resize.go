package scaler

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

var resizeInterps = map[string]resize.InterpolationFunction{
	"nearest":  resize.NearestNeighbor,
	"bilinear": resize.Bilinear,
	"bicubic":  resize.Bicubic,
	"mitchell": resize.MitchellNetravali,
	"lanczos2": resize.Lanczos2,
	"lanczos3": resize.Lanczos3,
}

func init() {
	register(Backend{
		Name:    "resize",
		Interps: []string{"nearest", "bilinear", "bicubic", "mitchell", "lanczos2", "lanczos3"},
		Default: "bicubic",
		build: func(spec Spec) (rowScaler, error) {
			interp, ok := resizeInterps[spec.Interp]
			if !ok {
				return nil, fmt.Errorf("resize: unknown interpolation %q", spec.Interp)
			}
			return resizeScaler{interp: interp}, nil
		},
	})
}

type resizeScaler struct {
	interp resize.InterpolationFunction
}

func (s resizeScaler) scale(dst *image.RGBA, dr image.Rectangle, src image.Image) error {
	// nfnt/resize has fast paths for *image.RGBA only
	if _, ok := src.(*image.RGBA); !ok {
		rgba := image.NewRGBA(src.Bounds())
		draw.Draw(rgba, rgba.Bounds(), src, src.Bounds().Min, draw.Src)
		src = rgba
	}
	out := resize.Resize(uint(dr.Dx()), uint(dr.Dy()), src, s.interp)
	draw.Draw(dst, dr, out, out.Bounds().Min, draw.Src)
	return nil
}
