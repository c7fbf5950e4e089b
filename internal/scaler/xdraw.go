package scaler

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

var xdrawInterps = map[string]draw.Interpolator{
	"nearest":        draw.NearestNeighbor,
	"approxbilinear": draw.ApproxBiLinear,
	"bilinear":       draw.BiLinear,
	"catmullrom":     draw.CatmullRom,
}

func init() {
	register(Backend{
		Name:    "xdraw",
		Interps: []string{"nearest", "approxbilinear", "bilinear", "catmullrom"},
		Default: "bilinear",
		build: func(spec Spec) (rowScaler, error) {
			interp, ok := xdrawInterps[spec.Interp]
			if !ok {
				return nil, fmt.Errorf("xdraw: unknown interpolation %q", spec.Interp)
			}
			return xdrawScaler{interp: interp}, nil
		},
	})
}

type xdrawScaler struct {
	interp draw.Interpolator
}

func (s xdrawScaler) scale(dst *image.RGBA, dr image.Rectangle, src image.Image) error {
	s.interp.Scale(dst, dr, src, src.Bounds(), draw.Src, nil)
	return nil
}
