package render

import "math"

// GammaLUT maps a grey sample to its gamma-corrected value. A nil table
// is the identity.
type GammaLUT []uint8

// NewGammaLUT returns the table for gamma, or nil when gamma is 1.0 or
// not positive.
func NewGammaLUT(gamma float64) GammaLUT {
	if gamma == 1.0 || gamma <= 0 {
		return nil
	}
	lut := make(GammaLUT, 256)
	for i := range lut {
		lut[i] = Gamma(uint8(i), gamma)
	}
	return lut
}

// Apply corrects v.
func (l GammaLUT) Apply(v uint8) uint8 {
	if l == nil {
		return v
	}
	return l[v]
}

// Gamma computes 255 * (v/255)^(1/gamma), truncated.
func Gamma(v uint8, gamma float64) uint8 {
	f := math.Pow(float64(v)/255.0, 1.0/gamma)
	return uint8(f * 255.0)
}
