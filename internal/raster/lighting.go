package raster

import (
	"math"

	"skelmodel/internal/mathutil"
)

// LightConfig is a flat-shading rig: one key light, one rim light, a
// hemisphere fill and Blinn-Phong highlights, followed by ACES tone mapping.
type LightConfig struct {
	Key      mathutil.Vec3
	Rim      mathutil.Vec3
	half     mathutil.Vec3
	Ambient  float64
	Hemi     float64
	KeyPower float64
	RimPower float64
	SpecInt  float64
	SpecPow  float64
	Exposure float64
	InvGamma float64
}

// DefaultLightConfig returns the studio lighting used for pose previews.
func DefaultLightConfig() LightConfig {
	key := mathutil.Vec3{180, 260, 140}.Normalize()
	view := mathutil.Vec3{0, -110, -400}.Normalize()
	return LightConfig{
		Key:      key,
		Rim:      mathutil.Vec3{-160, 130, -210}.Normalize(),
		half:     key.Sub(view).Normalize(),
		Ambient:  0.55,
		Hemi:     0.50,
		KeyPower: 1.50,
		RimPower: 0.60,
		SpecInt:  0.45,
		SpecPow:  12.0,
		Exposure: 1.05,
		InvGamma: 1.0 / 2.2,
	}
}

// ComputeShade returns the light intensity for a unit face normal. Faces
// are lit from both sides.
func (lc *LightConfig) ComputeShade(n mathutil.Vec3) float64 {
	hemi := ((1.0-math.Abs(n[1]))*0.5 + 0.5) * lc.Hemi
	spec := math.Pow(max(n.Dot(lc.half), 0), lc.SpecPow) * lc.SpecInt
	return lc.Ambient + hemi + math.Abs(n.Dot(lc.Key))*lc.KeyPower + math.Abs(n.Dot(lc.Rim))*lc.RimPower + spec
}

// shadeTexel maps an sRGB texel through lighting and tone mapping.
func (lc *LightConfig) shadeTexel(c uint8, shade float64) uint8 {
	x := srgbToLinear[c] * shade * lc.Exposure
	return clamp255(math.Pow(ACESTonemap(x), lc.InvGamma) * 255)
}

var srgbToLinear [256]float64

func init() {
	for i := range srgbToLinear {
		srgbToLinear[i] = math.Pow(float64(i)/255.0, 2.2)
	}
}

// ACESTonemap applies the ACES filmic curve to a linear value.
func ACESTonemap(x float64) float64 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}
