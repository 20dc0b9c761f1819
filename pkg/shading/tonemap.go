package shading

import (
	"math"

	"github.com/taigrr/lumen/pkg/math3d"
)

// DefaultExposure matches the engine demo scenes; lights are authored in
// HDR radiance an order of magnitude above display range.
const DefaultExposure = 0.05

// luminanceWeights are the Rec. 709 luma coefficients.
var luminanceWeights = math3d.V3(0.2126, 0.7152, 0.0722)

// Expose applies the exposure curve 1 - exp(-hdr * exposure), mapping
// unbounded radiance into [0,1) per channel.
func Expose(hdr math3d.Vec3, exposure float64) math3d.Vec3 {
	return math3d.V3(
		1-math.Exp(-hdr.X*exposure),
		1-math.Exp(-hdr.Y*exposure),
		1-math.Exp(-hdr.Z*exposure),
	)
}

// ReinhardJodie compresses a color with per-channel Reinhard blended toward
// a luminance-based curve, which keeps bright saturated colors from hue
// shifting the way plain per-channel Reinhard does.
func ReinhardJodie(v math3d.Vec3) math3d.Vec3 {
	l := v.Dot(luminanceWeights)
	tc := math3d.V3(v.X/(1+v.X), v.Y/(1+v.Y), v.Z/(1+v.Z))
	tl := v.Scale(1 / (1 + l))
	// Blend from the luminance curve toward the per-channel curve, weighted
	// by the channel's own compressed value.
	return math3d.V3(
		math3d.Lerp(tl.X, tc.X, tc.X),
		math3d.Lerp(tl.Y, tc.Y, tc.Y),
		math3d.Lerp(tl.Z, tc.Z, tc.Z),
	)
}

// GammaEncode converts linear color to display gamma (1/2.2).
func GammaEncode(v math3d.Vec3) math3d.Vec3 {
	return math3d.V3(
		math.Pow(math.Max(0, v.X), 1/2.2),
		math.Pow(math.Max(0, v.Y), 1/2.2),
		math.Pow(math.Max(0, v.Z), 1/2.2),
	)
}

// Tonemap runs the full tonemapping stage: exposure, Reinhard-Jodie
// compression, gamma encoding. Stateless; exposure is a per-frame,
// per-camera parameter.
func Tonemap(hdr math3d.Vec3, exposure float64) math3d.Vec3 {
	return GammaEncode(ReinhardJodie(Expose(hdr, exposure)))
}
