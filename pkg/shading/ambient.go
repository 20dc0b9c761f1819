package shading

import (
	"math"

	"github.com/taigrr/lumen/pkg/math3d"
)

// Sample returns the ambient radiance arriving from a direction: middle at
// the horizon, fading toward top above it and bottom below it. The function
// is direction-sensitive, not symmetric — straight up yields Top, straight
// down yields Bottom, any horizontal direction yields exactly Middle.
func (a AmbientCube) Sample(dir math3d.Vec3) math3d.Vec3 {
	f := dir.Dot(math3d.Up())
	target := a.Top
	if f < 0 {
		target = a.Bottom
	}
	return a.Middle.Lerp(target, math.Abs(f))
}

// AmbientTerm computes the full ambient contribution for a surface point.
//
// The gradient is sampled twice: along the shading normal for the diffuse
// term and along the view vector reflected about the normal for the
// specular term. The specular lookup is pulled toward the diffuse one by
// roughness² (a wide lobe sees more of the hemisphere), and the final
// blend by metallic keeps energy conserved: a pure metal shows only the
// f0-tinted specular term.
func AmbientTerm(a AmbientCube, n, v math3d.Vec3, albedo, f0 math3d.Vec3, metallic, roughness, occlusion float64) math3d.Vec3 {
	diffuse := a.Sample(n)
	specular := a.Sample(v.Negate().Reflect(n))

	spread := roughness * roughness
	specular = specular.Lerp(diffuse, spread)

	out := diffuse.Mul(albedo).Lerp(specular.Mul(f0), metallic)
	return out.Scale(occlusion)
}
