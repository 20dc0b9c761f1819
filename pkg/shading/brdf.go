package shading

import (
	"math"

	"github.com/taigrr/lumen/pkg/math3d"
)

// DielectricF0 is the base reflectance of non-metallic surfaces.
const DielectricF0 = 0.04

// specularEpsilon keeps the specular denominator finite at grazing angles.
const specularEpsilon = 1e-4

// BaseReflectance returns f0 for a surface: the dielectric constant blended
// toward albedo by metallic.
func BaseReflectance(albedo math3d.Vec3, metallic float64) math3d.Vec3 {
	return math3d.Splat3(DielectricF0).Lerp(albedo, metallic)
}

// fresnelSchlick is Schlick's approximation in spherical-gaussian form:
// f0 + (1-f0) * 2^((-5.55473*HdotV - 6.98316) * HdotV).
func fresnelSchlick(f0 math3d.Vec3, hDotV float64) math3d.Vec3 {
	f := math.Exp2((-5.55473*hDotV - 6.98316) * hDotV)
	return f0.Add(math3d.V3(1-f0.X, 1-f0.Y, 1-f0.Z).Scale(f))
}

// distributionGGX is the Trowbridge-Reitz normal distribution. Roughness is
// used directly as the GGX alpha, not squared: the lit path has always used
// this form and every shading variant must agree on it.
func distributionGGX(nDotH, roughness float64) float64 {
	a2 := roughness * roughness
	d := nDotH*nDotH*(a2-1) + 1
	return a2 / (math.Pi * d * d)
}

// geometrySchlickGGX is the single-direction Smith term.
func geometrySchlickGGX(nDotX, k float64) float64 {
	return nDotX / (nDotX*(1-k)+k)
}

// geometrySmith is Smith shadowing-masking with the direct-lighting
// remapping k = (roughness+1)^2 / 8.
func geometrySmith(nDotV, nDotL, roughness float64) float64 {
	k := (roughness + 1) * (roughness + 1) / 8
	return geometrySchlickGGX(nDotV, k) * geometrySchlickGGX(nDotL, k)
}

// EvalDirectional computes the outgoing radiance one directional light adds
// at a surface point, using the Cook-Torrance microfacet model.
//
// n and v are unit vectors pointing away from the surface (v toward the
// eye). The light's stored direction is its direction of travel, so the
// shading vector toward the light is its negation. All cosines are clamped
// to [0,1]; a light behind the surface contributes exactly zero rather
// than subtracting energy.
//
// The evaluator handles a single light and performs no accumulation; the
// caller sums contributions over the fixed light count.
func EvalDirectional(n, v math3d.Vec3, albedo, f0 math3d.Vec3, metallic, roughness, occlusion float64, light DirectionalLight) math3d.Vec3 {
	l := light.Direction.Negate().Normalize()
	h := l.Add(v).Normalize()

	nDotL := math3d.Clamp01(n.Dot(l))
	nDotH := math3d.Clamp01(n.Dot(h))
	nDotV := math3d.Clamp01(n.Dot(v))
	hDotV := math3d.Clamp01(h.Dot(v))

	f := fresnelSchlick(f0, hDotV)
	ndf := distributionGGX(nDotH, roughness)
	g := geometrySmith(nDotV, nDotL, roughness)

	specular := f.Scale(ndf * g / (4*nDotV*nDotL + specularEpsilon))

	// Energy not reflected specularly feeds the diffuse lobe; metals have
	// no diffuse lobe at all.
	kd := math3d.V3(1-f.X, 1-f.Y, 1-f.Z).Scale(1 - metallic)

	diffuse := kd.Mul(albedo).Scale(nDotL * occlusion)
	return diffuse.Add(specular).Mul(light.Color)
}
